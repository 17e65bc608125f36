package chat

import (
	"fmt"
	"strings"

	"github.com/existflow/devpilot/internal/model"
)

// historyWindow is how many recent messages are quoted in each prompt
const historyWindow = 6

// QuickPrompts are canned requests for common portfolio questions
var QuickPrompts = map[string]string{
	"analysis":      "Analyse the current state of my projects and tell me what I should focus on",
	"prioritize":    "Help me prioritise tasks based on deadlines and importance",
	"report":        "Generate a detailed progress report for all projects",
	"blockers":      "Identify potential blockers or problems in my projects",
	"suggestions":   "Suggest improvements for organisation and productivity",
	"timeline":      "Help me build a realistic timeline for the projects in progress",
	"resources":     "Suggest resources or technologies that could help these projects",
	"collaboration": "How can I improve team collaboration on these projects?",
}

var notificationKeywords = []string{
	"daily notification",
	"daily insight",
	"daily analysis",
	"daily summary",
	"notification",
	"reminder",
	"briefing",
	"what to do today",
	"priorities today",
	"agenda today",
	"automatic notifications",
}

// IsNotificationRequest reports whether message asks for an insight run or
// for the daily schedule instead of a chat reply
func IsNotificationRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range notificationKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func isScheduleRequest(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "schedule") || strings.Contains(lower, "automatic")
}

func buildContextPrompt(message string, projects []model.Project, focus string, history []model.ChatMessage) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant expert in project management and software development. You have full access to the user's project data.\n\n")
	b.WriteString("PROJECT DATA:\n")
	b.WriteString(formatProjects(projects, focus))
	b.WriteString("\nRECENT CHAT HISTORY:\n")
	b.WriteString(formatHistory(history))
	b.WriteString("\n\nUSER REQUEST:\n")
	b.WriteString(message)
	b.WriteString(`

INSTRUCTIONS:
- Answer professionally and helpfully
- Use the project data to give precise, contextual information
- If the user asks to create, change or manage projects or tasks, give specific suggestions
- You can analyse progress, deadlines and priorities and suggest optimisations
- For technical questions, consider the technologies used in the projects
- Keep answers concise but complete
- Where useful, suggest concrete actions the user can take

ANSWER:`)
	return b.String()
}

func formatProjects(projects []model.Project, focus string) string {
	if len(projects) == 0 {
		return "No projects.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TOTAL PROJECTS: %d\n\n", len(projects))

	if focus != "" {
		for _, p := range projects {
			if p.ID != focus {
				continue
			}
			b.WriteString("FOCUS PROJECT:\n")
			b.WriteString(formatProjectDetail(p))
			b.WriteString("\nOTHER PROJECTS:\n")
			for _, o := range projects {
				if o.ID != focus {
					fmt.Fprintf(&b, "- %s (%s, %s)\n", o.Name, o.Status, o.Priority)
				}
			}
			return b.String()
		}
	}

	for _, p := range projects {
		fmt.Fprintf(&b, "- %s\n", p.Name)
		fmt.Fprintf(&b, "  Status: %s, Priority: %s, Progress: %d%%\n", p.Status, p.Priority, model.ClampProgress(p.Progress))
		fmt.Fprintf(&b, "  Tasks: %d, Due: %s\n", len(p.Tasks), orDefault(p.DueDate, "Not set"))
		fmt.Fprintf(&b, "  Technologies: %s\n\n", orDefault(strings.Join(p.Technologies, ", "), "Not specified"))
	}
	return b.String()
}

func formatProjectDetail(p model.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	fmt.Fprintf(&b, "Status: %s, Priority: %s, Progress: %d%%\n", p.Status, p.Priority, model.ClampProgress(p.Progress))
	fmt.Fprintf(&b, "Category: %s, Due: %s\n", p.Category, orDefault(p.DueDate, "Not set"))
	fmt.Fprintf(&b, "Technologies: %s\n", orDefault(strings.Join(p.Technologies, ", "), "Not specified"))
	if p.Repository != "" {
		fmt.Fprintf(&b, "Repository: %s\n", p.Repository)
	}
	if p.DeployURL != "" {
		fmt.Fprintf(&b, "Deploy URL: %s\n", p.DeployURL)
	}

	if len(p.Tasks) > 0 {
		fmt.Fprintf(&b, "\nTASKS (%d):\n", len(p.Tasks))
		for i, t := range p.Tasks {
			fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, t.Title, t.Status, t.Priority)
			if t.Description != "" {
				fmt.Fprintf(&b, "   Description: %s\n", t.Description)
			}
			if t.Assignee != "" {
				fmt.Fprintf(&b, "   Assignee: %s\n", t.Assignee)
			}
			if t.DueDate != "" {
				fmt.Fprintf(&b, "   Due: %s\n", t.DueDate)
			}
		}
	}

	if len(p.Notes) > 0 {
		b.WriteString("\nNOTES:\n")
		for i, n := range p.Notes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n)
		}
	}
	return b.String()
}

func formatHistory(messages []model.ChatMessage) string {
	if len(messages) == 0 {
		return "No chat history."
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		who := "ASSISTANT"
		if m.Role == model.RoleUser {
			who = "USER"
		}
		lines = append(lines, who+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}

// sessionTitle is the first four words of the opening message
func sessionTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > 4 {
		words = words[:4]
	}
	title := strings.Join(words, " ")
	if r := []rune(title); len(r) > 30 {
		return string(r[:30]) + "..."
	}
	return title
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
