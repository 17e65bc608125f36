package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/devpilot/internal/model"
)

const (
	sidebarWidth = 26
	notifyWidth  = 38
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sidebar := m.renderSidebar()
	taskList := m.renderTaskList()
	notifications := m.renderNotifications()
	statusBar := m.renderStatusBar()

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, taskList, notifications)

	if m.mode == ModeAddTask || m.mode == ModeAddProject || m.mode == ModeEditTask {
		mainContent = lipgloss.Place(
			m.width, m.height-2,
			lipgloss.Center, lipgloss.Center,
			m.renderModal(),
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	if m.mode == ModeHelp {
		mainContent = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func (m Model) paneHeight() int {
	return max(m.height-3, 1)
}

func (m Model) taskWidth() int {
	return max(m.width-sidebarWidth-notifyWidth-2, 20)
}

func (m Model) renderSidebar() string {
	var s strings.Builder

	s.WriteString(HeaderStyle.Render("DevPilot") + "\n")
	s.WriteString(HelpStyle.Render(m.now().Format("Mon Jan 2 15:04")) + "\n")
	s.WriteString(lipgloss.NewStyle().Foreground(Border).Render(repeat("─", sidebarWidth-4)) + "\n\n")

	if len(m.projects) == 0 {
		s.WriteString(HelpStyle.Render("No projects.\nPress 'p' to add one."))
	}

	for i, p := range m.projects {
		cursor := "  "
		style := ItemStyle
		if i == m.projCursor {
			cursor = "❯ "
			if m.pane == PaneProjects {
				style = ItemSelectedStyle
			}
		}
		line := fmt.Sprintf("%s%-12s %d/%d", cursor, truncate(p.Name, 12), p.DoneTaskCount(), len(p.Tasks))
		s.WriteString(style.Render(line) + "\n")
	}

	if p := m.currentProject(); p != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(Border).Render(repeat("─", sidebarWidth-4)) + "\n")
		s.WriteString(HelpStyle.Render(truncate(string(p.Status), sidebarWidth-4)) + "\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("%s %d%%", progressBar(p.Progress, 10), p.Progress)) + "\n")
		if p.DueDate != "" {
			u := model.Classify(p.DueDate, m.now())
			s.WriteString(UrgencyStyle(u).Render("due "+dueText(p.DueDate, m.now())) + "\n")
		}
	}

	return SidebarStyle.Width(sidebarWidth).Height(m.paneHeight()).Render(s.String())
}

func (m Model) renderTaskList() string {
	width := m.taskWidth()
	var s strings.Builder

	header := "All projects"
	if !m.allTasks {
		proj := m.currentProject()
		if proj == nil {
			return TaskListStyle.Width(width).Height(m.paneHeight()).Render(HelpStyle.Render("No project selected"))
		}
		header = proj.Name
	}

	open := 0
	for _, t := range m.tasks {
		if !t.IsDone() {
			open++
		}
	}
	header = fmt.Sprintf("%s (%d open)", header, open)
	if m.filterText != "" {
		header += fmt.Sprintf("  /%s", m.filterText)
	}
	s.WriteString(HeaderStyle.Render(header) + "\n")
	s.WriteString(lipgloss.NewStyle().Foreground(Border).Render(repeat("─", width-4)) + "\n\n")

	if len(m.tasks) == 0 {
		s.WriteString(HelpStyle.Render("  No tasks. Press 'a' to add one."))
	}

	now := m.now()
	titleWidth := max(width-26, 10)
	if m.allTasks {
		titleWidth = max(titleWidth-12, 10)
	}
	for i, t := range m.tasks {
		cursor := "  "
		style := ItemStyle
		if i == m.taskCursor && m.pane == PaneTasks {
			cursor = "❯ "
			style = ItemSelectedStyle
		}

		icon := "[ ]"
		if t.IsDone() {
			icon = "[x]"
			style = TaskDoneStyle
		} else if t.Status == model.TaskInProgress || t.Status == model.TaskReview {
			icon = "[~]"
		}

		title := t.Title
		if m.allTasks {
			title = fmt.Sprintf("%-11s %s", truncate(t.ProjectName, 11), title)
			title = truncate(title, titleWidth+12)
		} else {
			title = truncate(title, titleWidth)
		}

		due := strings.Repeat(" ", 9)
		if !t.IsDone() && t.DueDate != "" {
			due = UrgencyStyle(t.Urgency).Render(fmt.Sprintf("%-9s", dueText(t.DueDate, now)))
		}

		line := style.Render(fmt.Sprintf("%s%s %s", cursor, icon, title))
		pad := max(width-lipgloss.Width(line)-16, 1)
		s.WriteString(line + strings.Repeat(" ", pad) + due + " " + FormatPriority(t.Priority) + "\n")
	}

	return TaskListStyle.Width(width).Height(m.paneHeight()).Render(s.String())
}

func (m Model) renderNotifications() string {
	var s strings.Builder

	unread := 0
	if m.svc.Notifications != nil {
		unread = m.svc.Notifications.UnreadCount()
	}
	header := "Notifications"
	if unread > 0 {
		header = fmt.Sprintf("Notifications (%d)", unread)
	}
	if m.generating {
		header += " " + m.spinner.View()
	}
	s.WriteString(HeaderStyle.Render(header) + "\n")
	s.WriteString(lipgloss.NewStyle().Foreground(Border).Render(repeat("─", notifyWidth-4)) + "\n\n")

	if len(m.notifications) == 0 {
		s.WriteString(HelpStyle.Render("Nothing yet.\nPress 'g' for a briefing."))
	}

	now := m.now()
	textWidth := notifyWidth - 6
	// each entry takes three lines
	limit := max((m.paneHeight()-4)/3, 1)
	start := 0
	if m.notifyCursor >= limit {
		start = m.notifyCursor - limit + 1
	}
	for i := start; i < len(m.notifications) && i < start+limit; i++ {
		n := m.notifications[i]
		cursor := "  "
		if i == m.notifyCursor && m.pane == PaneNotifications {
			cursor = "❯ "
		}
		badge := " "
		if n.AIGenerated {
			badge = AIBadge
		}

		title := truncate(n.Title, textWidth-6)
		titleStyle := NotificationStyle(n.Priority)
		bodyStyle := UnreadStyle
		if n.Read {
			titleStyle = ReadStyle
			bodyStyle = ReadStyle
		}

		s.WriteString(fmt.Sprintf("%s%s %s %s\n", cursor, badge, titleStyle.Render(title), HelpStyle.Render(ago(n.Timestamp, now))))
		s.WriteString("    " + bodyStyle.Render(truncate(n.Message, textWidth)) + "\n\n")
	}

	return NotificationPaneStyle.Width(notifyWidth).Height(m.paneHeight()).Render(s.String())
}

func (m Model) renderStatusBar() string {
	if m.mode == ModeFilter {
		return StatusBarStyle.Width(m.width).Render("/" + m.input.View() + fmt.Sprintf("  [%d]", len(m.tasks)))
	}

	help := "a:add  e:edit  x:done  d:del  1-3:priority  /:search  u:all  g:briefing  ?:help  q:quit"
	if m.generating {
		help = m.spinner.View() + " Generating briefing... (esc to cancel)"
	} else if m.message != "" {
		help = m.message
	}

	syncMsg := ""
	if m.watcher != nil {
		if m.watcher.IsPending() {
			syncMsg = lipgloss.NewStyle().Foreground(SyncPending).Render("Syncing...")
		} else {
			syncMsg = lipgloss.NewStyle().Foreground(SyncOK).Render("Synced")
		}
	} else if m.svc.Sync != nil {
		syncMsg = lipgloss.NewStyle().Foreground(Offline).Render("Local only")
	}

	gap := max(m.width-lipgloss.Width(help)-lipgloss.Width(syncMsg)-4, 1)
	return StatusBarStyle.Width(m.width).Render(help + strings.Repeat(" ", gap) + syncMsg)
}

func (m Model) renderModal() string {
	title := "New Task"
	switch m.mode {
	case ModeAddProject:
		title = "New Project"
	case ModeEditTask:
		title = "Edit Task"
	}

	content := HeaderStyle.Render(title) + "\n\n" +
		m.input.View() + "\n\n" +
		HelpStyle.Render("enter: save  esc: cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render("Keyboard shortcuts") + "\n\n")
	for _, group := range helpGroups() {
		for _, b := range group {
			h := b.Help()
			s.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, HelpStyle.Render(h.Desc)))
		}
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("Press any key to close"))

	return lipgloss.Place(
		m.width, m.height-2,
		lipgloss.Center, lipgloss.Center,
		ModalStyle.Render(s.String()),
	)
}

// progressBar draws a fixed-width bar for a 0..100 value
func progressBar(progress, width int) string {
	filled := model.ClampProgress(progress) * width / 100
	return repeat("█", filled) + repeat("░", width-filled)
}
