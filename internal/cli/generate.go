package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
	"github.com/spf13/cobra"
)

var projectGenerateCmd = &cobra.Command{
	Use:   "generate [name]",
	Short: "Draft a project plan with the assistant",
	Long: `Ask the assistant to draft a project: description, tasks with
estimates, suggested technologies and complexity. The draft is saved as a
new Planning project unless --dry-run is given.

Examples:
  devpilot project generate "Recipe box" --idea "share family recipes" --tech go,htmx
  devpilot project generate "Status page" --category Tool --timeline "2 weeks" --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectGenerate,
}

var (
	generateIdea     string
	generateCategory string
	generateTech     []string
	generateTimeline string
	generatePriority string
	generateDryRun   bool
)

func init() {
	projectGenerateCmd.Flags().StringVarP(&generateIdea, "idea", "i", "", "What the project should do")
	projectGenerateCmd.Flags().StringVarP(&generateCategory, "category", "c", string(model.CategoryWebApp), "Category (Web App, Landing Page, Platform, Tool)")
	projectGenerateCmd.Flags().StringSliceVarP(&generateTech, "tech", "t", nil, "Technologies to use (comma separated)")
	projectGenerateCmd.Flags().StringVar(&generateTimeline, "timeline", "", "Target timeline, e.g. \"1 month\"")
	projectGenerateCmd.Flags().StringVarP(&generatePriority, "priority", "p", string(model.PriorityMedium), "Priority (Low, Medium, High)")
	projectGenerateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print the draft without saving it")
}

func runProjectGenerate(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireAPIKey(); err != nil {
		return err
	}

	req := model.ProjectRequest{
		Name:         strings.TrimSpace(args[0]),
		Idea:         generateIdea,
		Technologies: generateTech,
		Timeline:     generateTimeline,
	}
	if req.Category, err = model.ParseCategory(generateCategory); err != nil {
		return err
	}
	if req.Priority, err = model.ParsePriority(generatePriority); err != nil {
		return err
	}

	fmt.Println("🤖 Drafting project plan...")
	draft, err := app.Drafter.Draft(cmd.Context(), req)
	if err != nil {
		logger.Error("Project draft failed", logger.F("name", req.Name), logger.Err(err))
		return err
	}

	p := draft.ToProject(req, time.Now())

	fmt.Println()
	fmt.Printf("📁 %s\n", p.Name)
	fmt.Printf("   %s\n\n", p.Description)
	if draft.EstimatedDuration != "" || draft.Complexity != "" {
		fmt.Printf("   Duration: %s   Complexity: %s\n", draft.EstimatedDuration, draft.Complexity)
	}
	if len(p.Technologies) > 0 {
		fmt.Printf("   Tech:     %s\n", strings.Join(p.Technologies, ", "))
	}
	fmt.Println()
	for i, t := range p.Tasks {
		fmt.Printf("   %2d. %-40s  %-6s  due %s\n", i+1, truncate(t.Title, 40), t.Priority, t.DueDate)
	}
	fmt.Println()

	if generateDryRun {
		fmt.Println("Dry run, nothing saved.")
		return nil
	}

	if err := app.DB.SaveProject(cmd.Context(), &p); err != nil {
		return err
	}
	fmt.Printf("✓ Created project: %s (id: %s, %d tasks)\n", p.Name, shortID(p.ID), len(p.Tasks))
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}
