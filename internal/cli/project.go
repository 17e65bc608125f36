package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/model"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"p"},
	Short:   "Manage projects",
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project",
	Long: `Create a new project.

Examples:
  devpilot project new "Storefront" --category "Web App" --priority high
  devpilot project new "Docs site" --due +14d --tech hugo,tailwind`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all projects",
	RunE:    runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show a project with its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectEditCmd = &cobra.Command{
	Use:   "edit [project]",
	Short: "Update project fields",
	Long: `Update project fields. Only the flags given are changed.

Examples:
  devpilot project edit storefront --status "In Development" --progress 40
  devpilot project edit 3f2a --note "Waiting on design review"`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectEdit,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project]",
	Aliases: []string{"rm"},
	Short:   "Delete a project and its tasks",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

// projectFlags are shared by new and edit
type projectFlags struct {
	name         string
	description  string
	status       string
	priority     string
	category     string
	due          string
	technologies []string
	repository   string
	deployURL    string
	progress     int
	note         string
}

var (
	projectOpts       projectFlags
	projectListStatus string
	projectForce      bool
)

func init() {
	for _, c := range []*cobra.Command{projectNewCmd, projectEditCmd} {
		c.Flags().StringVarP(&projectOpts.description, "description", "d", "", "Project description")
		c.Flags().StringVarP(&projectOpts.status, "status", "s", "", "Status (Planning, In Development, Testing, Deployed, Maintenance)")
		c.Flags().StringVarP(&projectOpts.priority, "priority", "p", "", "Priority (Low, Medium, High)")
		c.Flags().StringVarP(&projectOpts.category, "category", "c", "", "Category (Web App, Landing Page, Platform, Tool)")
		c.Flags().StringVar(&projectOpts.due, "due", "", "Due date (YYYY-MM-DD, today, tomorrow, +Nd)")
		c.Flags().StringSliceVarP(&projectOpts.technologies, "tech", "t", nil, "Technologies (comma separated)")
		c.Flags().StringVar(&projectOpts.repository, "repo", "", "Repository URL")
		c.Flags().StringVar(&projectOpts.deployURL, "deploy-url", "", "Deployment URL")
	}
	projectEditCmd.Flags().StringVar(&projectOpts.name, "name", "", "Rename the project")
	projectEditCmd.Flags().IntVar(&projectOpts.progress, "progress", 0, "Progress percentage (0-100)")
	projectEditCmd.Flags().StringVar(&projectOpts.note, "note", "", "Append a note")

	projectListCmd.Flags().StringVarP(&projectListStatus, "status", "s", "", "Only projects with this status")
	projectDeleteCmd.Flags().BoolVarP(&projectForce, "force", "f", false, "Do not ask for confirmation")

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectEditCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectGenerateCmd)
}

// applyProjectFlags copies the changed flags onto p
func applyProjectFlags(cmd *cobra.Command, p *model.Project, now time.Time) error {
	f := cmd.Flags()
	if f.Changed("name") {
		if strings.TrimSpace(projectOpts.name) == "" {
			return fmt.Errorf("project name cannot be empty")
		}
		p.Name = projectOpts.name
	}
	if f.Changed("description") {
		p.Description = projectOpts.description
	}
	if f.Changed("status") {
		st, err := model.ParseProjectStatus(projectOpts.status)
		if err != nil {
			return err
		}
		p.Status = st
	}
	if f.Changed("priority") {
		pr, err := model.ParsePriority(projectOpts.priority)
		if err != nil {
			return err
		}
		p.Priority = pr
	}
	if f.Changed("category") {
		c, err := model.ParseCategory(projectOpts.category)
		if err != nil {
			return err
		}
		p.Category = c
	}
	if f.Changed("due") {
		due, err := model.NormalizeDueDate(projectOpts.due, now)
		if err != nil {
			return err
		}
		p.DueDate = due
	}
	if f.Changed("tech") {
		p.Technologies = projectOpts.technologies
	}
	if f.Changed("repo") {
		p.Repository = projectOpts.repository
	}
	if f.Changed("deploy-url") {
		p.DeployURL = projectOpts.deployURL
	}
	if f.Changed("progress") {
		p.Progress = model.ClampProgress(projectOpts.progress)
	}
	if f.Changed("note") && strings.TrimSpace(projectOpts.note) != "" {
		p.Notes = append(p.Notes, projectOpts.note)
	}
	return nil
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	p := model.NewProject(name)
	if err := applyProjectFlags(cmd, &p, time.Now()); err != nil {
		return err
	}
	if err := app.DB.SaveProject(cmd.Context(), &p); err != nil {
		return err
	}

	fmt.Printf("✓ Created project: %s (id: %s)\n", p.Name, shortID(p.ID))
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	projects, err := app.DB.ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	if projectListStatus != "" {
		st, err := model.ParseProjectStatus(projectListStatus)
		if err != nil {
			return err
		}
		filtered := projects[:0]
		for _, p := range projects {
			if p.Status == st {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	now := time.Now()
	current := currentContext(app.State)

	fmt.Println()
	fmt.Printf("  %-8s  %-24s  %-14s  %-6s  %-12s  %-7s  %s\n",
		"ID", "Name", "Status", "Prio", "Progress", "Tasks", "Due")
	fmt.Println(strings.Repeat("─", 100))

	totalOpen := 0
	for _, p := range projects {
		marker := " "
		if p.ID == current {
			marker = "❯"
		}
		open := p.ActiveTaskCount()
		totalOpen += open
		fmt.Printf("%s %-8s  %-24s  %-14s  %-6s  %s %3d%%  %3d/%-3d  %s\n",
			marker, shortID(p.ID), truncate(p.Name, 24), p.Status, p.Priority,
			progressBar(p.Progress, 6), model.ClampProgress(p.Progress),
			open, len(p.Tasks), formatDue(p.DueDate, now))
	}

	fmt.Println(strings.Repeat("─", 100))
	fmt.Printf("  %d projects, %d open tasks\n\n", len(projects), totalOpen)
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.DB.FindProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	now := time.Now()

	fmt.Println()
	fmt.Printf("📁 %s  (%s)\n", p.Name, p.ID)
	if p.Description != "" {
		fmt.Printf("   %s\n", p.Description)
	}
	fmt.Println()
	fmt.Printf("   Status:    %s\n", p.Status)
	fmt.Printf("   Priority:  %s\n", p.Priority)
	fmt.Printf("   Category:  %s\n", p.Category)
	fmt.Printf("   Progress:  %s %d%%\n", progressBar(p.Progress, 20), model.ClampProgress(p.Progress))
	fmt.Printf("   Due:       %s\n", formatDue(p.DueDate, now))
	if len(p.Technologies) > 0 {
		fmt.Printf("   Tech:      %s\n", strings.Join(p.Technologies, ", "))
	}
	if p.Repository != "" {
		fmt.Printf("   Repo:      %s\n", p.Repository)
	}
	if p.DeployURL != "" {
		fmt.Printf("   Deployed:  %s\n", p.DeployURL)
	}

	fmt.Println()
	fmt.Printf("   Tasks (%d open, %d done)\n", p.ActiveTaskCount(), p.DoneTaskCount())
	for _, t := range p.Tasks {
		check := "○"
		if t.IsDone() {
			check = "✓"
		}
		fmt.Printf("   %s %-8s  %-36s  %-11s  %-6s  %s\n",
			check, shortID(t.ID), truncate(t.Title, 36), t.Status, t.Priority, formatDue(t.DueDate, now))
	}

	if len(p.Notes) > 0 {
		fmt.Println()
		fmt.Println("   Notes")
		for _, n := range p.Notes {
			fmt.Printf("   • %s\n", n)
		}
	}
	fmt.Println()
	return nil
}

func runProjectEdit(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ref, err := app.DB.FindProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	p, err := app.DB.MutateProject(cmd.Context(), ref.ID, func(p *model.Project) error {
		return applyProjectFlags(cmd, p, time.Now())
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Updated project: %s\n", p.Name)
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.DB.FindProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if app.Config.ConfirmDelete && !projectForce &&
		!confirm(fmt.Sprintf("Delete %q and its %d tasks?", p.Name, len(p.Tasks))) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := app.DB.DeleteProject(cmd.Context(), p.ID); err != nil {
		return err
	}

	if currentContext(app.State) == p.ID {
		_ = app.State.Delete(localstate.KeyDefaultProject)
	}

	fmt.Printf("🗑️  Deleted project: %s\n", p.Name)
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}
