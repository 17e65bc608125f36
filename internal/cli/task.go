package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/model"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"t"},
	Short:   "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task to a project",
	Long: `Add a task to a project. The default project is used when --project
is not given.

Examples:
  devpilot task add "Write checkout tests" --project storefront
  devpilot task add "Ship beta" -p high -d +3d`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List open tasks across projects, most urgent first",
	Long: `List tasks from every project ordered by urgency: overdue, due today,
due within 3 days, due this week, later, then undated.

Examples:
  devpilot task list
  devpilot task list --search checkout --priority high
  devpilot task list --urgent`,
	RunE: runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task]",
	Short: "Mark a task as done",
	Long: `Mark a task as completed. Tasks are matched by id or unique id prefix.

Examples:
  devpilot task done 9c1e
  devpilot task done 9c1e --undo`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskDone,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [task]",
	Short: "Update task fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskDeleteCmd = &cobra.Command{
	Use:     "delete [task]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskDelete,
}

var (
	taskProject     string
	taskPriority    string
	taskStatus      string
	taskDue         string
	taskDescription string
	taskAssignee    string
	taskTitle       string
	taskTags        []string

	taskListAll    bool
	taskListUrgent bool
	taskListSearch string
	taskDoneUndo   bool
)

func init() {
	for _, c := range []*cobra.Command{taskAddCmd, taskEditCmd} {
		c.Flags().StringVarP(&taskPriority, "priority", "p", "", "Priority (Low, Medium, High)")
		c.Flags().StringVarP(&taskStatus, "status", "s", "", "Status (Todo, In Progress, Review, Done)")
		c.Flags().StringVarP(&taskDue, "due", "d", "", "Due date (YYYY-MM-DD, today, tomorrow, +Nd)")
		c.Flags().StringVar(&taskDescription, "description", "", "Task description")
		c.Flags().StringVarP(&taskAssignee, "assignee", "a", "", "Assignee")
		c.Flags().StringSliceVar(&taskTags, "tag", nil, "Tags (comma separated)")
	}
	for _, c := range []*cobra.Command{taskAddCmd, taskListCmd, taskDoneCmd, taskEditCmd, taskDeleteCmd} {
		c.Flags().StringVarP(&taskProject, "project", "P", "", "Project id or name")
	}
	taskEditCmd.Flags().StringVar(&taskTitle, "title", "", "Rename the task")

	taskListCmd.Flags().BoolVar(&taskListAll, "all", false, "Include done tasks")
	taskListCmd.Flags().BoolVarP(&taskListUrgent, "urgent", "u", false, "Only overdue tasks and tasks due within 3 days")
	taskListCmd.Flags().StringVar(&taskListSearch, "search", "", "Match title, description or project name")
	taskListCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "Only this priority")
	taskListCmd.Flags().StringVarP(&taskStatus, "status", "s", "", "Only this status")

	taskDoneCmd.Flags().BoolVar(&taskDoneUndo, "undo", false, "Mark task as not done")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

// applyTaskFlags copies the changed flags onto t
func applyTaskFlags(cmd *cobra.Command, t *model.Task, now time.Time) error {
	f := cmd.Flags()
	if f.Changed("title") {
		if strings.TrimSpace(taskTitle) == "" {
			return fmt.Errorf("task title cannot be empty")
		}
		t.Title = taskTitle
	}
	if f.Changed("priority") {
		p, err := model.ParsePriority(taskPriority)
		if err != nil {
			return err
		}
		t.Priority = p
	}
	if f.Changed("status") {
		st, err := model.ParseTaskStatus(taskStatus)
		if err != nil {
			return err
		}
		t.Status = st
	}
	if f.Changed("due") {
		due, err := model.NormalizeDueDate(taskDue, now)
		if err != nil {
			return err
		}
		t.DueDate = due
	}
	if f.Changed("description") {
		t.Description = taskDescription
	}
	if f.Changed("assignee") {
		t.Assignee = taskAssignee
	}
	if f.Changed("tag") {
		t.Tags = taskTags
	}
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ref := projectRefOr(app.State, taskProject)
	if ref == "" {
		return fmt.Errorf("no project given, pass --project or run 'devpilot context set <project>'")
	}
	project, err := app.DB.FindProject(cmd.Context(), ref)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	t := model.NewTask(title)
	now := time.Now()
	if err := applyTaskFlags(cmd, &t, now); err != nil {
		return err
	}

	t, err = app.DB.AddTask(cmd.Context(), project.ID, t)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("✓ Added to %s: \"%s\"", project.Name, t.Title)
	if t.DueDate != "" {
		msg += fmt.Sprintf(" (due %s)", formatDue(t.DueDate, now))
	}
	fmt.Println(msg)
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var projects []model.Project
	if taskProject != "" {
		p, err := app.DB.FindProject(cmd.Context(), taskProject)
		if err != nil {
			return err
		}
		projects = []model.Project{*p}
	} else if projects, err = app.DB.ListProjects(cmd.Context()); err != nil {
		return err
	}

	filter := model.TaskFilter{Search: taskListSearch}
	if taskPriority != "" {
		if filter.Priority, err = model.ParsePriority(taskPriority); err != nil {
			return err
		}
	}
	if taskStatus != "" {
		if filter.Status, err = model.ParseTaskStatus(taskStatus); err != nil {
			return err
		}
	}

	now := time.Now()
	var tasks []model.ProjectTask
	if taskListUrgent {
		tasks = append(model.OverdueTasks(projects, now), model.UrgentTasks(projects, now)...)
	} else {
		tasks = model.CollectTasks(projects, taskListAll || filter.Status == model.TaskDone, now)
	}
	tasks = model.FilterTasks(tasks, filter)
	model.SortTasksByUrgency(tasks, now)

	if len(tasks) == 0 {
		fmt.Println("✨ No tasks! You're all caught up.")
		return nil
	}

	fmt.Println()
	for _, t := range tasks {
		check := "○"
		if t.IsDone() {
			check = "✓"
		}
		fmt.Printf("  %s %s %-8s  %-36s  %-18s  %-6s  %s\n",
			urgencyIcons[t.Urgency], check, shortID(t.ID), truncate(t.Title, 36),
			truncate(t.ProjectName, 18), t.Priority, dueLabel(t, now))
	}
	fmt.Println()
	fmt.Printf("  %d tasks\n\n", len(tasks))
	return nil
}

func dueLabel(t model.ProjectTask, now time.Time) string {
	if t.DueDate == "" {
		return ""
	}
	due, ok := model.ParseDueDate(t.DueDate, now.Location())
	if !ok {
		return t.DueDate
	}
	days := model.DaysUntil(due, now)
	switch {
	case days < 0:
		return fmt.Sprintf("%s (%dd overdue)", t.DueDate, -days)
	case days == 0:
		return t.DueDate + " (today)"
	default:
		return fmt.Sprintf("%s (in %dd)", t.DueDate, days)
	}
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	project, task, err := app.DB.FindTask(cmd.Context(), taskProject, args[0])
	if err != nil {
		return err
	}

	if taskDoneUndo {
		task.Status = model.TaskTodo
	} else {
		task.Status = model.TaskDone
	}
	if err := app.DB.UpdateTask(cmd.Context(), project.ID, *task); err != nil {
		return err
	}

	if taskDoneUndo {
		fmt.Printf("○ Reopened: \"%s\"\n", task.Title)
	} else {
		fmt.Printf("✓ Completed: \"%s\"\n", task.Title)
	}
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	project, task, err := app.DB.FindTask(cmd.Context(), taskProject, args[0])
	if err != nil {
		return err
	}
	if err := applyTaskFlags(cmd, task, time.Now()); err != nil {
		return err
	}
	if err := app.DB.UpdateTask(cmd.Context(), project.ID, *task); err != nil {
		return err
	}

	fmt.Printf("✓ Updated: \"%s\"\n", task.Title)
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	project, task, err := app.DB.FindTask(cmd.Context(), taskProject, args[0])
	if err != nil {
		return err
	}
	if err := app.DB.DeleteTask(cmd.Context(), project.ID, task.ID); err != nil {
		return err
	}

	fmt.Printf("🗑️  Deleted: \"%s\"\n", task.Title)
	MaybeSyncAfterChange(cmd.Context(), app.DB)
	return nil
}
