package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/model"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show portfolio statistics",
	RunE:  runStats,
}

var calendarCmd = &cobra.Command{
	Use:     "calendar [YYYY-MM]",
	Aliases: []string{"cal"},
	Short:   "Show project and task deadlines for a month",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runCalendar,
}

var calendarUpcoming bool

func init() {
	calendarCmd.Flags().BoolVar(&calendarUpcoming, "upcoming", false, "List open deadlines from today on instead of a month grid")
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	projects, err := app.DB.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	now := time.Now()
	ps := model.ComputeProjectStats(projects, now)
	ts := model.ComputeTaskStats(projects, now)

	fmt.Println()
	fmt.Println("📊 Projects")
	fmt.Printf("   Total %d   Active %d   Completed %d   Overdue %d\n",
		ps.Total, ps.Active, ps.Completed, ps.Overdue)
	fmt.Printf("   Average progress %s %d%%\n", progressBar(ps.AverageProgress, 20), ps.AverageProgress)
	for _, st := range model.ProjectStatuses {
		fmt.Printf("   %-16s %d\n", st, ps.ByStatus[st])
	}

	fmt.Println()
	fmt.Println("✅ Tasks")
	for _, st := range model.TaskStatuses {
		fmt.Printf("   %-16s %d\n", st, ts.ByStatus[st])
	}
	fmt.Println()
	fmt.Printf("   %s Overdue    %d\n", urgencyIcons[model.UrgencyOverdue], ts.Overdue)
	fmt.Printf("   %s Due today  %d\n", urgencyIcons[model.UrgencyToday], ts.Today)
	fmt.Printf("   %s Due soon   %d\n", urgencyIcons[model.UrgencyUrgent], ts.Urgent)
	fmt.Printf("   %s This week  %d\n", urgencyIcons[model.UrgencyWarning], ts.Warning)
	fmt.Println()
	return nil
}

func runCalendar(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	projects, err := app.DB.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	now := time.Now()
	events := model.CalendarEvents(projects)

	if calendarUpcoming {
		printUpcoming(events, now)
		return nil
	}

	month := now
	if len(args) == 1 {
		month, err = time.ParseInLocation("2006-01", args[0], now.Location())
		if err != nil {
			return fmt.Errorf("invalid month %q (use YYYY-MM)", args[0])
		}
	}

	printMonth(events, month, now)
	return nil
}

func printMonth(events []model.CalendarEvent, month, now time.Time) {
	fmt.Println()
	fmt.Printf("   %s\n", month.Format("January 2006"))
	fmt.Println("   Mo  Tu  We  Th  Fr  Sa  Su")
	for _, week := range model.MonthGrid(month.Year(), month.Month(), now.Location()) {
		var b strings.Builder
		b.WriteString("  ")
		for _, day := range week {
			if day.IsZero() {
				b.WriteString("    ")
				continue
			}
			mark := " "
			if len(model.EventsOn(events, day)) > 0 {
				mark = "*"
			}
			if day.Format(model.DateLayout) == now.Format(model.DateLayout) {
				mark = "<"
			}
			fmt.Fprintf(&b, " %2d%s", day.Day(), mark)
		}
		fmt.Println(b.String())
	}
	fmt.Println()

	prefix := month.Format("2006-01")
	found := false
	for _, e := range events {
		if !strings.HasPrefix(e.Date, prefix) {
			continue
		}
		found = true
		printEvent(e, now)
	}
	if !found {
		fmt.Println("   No deadlines this month.")
	}
	fmt.Println()
}

func printUpcoming(events []model.CalendarEvent, now time.Time) {
	today := now.Format(model.DateLayout)
	found := false
	fmt.Println()
	for _, e := range events {
		if e.Done || e.Date < today {
			continue
		}
		found = true
		printEvent(e, now)
	}
	if !found {
		fmt.Println("   No upcoming deadlines.")
	}
	fmt.Println()
}

func printEvent(e model.CalendarEvent, now time.Time) {
	kind := "📁"
	if e.Kind == model.EventTask {
		kind = "•"
	}
	status := ""
	if e.Done {
		status = " ✓"
	}
	fmt.Printf("   %s %s %s %s%s  (%s)\n",
		urgencyIcons[e.Urgency(now)], e.Date[:min(len(e.Date), 10)], kind, e.Title, status, e.ProjectName)
}
