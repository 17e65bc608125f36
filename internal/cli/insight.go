package cli

import (
	"fmt"
	"time"

	"github.com/existflow/devpilot/internal/insight"
	"github.com/spf13/cobra"
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Daily AI briefing",
	Long: `Generate the daily briefing and control when it runs.

The briefing analyses every project and adds an overview, urgent tasks,
deadline alerts and suggestions to the notification list. Scheduled runs
happen at most once per day, after the configured time, while
'devpilot daemon' is running or when 'devpilot insight check' is called.`,
}

var insightNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Generate a briefing immediately",
	RunE:  runInsightNow,
}

var insightCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the scheduled briefing if it is due",
	RunE:  runInsightCheck,
}

var insightEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn on the daily briefing",
	RunE:  runInsightEnable,
}

var insightDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn off the daily briefing",
	RunE:  runInsightDisable,
}

var insightStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daily briefing schedule",
	RunE:  runInsightStatus,
}

var insightTime string

func init() {
	insightEnableCmd.Flags().StringVar(&insightTime, "at", "", "Time of day for the briefing (HH:MM)")

	insightCmd.AddCommand(insightNowCmd)
	insightCmd.AddCommand(insightCheckCmd)
	insightCmd.AddCommand(insightEnableCmd)
	insightCmd.AddCommand(insightDisableCmd)
	insightCmd.AddCommand(insightStatusCmd)
}

func printResult(res *insight.Result) {
	if res.Fallback {
		fmt.Println("⚠️  The assistant's answer could not be read, showing general advice instead.")
	}
	fmt.Printf("✨ Productivity score: %d/100\n", res.Insight.ProductivityScore)
	fmt.Println()
	now := time.Now()
	for _, n := range res.Notifications {
		printNotification(n, now)
	}
	fmt.Println()
	fmt.Printf("✓ Added %d notifications\n", len(res.Notifications))
}

func runInsightNow(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireAPIKey(); err != nil {
		return err
	}

	fmt.Println("🤖 Analysing projects...")
	res, err := app.Scheduler.TriggerNow(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to generate insights: %w", err)
	}
	printResult(res)
	return nil
}

func runInsightCheck(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ran, err := app.Scheduler.CheckAndRun(cmd.Context())
	if err != nil {
		return fmt.Errorf("daily briefing failed: %w", err)
	}
	if !ran {
		st := app.Scheduler.Status()
		if !st.Enabled {
			fmt.Println("Daily briefing is off. Run 'devpilot insight enable' to turn it on.")
		} else {
			fmt.Printf("Not due. Next briefing: %s\n", st.NextCheck.Format("Mon Jan 2 15:04"))
		}
		return nil
	}
	fmt.Println("✓ Daily briefing generated. Run 'devpilot notify' to read it.")
	return nil
}

func runInsightEnable(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if insightTime != "" {
		if err := app.Scheduler.SetDailyTime(insightTime); err != nil {
			return err
		}
	}
	if err := app.Scheduler.Enable(true); err != nil {
		return err
	}

	st := app.Scheduler.Status()
	fmt.Printf("🔔 Daily briefing enabled at %s\n", st.DailyTime)
	if !app.Gemini.Configured() {
		fmt.Println("⚠️  No API key yet. Run 'devpilot config set-key' before the first briefing.")
	}
	return nil
}

func runInsightDisable(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Scheduler.Enable(false); err != nil {
		return err
	}
	fmt.Println("🔕 Daily briefing disabled")
	return nil
}

func runInsightStatus(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	st := app.Scheduler.Status()
	enabled := "off"
	if st.Enabled {
		enabled = "on"
	}
	fmt.Printf("Daily briefing: %s\n", enabled)
	fmt.Printf("Time:           %s\n", st.DailyTime)
	if st.LastRun.IsZero() {
		fmt.Println("Last run:       never")
	} else {
		fmt.Printf("Last run:       %s\n", st.LastRun.Local().Format("Mon Jan 2 15:04"))
	}
	if st.Enabled {
		fmt.Printf("Next run:       %s\n", st.NextCheck.Format("Mon Jan 2 15:04"))
	}
	fmt.Printf("API key:        %s\n", keyState(app.Gemini.Configured()))
	return nil
}

func keyState(configured bool) string {
	if configured {
		return "configured"
	}
	return "missing"
}
