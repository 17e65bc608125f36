package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/model"
	"github.com/existflow/devpilot/internal/notify"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:     "notify",
	Aliases: []string{"n"},
	Short:   "Show and manage notifications",
	RunE:    runNotifyList,
}

var notifyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notifications, newest first",
	RunE:    runNotifyList,
}

var notifyReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyRead,
}

var notifyReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	RunE:  runNotifyReadAll,
}

var notifyDeleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a notification",
	Args:    cobra.ExactArgs(1),
	RunE:    runNotifyDelete,
}

var notifyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete notifications older than a number of days",
	RunE:  runNotifyPrune,
}

var notifyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every notification",
	RunE:  runNotifyClear,
}

var notifyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the assistant for a fresh briefing now",
	RunE:  runInsightNow,
}

var (
	notifyUnread bool
	notifyLimit  int
	notifyDays   int
)

func init() {
	for _, c := range []*cobra.Command{notifyCmd, notifyListCmd} {
		c.Flags().BoolVarP(&notifyUnread, "unread", "u", false, "Only unread notifications")
		c.Flags().IntVarP(&notifyLimit, "limit", "l", 20, "Maximum number of notifications to show")
	}
	notifyPruneCmd.Flags().IntVar(&notifyDays, "days", int(notify.DefaultPruneAge/(24*time.Hour)), "Age in days")

	notifyCmd.AddCommand(notifyListCmd)
	notifyCmd.AddCommand(notifyReadCmd)
	notifyCmd.AddCommand(notifyReadAllCmd)
	notifyCmd.AddCommand(notifyDeleteCmd)
	notifyCmd.AddCommand(notifyPruneCmd)
	notifyCmd.AddCommand(notifyClearCmd)
	notifyCmd.AddCommand(notifyGenerateCmd)
}

// resolveNotification matches an id or unique id prefix
func resolveNotification(store *notify.Store, ref string) (model.Notification, error) {
	var matches []model.Notification
	for _, n := range store.List() {
		if n.ID == ref {
			return n, nil
		}
		if strings.HasPrefix(n.ID, ref) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return model.Notification{}, fmt.Errorf("notification %q: %w", ref, notify.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return model.Notification{}, fmt.Errorf("notification reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func printNotification(n model.Notification, now time.Time) {
	marker := "●"
	if n.Read {
		marker = " "
	}
	ai := ""
	if n.AIGenerated {
		ai = " ✨"
	}
	fmt.Printf("%s %s %-8s  %s%s  (%s)\n", marker, notificationIcon(n.Priority), shortID(n.ID), n.Title, ai, relativeTime(n.Timestamp, now))
	for _, line := range strings.Split(strings.TrimSpace(n.Message), "\n") {
		fmt.Printf("              %s\n", line)
	}
}

func runNotifyList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	items := app.Notifications.List()
	now := time.Now()

	fmt.Println()
	shown := 0
	for _, n := range items {
		if notifyUnread && n.Read {
			continue
		}
		if notifyLimit > 0 && shown >= notifyLimit {
			break
		}
		printNotification(n, now)
		shown++
	}
	if shown == 0 {
		fmt.Println("🔕 No notifications.")
	}
	fmt.Println()
	fmt.Printf("  %d notifications, %d unread\n\n", len(items), app.Notifications.UnreadCount())
	return nil
}

func runNotifyRead(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := resolveNotification(app.Notifications, args[0])
	if err != nil {
		return err
	}
	if err := app.Notifications.MarkRead(n.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Read: %s\n", n.Title)
	return nil
}

func runNotifyReadAll(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	unread := app.Notifications.UnreadCount()
	if err := app.Notifications.MarkAllRead(); err != nil {
		return err
	}
	fmt.Printf("✓ Marked %d notifications as read\n", unread)
	return nil
}

func runNotifyDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := resolveNotification(app.Notifications, args[0])
	if err != nil {
		return err
	}
	if err := app.Notifications.Delete(n.ID); err != nil {
		return err
	}
	fmt.Printf("🗑️  Deleted: %s\n", n.Title)
	return nil
}

func runNotifyPrune(cmd *cobra.Command, args []string) error {
	if notifyDays < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	removed, err := app.Notifications.DeleteOlderThan(time.Duration(notifyDays) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("🧹 Removed %d notifications older than %d days\n", removed, notifyDays)
	return nil
}

func runNotifyClear(cmd *cobra.Command, args []string) error {
	if !confirm("Delete every notification?") {
		fmt.Println("Aborted.")
		return nil
	}
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Notifications.Clear(); err != nil {
		return err
	}
	fmt.Println("🧹 Notifications cleared")
	return nil
}
