package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/model"
)

// confirm asks a y/N question on stdin
func confirm(question string) bool {
	fmt.Printf("%s (y/N): ", question)
	var response string
	_, _ = fmt.Scanln(&response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}

// shortID trims uuids for table output; any unique prefix is accepted back
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

var urgencyIcons = map[model.Urgency]string{
	model.UrgencyOverdue: "🔴",
	model.UrgencyToday:   "🟠",
	model.UrgencyUrgent:  "🟡",
	model.UrgencyWarning: "🔵",
	model.UrgencyNormal:  "⚪",
	model.UrgencyNone:    "  ",
}

// formatDue renders a due date with its urgency bucket
func formatDue(due string, now time.Time) string {
	if due == "" {
		return "-"
	}
	u := model.Classify(due, now)
	if u == model.UrgencyNone {
		return due
	}
	return fmt.Sprintf("%s %s (%s)", urgencyIcons[u], due, u.Label())
}

var notifyIcons = map[model.NotificationPriority]string{
	model.NotifyUrgent: "🚨",
	model.NotifyHigh:   "❗",
	model.NotifyMedium: "🔔",
	model.NotifyLow:    "💬",
}

func notificationIcon(p model.NotificationPriority) string {
	if icon, ok := notifyIcons[p]; ok {
		return icon
	}
	return "🔔"
}

// relativeTime renders a timestamp as "5m ago" style text
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// progressBar renders 0..100 as a fixed-width bar
func progressBar(progress, width int) string {
	progress = model.ClampProgress(progress)
	filled := progress * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
