package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/devpilot/internal/model"
)

// Color palette
var (
	// Urgency colors
	UrgencyOverdueColor = lipgloss.Color("#FF6B6B") // Red
	UrgencyTodayColor   = lipgloss.Color("#FF8E53") // Deep orange
	UrgencyUrgentColor  = lipgloss.Color("#FFB347") // Orange
	UrgencyWarningColor = lipgloss.Color("#FFE66D") // Yellow
	UrgencyNormalColor  = lipgloss.Color("#4ECDC4") // Blue

	// Status colors
	Completed   = lipgloss.Color("#95E1A3") // Green
	SyncOK      = lipgloss.Color("#95E1A3") // Green
	SyncPending = lipgloss.Color("#FFE66D") // Yellow
	Offline     = lipgloss.Color("#6C757D") // Gray

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Highlight = lipgloss.Color("#C792EA")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	// Panes
	SidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	TaskListStyle = lipgloss.NewStyle().
			Padding(1, 2)

	NotificationPaneStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderLeft(true).
				BorderForeground(Border).
				Padding(1, 1)

	// Items
	ItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	ItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	TaskDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true).
			Padding(0, 1)

	UnreadStyle = lipgloss.NewStyle().Foreground(Text).Bold(true)
	ReadStyle   = lipgloss.NewStyle().Foreground(TextMuted)
	AIBadge     = lipgloss.NewStyle().Foreground(Highlight).Render("✨")

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	SpinnerStyle = lipgloss.NewStyle().Foreground(Highlight)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// UrgencyStyle returns the style for a due-date bucket
func UrgencyStyle(u model.Urgency) lipgloss.Style {
	switch u {
	case model.UrgencyOverdue:
		return lipgloss.NewStyle().Foreground(UrgencyOverdueColor).Bold(true)
	case model.UrgencyToday:
		return lipgloss.NewStyle().Foreground(UrgencyTodayColor).Bold(true)
	case model.UrgencyUrgent:
		return lipgloss.NewStyle().Foreground(UrgencyUrgentColor)
	case model.UrgencyWarning:
		return lipgloss.NewStyle().Foreground(UrgencyWarningColor)
	case model.UrgencyNormal:
		return lipgloss.NewStyle().Foreground(UrgencyNormalColor)
	default:
		return lipgloss.NewStyle().Foreground(TextMuted)
	}
}

// FormatPriority returns a short colored priority badge
func FormatPriority(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return lipgloss.NewStyle().Foreground(UrgencyOverdueColor).Bold(true).Render("H")
	case model.PriorityMedium:
		return lipgloss.NewStyle().Foreground(UrgencyWarningColor).Render("M")
	default:
		return lipgloss.NewStyle().Foreground(UrgencyNormalColor).Render("L")
	}
}

// NotificationStyle returns the title style for a notification priority
func NotificationStyle(p model.NotificationPriority) lipgloss.Style {
	switch p {
	case model.NotifyUrgent:
		return lipgloss.NewStyle().Foreground(UrgencyOverdueColor).Bold(true)
	case model.NotifyHigh:
		return lipgloss.NewStyle().Foreground(UrgencyUrgentColor)
	case model.NotifyMedium:
		return lipgloss.NewStyle().Foreground(UrgencyWarningColor)
	default:
		return lipgloss.NewStyle().Foreground(UrgencyNormalColor)
	}
}
