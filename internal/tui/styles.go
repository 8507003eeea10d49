package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/popsched/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	badgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true)
)

// priorityColor returns the accent colour for a priority.
func priorityColor(p model.Priority) lipgloss.Color {
	switch p {
	case model.PriorityEmergency:
		return lipgloss.Color("9")
	case model.PriorityHigh:
		return lipgloss.Color("11")
	case model.PriorityMiddle:
		return lipgloss.Color("12")
	default:
		return lipgloss.Color("8")
	}
}

// currentBox frames the displayed popup.
func currentBox(p model.Priority, width int) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(priorityColor(p)).
		Padding(0, 1)
	if width > 4 {
		s = s.Width(width - 2)
	}
	return s
}

func stateBadge(snap model.Snapshot) string {
	if snap.Suspended {
		return badgeStyle.
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("11")).
			Render("SUSPENDED")
	}
	return badgeStyle.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("10")).
		Render("RUNNING")
}
