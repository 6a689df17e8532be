package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"velaris/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A623"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	youStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58A6FF"))
	tutorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A623"))
)

var severityStyles = map[domain.Severity]lipgloss.Style{
	domain.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#58A6FF")),
	domain.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922")),
	domain.SeverityDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")),
	domain.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")),
}

var riskStyles = map[domain.RiskLevel]lipgloss.Style{
	domain.RiskLow:    upStyle,
	domain.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922")),
	domain.RiskHigh:   downStyle,
}

func formatPrice(p float64) string {
	switch {
	case p >= 1:
		return "$" + strconv.FormatFloat(p, 'f', 2, 64)
	case p >= 0.01:
		return "$" + strconv.FormatFloat(p, 'f', 4, 64)
	default:
		return "$" + strconv.FormatFloat(p, 'g', 4, 64)
	}
}

func compact(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// colored renders a percentage green or red by sign.
func colored(v float64) string {
	if v < 0 {
		return downStyle.Render(percent(v))
	}
	return upStyle.Render(percent(v))
}
