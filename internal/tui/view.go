package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *AppModel) View() string {
	var body string
	switch m.view {
	case viewDetail:
		body = m.detailView()
	case viewChat:
		body = m.chatView()
	default:
		body = m.marketsView()
	}

	parts := []string{m.header(), body}
	if m.err != nil {
		parts = append(parts, errStyle.Render("error: "+m.err.Error()))
	}
	parts = append(parts, dimStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *AppModel) header() string {
	title := titleStyle.Render("velaris")
	if m.svc.Username != "" {
		title += dimStyle.Render(" · " + m.svc.Username)
	}
	status := ""
	switch {
	case m.loading || m.waiting:
		status = m.spinner.View() + " loading"
	case !m.updated.IsZero():
		status = "updated " + m.updated.Format("15:04:05")
	}
	return title + "  " + dimStyle.Render(status) + "\n"
}

func (m *AppModel) help() string {
	switch m.view {
	case viewDetail:
		return "esc back · r refresh · c chat · q quit"
	case viewChat:
		return "enter send · pgup/pgdown scroll · esc back"
	}
	if m.searching {
		return "enter apply · esc clear"
	}
	keys := "↑/↓ move · enter details · / search · r refresh"
	if m.svc.Advisor != nil {
		keys += " · c chat"
	}
	return keys + " · q quit"
}

func (m *AppModel) marketsView() string {
	var sb strings.Builder
	if m.searching || m.search.Value() != "" {
		sb.WriteString(m.search.View() + "\n")
	}
	if len(m.coins) == 0 && m.loading {
		sb.WriteString("Fetching markets...\n")
		return sb.String()
	}
	if len(m.visible) == 0 && len(m.coins) > 0 {
		sb.WriteString(dimStyle.Render("No coins match.") + "\n")
		return sb.String()
	}
	sb.WriteString(m.table.View() + "\n")
	return sb.String()
}

func (m *AppModel) detailView() string {
	if m.detail == nil {
		if m.loading {
			return "Loading coin...\n"
		}
		return ""
	}
	s := m.detail.snap
	in := m.detail.insight

	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	stats := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("%s (%s)", s.Name, strings.ToUpper(s.Symbol))),
		row("Rank", fmt.Sprintf("#%d", s.MarketRank)),
		row("Price", formatPrice(s.Price)),
		row("Change 1h", colored(s.Change1h)),
		row("Change 24h", colored(s.Change24h)),
		row("Change 7d", colored(s.Change7d)),
		row("Market cap", compact(s.MarketCap)),
		row("Volume 24h", compact(s.Volume24h)),
		row("ATH", formatPrice(s.ATH)),
	)

	risk, ok := riskStyles[in.RiskLevel]
	if !ok {
		risk = dimStyle
	}
	var whales strings.Builder
	whales.WriteString(titleStyle.Render("Whale watch") + "  " + risk.Render(strings.ToUpper(string(in.RiskLevel))+" RISK") + "\n")
	whales.WriteString(in.Summary + "\n")
	for _, sig := range in.Signals {
		style, ok := severityStyles[sig.Severity]
		if !ok {
			style = dimStyle
		}
		whales.WriteString(fmt.Sprintf("\n%s %s\n  %s",
			style.Render("●"),
			sig.Message,
			dimStyle.Render(fmt.Sprintf("%s · %.0f%% confidence", sig.Indicator, sig.Confidence*100)),
		))
	}
	whales.WriteString("\n\n" + in.Recommendation)

	return boxStyle.Render(stats) + "\n" + boxStyle.Render(whales.String()) + "\n"
}

func (m *AppModel) chatView() string {
	var sb strings.Builder
	if len(m.transcript) == 0 {
		sb.WriteString(dimStyle.Render("Ask anything about crypto. Replies are educational, not financial advice.") + "\n\n")
	} else {
		sb.WriteString(m.chatLog.View() + "\n")
	}
	sb.WriteString(m.chatInput.View() + "\n")
	return sb.String()
}
