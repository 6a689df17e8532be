package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"velaris/internal/domain"
	"velaris/internal/whale"
)

const (
	listSize       = 100
	refreshEvery   = time.Minute
	requestTimeout = 30 * time.Second
)

// MarketSource is the market data the dashboard reads.
type MarketSource interface {
	Top(ctx context.Context, n int) ([]domain.Coin, error)
	Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error)
}

type Assistant interface {
	Ask(ctx context.Context, sessionID, question string) (string, error)
}

// Services is everything one dashboard session needs. A nil Advisor hides
// the chat view.
type Services struct {
	Markets   MarketSource
	Advisor   Assistant
	Rules     whale.Rules
	SessionID string
	Username  string
}

type view int

const (
	viewMarkets view = iota
	viewDetail
	viewChat
)

type marketsMsg struct {
	coins []domain.Coin
	err   error
}

type detailMsg struct {
	snap    domain.MarketSnapshot
	insight domain.WhaleInsight
	err     error
}

type replyMsg struct {
	text string
	err  error
}

// refreshMsg carries the generation of the tick chain that produced it;
// ticks from superseded chains are ignored.
type refreshMsg struct{ gen int }

type chatLine struct {
	fromUser bool
	text     string
}

// AppModel is the root bubbletea model: a markets table, a coin detail page
// and a chat with the assistant.
type AppModel struct {
	svc    Services
	view   view
	width  int
	height int

	table     table.Model
	search    textinput.Model
	searching bool
	coins     []domain.Coin
	visible   []domain.Coin
	updated   time.Time

	spinner    spinner.Model
	loading    bool
	err        error
	refreshGen int

	detail *detailMsg

	chatInput  textinput.Model
	chatLog    viewport.Model
	transcript []chatLine
	waiting    bool
}

func NewAppModel(svc Services) *AppModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Name", Width: 18},
			{Title: "Symbol", Width: 7},
			{Title: "Price", Width: 14},
			{Title: "1h", Width: 8},
			{Title: "24h", Width: 8},
			{Title: "7d", Width: 8},
			{Title: "Market Cap", Width: 11},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("#F5A623"))
	t.SetStyles(styles)

	search := textinput.New()
	search.Placeholder = "filter by name or symbol"
	search.CharLimit = 40
	search.Prompt = "/ "

	chat := textinput.New()
	chat.Placeholder = "ask about crypto concepts or the market"
	chat.CharLimit = 500
	chat.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	m := &AppModel{
		svc:       svc,
		table:     t,
		search:    search,
		spinner:   sp,
		loading:   true,
		chatInput: chat,
		chatLog:   viewport.New(80, 10),
	}
	m.SetSize(100, 30)
	return m
}

// SetSize fits the components to the terminal. Zero sizes are ignored.
func (m *AppModel) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.table.SetHeight(max(height-8, 5))
	m.search.Width = max(width-6, 10)
	m.chatInput.Width = max(width-6, 10)
	m.chatLog.Width = width
	m.chatLog.Height = max(height-7, 3)
	m.renderTranscript()
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadMarkets())
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case marketsMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.coins = msg.coins
			m.updated = time.Now()
			m.applyFilter(false)
		}
		m.refreshGen++
		gen := m.refreshGen
		return m, tea.Tick(refreshEvery, func(time.Time) tea.Msg { return refreshMsg{gen: gen} })

	case refreshMsg:
		if msg.gen != m.refreshGen {
			return m, nil
		}
		m.loading = true
		return m, m.loadMarkets()

	case detailMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.detail = &msg
		}
		return m, nil

	case replyMsg:
		m.waiting = false
		text := msg.text
		if msg.err != nil {
			text = "Sorry, I couldn't answer that right now."
		}
		m.transcript = append(m.transcript, chatLine{text: text})
		m.renderTranscript()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *AppModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	switch m.view {
	case viewDetail:
		return m.handleDetailKey(msg)
	case viewChat:
		return m.handleChatKey(msg)
	default:
		return m.handleMarketsKey(msg)
	}
}

func (m *AppModel) handleMarketsKey(msg tea.KeyMsg) tea.Cmd {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.search.SetValue("")
			fallthrough
		case "enter":
			m.searching = false
			m.search.Blur()
			m.table.Focus()
			m.applyFilter(true)
			return nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.applyFilter(true)
		return cmd
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "/":
		m.searching = true
		m.table.Blur()
		return m.search.Focus()
	case "r":
		m.loading = true
		return m.loadMarkets()
	case "c":
		return m.openChat()
	case "enter":
		coin, ok := m.selected()
		if !ok {
			return nil
		}
		m.view = viewDetail
		m.detail = nil
		m.loading = true
		return m.loadDetail(coin.ID)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *AppModel) handleDetailKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "esc", "backspace":
		m.view = viewMarkets
		m.err = nil
	case "c":
		return m.openChat()
	case "r":
		if m.detail != nil {
			m.loading = true
			return m.loadDetail(m.detail.snap.CoinID)
		}
	}
	return nil
}

func (m *AppModel) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.view = viewMarkets
		m.chatInput.Blur()
		m.table.Focus()
		return nil
	case "enter":
		q := strings.TrimSpace(m.chatInput.Value())
		if q == "" || m.waiting {
			return nil
		}
		m.chatInput.SetValue("")
		m.transcript = append(m.transcript, chatLine{fromUser: true, text: q})
		m.renderTranscript()
		m.waiting = true
		return m.ask(q)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.chatLog, cmd = m.chatLog.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return cmd
}

func (m *AppModel) openChat() tea.Cmd {
	if m.svc.Advisor == nil {
		return nil
	}
	m.view = viewChat
	m.table.Blur()
	return m.chatInput.Focus()
}

func (m *AppModel) selected() (domain.Coin, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return domain.Coin{}, false
	}
	return m.visible[i], true
}

// applyFilter narrows the listing to coins whose name or symbol contains the
// search term and rebuilds the table rows.
func (m *AppModel) applyFilter(resetCursor bool) {
	term := strings.ToLower(strings.TrimSpace(m.search.Value()))
	m.visible = m.visible[:0]
	for _, c := range m.coins {
		if term == "" ||
			strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Symbol), term) {
			m.visible = append(m.visible, c)
		}
	}

	rows := make([]table.Row, 0, len(m.visible))
	for _, c := range m.visible {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", c.MarketCapRank),
			c.Name,
			strings.ToUpper(c.Symbol),
			formatPrice(c.CurrentPrice),
			percent(c.PriceChange1hInCurrency),
			percent(c.PriceChange24hInCurrency),
			percent(c.PriceChange7dInCurrency),
			compact(c.MarketCap),
		})
	}
	m.table.SetRows(rows)
	if resetCursor {
		m.table.SetCursor(0)
	}
}

func (m *AppModel) renderTranscript() {
	wrap := lipgloss.NewStyle().Width(max(m.chatLog.Width-2, 10))
	var sb strings.Builder
	for _, line := range m.transcript {
		if line.fromUser {
			sb.WriteString(youStyle.Render("You") + "\n")
		} else {
			sb.WriteString(tutorStyle.Render("Tutor") + "\n")
		}
		sb.WriteString(wrap.Render(line.text) + "\n\n")
	}
	m.chatLog.SetContent(sb.String())
	m.chatLog.GotoBottom()
}

func (m *AppModel) loadMarkets() tea.Cmd {
	markets := m.svc.Markets
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		coins, err := markets.Top(ctx, listSize)
		return marketsMsg{coins: coins, err: err}
	}
}

func (m *AppModel) loadDetail(id string) tea.Cmd {
	markets, rules := m.svc.Markets, m.svc.Rules
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snap, err := markets.Snapshot(ctx, id)
		if err != nil {
			return detailMsg{err: err}
		}
		signals := whale.DetectWithConfidence(snap, rules, time.Now().UTC())
		return detailMsg{snap: snap, insight: whale.Insights(signals, snap.Name)}
	}
}

func (m *AppModel) ask(question string) tea.Cmd {
	adv, session := m.svc.Advisor, m.svc.SessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		text, err := adv.Ask(ctx, session, question)
		return replyMsg{text: text, err: err}
	}
}
