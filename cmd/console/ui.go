package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/adventure-engine/internal/services/events"
	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "Type an action, or an option number..."
	openingAction   = "Start the game and look around."
)

type logRole int

const (
	roleNarrator logRole = iota
	rolePlayer
	roleSystem
	roleError
)

type logEntry struct {
	role logRole
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	client       *apiClient
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// World selection state
	showWorldModal bool
	worlds         []worldChoice
	selectedWorld  int

	// Session state mirrored from the API
	sessionID uuid.UUID
	worldName string
	world     game.WorldState
	profile   game.PlayerProfile
	quest     *game.PublicQuest
	env       *game.EnvState
	envStale  bool
	options   []game.Option
	history   []game.HistoryItem
	entries   []logEntry
	gameOver  bool

	events  chan SSEEvent
	stopSSE context.CancelFunc

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type gameStartedMsg struct {
	resp *worker.StartResponse
	err  error
}

type turnMsg struct {
	action string
	resp   *worker.TurnResponse
	err    error
}

type settledMsg struct {
	resp *worker.SettleResponse
	err  error
}

type sseMsg struct{ event SSEEvent }

type sseClosedMsg struct{ err error }

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	threatStyles = map[game.ThreatLevel]lipgloss.Style{
		game.ThreatSafe:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		game.ThreatNotice:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		game.ThreatWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		game.ThreatDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(client *apiClient, worlds []worldChoice) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		client:         client,
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   metaVp,
		showWorldModal: true,
		worlds:         worlds,
	}
}

// parseAction turns input into a player action. A bare number picks the
// matching option.
func parseAction(input string, options []game.Option) game.PlayerAction {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return game.PlayerAction{Type: game.ActionChoice, Content: options[n-1].Text}
	}
	return game.PlayerAction{Type: game.ActionFreeText, Content: input}
}

func writeMetadata(m *ConsoleUI) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("OPERATIVE") + "\n\n")

	p := m.profile
	content.WriteString(fmt.Sprintf("%s\n", p.Name))
	content.WriteString(fmt.Sprintf("HP: %d/%d\n", p.Stats.HP, p.Stats.MaxHP))
	content.WriteString(fmt.Sprintf("Power: %d\n\n", p.Stats.Power))

	content.WriteString(titleStyle.Render("WORLD") + "\n\n")
	content.WriteString(m.worldName + "\n")
	content.WriteString(fmt.Sprintf("Turn %d, %s\n", m.world.TurnCount, m.world.Environment.Time))
	content.WriteString(m.world.Environment.Location + "\n")
	if m.world.Environment.Weather != "" {
		content.WriteString(m.world.Environment.Weather + "\n")
	}
	content.WriteString("\n")

	if m.env != nil {
		header := "SENSES"
		if m.envStale {
			header += " (updating)"
		}
		content.WriteString(titleStyle.Render(header) + "\n\n")
		for _, s := range m.env.Senses {
			style, ok := threatStyles[s.ThreatLevel]
			if !ok {
				style = promptStyle
			}
			content.WriteString(style.Render("• "+s.Summary) + "\n")
		}
		content.WriteString("\n")
	}

	if m.quest != nil && len(m.quest.VisibleObjectives) > 0 {
		content.WriteString(titleStyle.Render("OBJECTIVES") + "\n\n")
		for _, o := range m.quest.VisibleObjectives {
			mark := "○"
			switch o.Status {
			case game.ObjectiveCompleted:
				mark = "●"
			case game.ObjectiveFailed:
				mark = "✕"
			}
			content.WriteString(fmt.Sprintf("%s %s\n", mark, o.Text))
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /inv: Inventory\n")
	content.WriteString("• /copy: Copy narration\n")
	content.WriteString("• /escape: End run\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return wordwrap.String(content.String(), m.metaViewport.Width)
}

// writeChatContent rebuilds the log for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE ENGINE") + "\n\n")
	content.WriteString("Describe what you do, or type the number of an option.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, e := range m.entries {
		switch e.role {
		case roleNarrator:
			content.WriteString(narratorStyle.Render(AgentName+": ") + wordwrap.String(e.text, chatWidth-len(AgentName)-2) + "\n\n")
		case rolePlayer:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(e.text, chatWidth-6) + "\n\n")
		case roleSystem:
			content.WriteString(promptStyle.Render(wordwrap.String(e.text, chatWidth)) + "\n\n")
		case roleError:
			content.WriteString(errorStyle.Render(wordwrap.String("Error: "+e.text, chatWidth)) + "\n\n")
		}
	}

	if !m.gameOver && len(m.options) > 0 && !m.loading {
		for i, o := range m.options {
			content.WriteString(fmt.Sprintf("  %d. %s %s\n", i+1, o.Text, promptStyle.Render("["+string(o.RiskLevel)+"]")))
		}
		content.WriteString("\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) refresh() {
	m.writeChatContent()
	m.metaViewport.SetContent(writeMetadata(m))
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showWorldModal {
		return m.updateWorldModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if m.gameOver {
				return m, nil
			}

			action := parseAction(input, m.options)
			m.entries = append(m.entries, logEntry{rolePlayer, action.Content})
			m.loading = true
			m.progressTick = 0
			m.writeChatContent()
			return m, tea.Batch(m.playTurn(action), progressTick())
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.entries = append(m.entries, logEntry{roleError, msg.err.Error()})
			m.refresh()
			return m, nil
		}
		m.applyVerdict(msg.action, msg.resp.Verdict)
		m.world = msg.resp.NextWorldState
		m.profile = msg.resp.NextPlayerProfile
		if msg.resp.NextQuestState != nil {
			m.quest = msg.resp.NextQuestState
		}
		if msg.resp.EnvState != nil {
			m.env = msg.resp.EnvState
			m.envStale = false
		} else if msg.resp.EnvStatePending {
			m.envStale = true
		}
		m.refresh()
		if outcome, over := outcomeOf(msg.resp.Verdict); over {
			m.gameOver = true
			m.loading = true
			return m, tea.Batch(m.settle(outcome), progressTick())
		}
		return m, nil

	case settledMsg:
		m.loading = false
		if msg.err != nil {
			m.entries = append(m.entries, logEntry{roleError, msg.err.Error()})
		} else if msg.resp.SettlementResult != nil {
			m.entries = append(m.entries, settlementEntries(msg.resp.SettlementResult)...)
		}
		m.refresh()
		return m, nil

	case sseMsg:
		m.applyEvent(msg.event)
		m.refresh()
		return m, waitForEvent(m.events)

	case sseClosedMsg:
		if msg.err != nil && !m.gameOver {
			m.entries = append(m.entries, logEntry{roleSystem, "Live updates disconnected."})
			m.refresh()
		}
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) applyVerdict(action string, v game.Verdict) {
	m.history = append(m.history, game.HistoryItem{Action: action, Verdict: v})
	m.entries = append(m.entries, logEntry{roleNarrator, v.Narrative.Content})
	m.options = v.Options
	if v.DeathReport != nil {
		m.entries = append(m.entries, logEntry{roleSystem, fmt.Sprintf("Cause of death: %s", v.DeathReport.CauseOfDeath)})
		if v.DeathReport.AvoidanceSuggestion != "" {
			m.entries = append(m.entries, logEntry{roleSystem, "Next time: " + v.DeathReport.AvoidanceSuggestion})
		}
	}
}

func (m *ConsoleUI) applyEvent(e SSEEvent) {
	switch events.EventType(e.Type) {
	case events.EventTypeEnvStateUpdated:
		var data struct {
			EnvState game.EnvState `json:"env_state"`
		}
		if err := json.Unmarshal(e.Data, &data); err == nil {
			m.env = &data.EnvState
			m.envStale = false
		}
	case events.EventTypeCompressionCompleted:
		m.entries = append(m.entries, logEntry{roleSystem, "(The chronicle of your journey has been condensed.)"})
	case events.EventTypeTaskFailed:
		m.envStale = false
	}
}

func outcomeOf(v game.Verdict) (settlement.Outcome, bool) {
	switch {
	case v.IsDeath:
		return settlement.OutcomeDeath, true
	case v.IsVictory:
		return settlement.OutcomeVictory, true
	}
	return "", false
}

func settlementEntries(res *settlement.EndResult) []logEntry {
	out := []logEntry{{roleSystem, "━━ RUN COMPLETE ━━"}, {roleSystem, res.RunSummary.Summary}}
	for _, e := range res.NewAtlasEntries {
		out = append(out, logEntry{roleSystem, fmt.Sprintf("Atlas: %s. %s", e.Topic, e.Description)})
	}
	for _, l := range res.UnlockedItems {
		out = append(out, logEntry{roleSystem, fmt.Sprintf("Unlocked: %s", l.Name)})
	}
	return out
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/help":
		m.entries = append(m.entries, logEntry{roleSystem, `Commands:
• /help - Show this help
• /inv - Show inventory and traits
• /copy - Copy the latest narration to the clipboard
• /escape - Leave the world and end the run
• Ctrl+C - Quit

How to play:
• Type what you do and press Enter
• Or type the number of one of the offered options`})

	case "/inv":
		var b strings.Builder
		b.WriteString("Inventory:")
		if len(m.profile.Inventory) == 0 {
			b.WriteString(" empty")
		}
		for _, item := range m.profile.Inventory {
			b.WriteString(fmt.Sprintf("\n• %s (%s)", item.Name, item.Type))
		}
		for _, t := range m.profile.Traits {
			b.WriteString(fmt.Sprintf("\n◆ %s", t.Name))
		}
		m.entries = append(m.entries, logEntry{roleSystem, b.String()})

	case "/copy":
		text, ok := lastNarration(m.entries)
		if !ok {
			m.entries = append(m.entries, logEntry{roleError, "nothing to copy yet"})
			break
		}
		if err := clipboard.WriteAll(text); err != nil {
			m.entries = append(m.entries, logEntry{roleError, "copy failed: " + err.Error()})
			break
		}
		m.entries = append(m.entries, logEntry{roleSystem, "Narration copied."})

	case "/escape":
		if m.gameOver || m.loading {
			break
		}
		m.gameOver = true
		m.loading = true
		m.entries = append(m.entries, logEntry{roleSystem, "You slip out of the world."})
		m.writeChatContent()
		return m, tea.Batch(m.settle(settlement.OutcomeEscape), progressTick())

	default:
		m.entries = append(m.entries, logEntry{roleError, "unknown command " + input})
	}

	m.writeChatContent()
	return m, nil
}

func lastNarration(entries []logEntry) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].role == roleNarrator {
			return entries[i].text, true
		}
	}
	return "", false
}

func (m ConsoleUI) playTurn(action game.PlayerAction) tea.Cmd {
	id := m.sessionID
	return func() tea.Msg {
		resp, err := m.client.playTurn(id, action)
		return turnMsg{action: action.Content, resp: resp, err: err}
	}
}

func (m ConsoleUI) settle(outcome settlement.Outcome) tea.Cmd {
	id := m.sessionID
	history := append([]game.HistoryItem(nil), m.history...)
	return func() tea.Msg {
		resp, err := m.client.settle(id, outcome, history)
		return settledMsg{resp, err}
	}
}

func (m ConsoleUI) startGame(worldKey string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.startGame(worldKey)
		return gameStartedMsg{resp, err}
	}
}

// subscribe streams session events into ch until ctx ends.
func (m ConsoleUI) subscribe(ctx context.Context, ch chan SSEEvent) tea.Cmd {
	id := m.sessionID
	return func() tea.Msg {
		err := m.client.listenToSSE(ctx, id, ch)
		return sseClosedMsg{err}
	}
}

func waitForEvent(ch chan SSEEvent) tea.Cmd {
	return func() tea.Msg {
		return sseMsg{<-ch}
	}
}

func (m ConsoleUI) updateWorldModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case progressTickMsg:
		return m, nil

	case gameStartedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		r := msg.resp
		m.sessionID = r.SessionID
		m.worldName = m.worlds[m.selectedWorld].Name
		m.world = r.WorldState
		m.profile = r.PlayerProfile
		m.quest = r.QuestState
		m.env = r.EnvState
		for _, w := range r.Warnings {
			m.entries = append(m.entries, logEntry{roleSystem, w})
		}
		m.applyVerdict(openingAction, r.InitialVerdict)
		m.showWorldModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
			m.ready = true
			m.refresh()
		}
		m.textarea.Focus()

		ctx, cancel := context.WithCancel(context.Background())
		m.stopSSE = cancel
		m.events = make(chan SSEEvent, 8)
		return m, tea.Batch(textarea.Blink, m.subscribe(ctx, m.events), waitForEvent(m.events))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.loading {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyUp:
			if m.selectedWorld > 0 {
				m.selectedWorld--
			}
		case tea.KeyDown:
			if m.selectedWorld < len(m.worlds)-1 {
				m.selectedWorld++
			}
		case tea.KeyEnter:
			if len(m.worlds) > 0 {
				m.err = nil
				m.loading = true
				return m, m.startGame(m.worlds[m.selectedWorld].Key)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.showWorldModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.stopSSE != nil {
		m.stopSSE()
	}
	return m, tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to abandon your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderWorldModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Entering World..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("The narrator is setting the scene..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a World"))
		content.WriteString("\n\n")

		for i, w := range m.worlds {
			if i == m.selectedWorld {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", w.Name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", w.Name)))
			}
			content.WriteString("\n")
		}

		if m.err != nil {
			content.WriteString("\n")
			content.WriteString(errorStyle.Render(m.err.Error()))
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showWorldModal {
		return m.renderWorldModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓") // Blinking effect at the progress point
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
