package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkulima/agrichat/internal/chat"
	"github.com/mkulima/agrichat/internal/models"
	"github.com/mkulima/agrichat/internal/render"
)

// Animation tick message
type animationTickMsg time.Time

// turnSettledMsg is sent when a submitted question has been answered
type turnSettledMsg struct {
	reply models.Message
}

// Model represents the TUI state
type Model struct {
	ctx       context.Context
	session   *chat.Session
	modelName string
	render    render.Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	ready          bool
	spinning       bool
	animating      bool
	animationFrame int

	// rendered caches markdown output per entry ID for the current width
	rendered map[string]string

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model around session
func NewChatModel(ctx context.Context, session *chat.Session, modelName string, opts render.Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about crops, soil, pests or the weather..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		ctx:       ctx,
		session:   session,
		modelName: modelName,
		render:    opts,
		textarea:  ta,
		spinner:   s,
		rendered:  make(map[string]string),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// awaitTurn resolves turn off the UI goroutine
func awaitTurn(ctx context.Context, turn *chat.Turn) tea.Cmd {
	return func() tea.Msg {
		return turnSettledMsg{reply: turn.Await(ctx)}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4 // Header panel with border
		inputHeight := 6  // Input panel with border
		statusHeight := 1 // Status bar
		padding := 2      // Extra spacing

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.rendered = make(map[string]string)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			return m.submit()
		}

	case turnSettledMsg:
		m.updateViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.session.Pending() > 0 {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.updateViewport()
		} else {
			m.spinning = false
		}

	case animationTickMsg:
		if m.session.Pending() > 0 {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		} else {
			m.animating = false
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if _, ok := msg.(tea.KeyMsg); ok {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit hands the input to the session. The input stays usable while
// earlier questions are still being answered.
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if isExitCommand(input) {
		return m, tea.Quit
	}

	turn, ok := m.session.Begin(input)
	if !ok {
		return m, nil
	}
	m.textarea.Reset()
	m.updateViewport()
	m.viewport.GotoBottom()

	cmds := []tea.Cmd{awaitTurn(m.ctx, turn)}
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	if !m.animating {
		m.animating = true
		m.animationFrame = 0
		cmds = append(cmds, animationTick())
	}
	return m, tea.Batch(cmds...)
}

func isExitCommand(input string) bool {
	switch input {
	case "exit", "quit", "/exit", "/quit":
		return true
	}
	return false
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	headerContent := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("🌱 MkulimaMkononi"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.modelName),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	var messagesContent string
	if m.session.Len() == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	inputParts := []string{inputLabelStyle.Render("You"), m.textarea.View()}
	if m.session.Pending() > 0 {
		inputParts = append([]string{m.renderLoadingAnimation()}, inputParts...)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, inputParts...),
	))

	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		welcomeIconStyle.Width(width).Render("🌽"),
		"",
		welcomeTitleStyle.Width(width).Render("Karibu! Welcome to MkulimaMkononi"),
		"",
		welcomeStyle.Width(width).Render("Ask a question about farming or the weather below"),
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders the animated typing indicator
func (m Model) renderLoadingAnimation() string {
	barChars := []string{"█", "█", "█", "█", "▓", "▒", "░"}
	frame := m.animationFrame

	barWidth := 12
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	label := "answering"
	if n := m.session.Pending(); n > 1 {
		label = fmt.Sprintf("answering %d questions", n)
	}
	text := lipgloss.NewStyle().Foreground(colorText).Render(" " + label)

	return bar.String() + text
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport content from the session log
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 10
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	for i, entry := range m.session.Entries() {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renderEntry(entry, bubbleWidth))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// renderEntry renders one log entry in its variant
func (m *Model) renderEntry(entry models.Entry, bubbleWidth int) string {
	switch {
	case entry.Message.Sender == models.SenderUser:
		block := lipgloss.JoinVertical(lipgloss.Right,
			userLabelStyle.Render("You ●"),
			userBubbleStyle.Width(bubbleWidth).Render(entry.Message.Text),
		)
		return lipgloss.PlaceHorizontal(m.viewport.Width-2, lipgloss.Right, block)

	case entry.Pending:
		return lipgloss.JoinVertical(lipgloss.Left,
			assistantLabelStyle.Render("🌱 MkulimaMkononi"),
			pendingBubbleStyle.Render(m.spinner.View()+" "+entry.Message.Text),
		)

	default:
		rendered, ok := m.rendered[entry.ID]
		if !ok {
			rendered = render.Reply(entry.Message.Text, m.render.WithWidth(bubbleWidth-4))
			m.rendered[entry.ID] = rendered
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			assistantLabelStyle.Render("🌱 MkulimaMkononi"),
			assistantBubbleStyle.Width(bubbleWidth).Render(rendered),
		)
	}
}

// RunChat starts the chat TUI. Questions still in flight when the user
// quits are abandoned.
func RunChat(ctx context.Context, session *chat.Session, modelName string, opts render.Options) error {
	m := NewChatModel(ctx, session, modelName, opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	return err
}
