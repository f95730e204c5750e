package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"finsight/internal/engine"
)

// Engine is the turn handler the chat fronts.
type Engine interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (engine.Response, error)
}

type turnResultMsg struct {
	response engine.Response
	err      error
}

type chatMessage struct {
	fromUser bool
	text     string
}

// Model is the bubbletea model for the chat interface.
type Model struct {
	engine    Engine
	sessionID string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	messages []chatMessage
	waiting  bool
	ready    bool
	err      error
}

// NewModel creates the chat model.
func NewModel(eng Engine, sessionID string) Model {
	input := textinput.New()
	input.Placeholder = "Ask about your finances..."
	input.Focus()
	input.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		engine:    eng,
		sessionID: sessionID,
		input:     input,
		spinner:   sp,
	}
}

// Run starts the chat program and blocks until it exits.
func Run(ctx context.Context, eng Engine, sessionID string) error {
	program := tea.NewProgram(
		NewModel(eng, sessionID),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.messages = append(m.messages, chatMessage{fromUser: true, text: text})
			m.input.Reset()
			m.waiting = true
			m.refreshViewport()
			return m, tea.Batch(m.spinner.Tick, m.sendTurn(text))
		}

	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 3
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
		m.input.Width = msg.Width - 4
		m.ready = true
		m.refreshViewport()

	case turnResultMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			m.messages = append(m.messages, chatMessage{
				text: NoticeStyle.Render("Something went wrong. Please try again."),
			})
		} else {
			m.messages = append(m.messages, chatMessage{text: renderResponse(msg.response)})
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var footer string
	if m.waiting {
		footer = m.spinner.View() + " Thinking..."
	} else {
		footer = m.input.View()
	}

	return TitleStyle.Render("finsight") + "\n\n" +
		m.viewport.View() + "\n\n" +
		footer
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.fromUser {
			b.WriteString(UserStyle.Render("> " + msg.text))
		} else {
			b.WriteString(msg.text)
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) sendTurn(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.engine.HandleTurn(context.Background(), m.sessionID, text)
		return turnResultMsg{response: resp, err: err}
	}
}
