// Package tui implements the interactive chat view.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driving"
)

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle = lipgloss.NewStyle().Bold(true)
	sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// answerMsg carries one finished turn back into the update loop.
type answerMsg struct {
	turn domain.ChatTurn
}

// Model is the Bubble Tea model for the chat session. The session
// history is append-only; the answer core stays stateless across
// turns.
type Model struct {
	answerer driving.Answerer
	topK     int

	// ctx bounds in-flight answer calls; cancel fires on quit so a
	// pending embed or generate call does not outlive the session.
	ctx    context.Context
	cancel context.CancelFunc

	input    textinput.Model
	viewport viewport.Model
	turns    []domain.ChatTurn
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat model over the given answerer.
func New(answerer driving.Answerer, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		answerer: answerer,
		topK:     topK,
		ctx:      ctx,
		cancel:   cancel,
		input:    ti,
		viewport: vp,
		status:   "Ready. Type a question.",
	}
}

// Turns returns the session history.
func (m Model) Turns() []domain.ChatTurn {
	return m.turns
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			m.cancel()
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			return m, m.askCmd(question)
		}

	case answerMsg:
		m.waiting = false
		m.turns = append(m.turns, msg.turn)
		if msg.turn.Err != "" {
			m.status = "Last question failed. Ask again or press ctrl-c to quit."
		} else {
			m.status = fmt.Sprintf("%d turns. Ask another question.", len(m.turns))
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd runs one answer call off the update loop.
func (m Model) askCmd(question string) tea.Cmd {
	ctx := m.ctx
	answerer := m.answerer
	topK := m.topK
	return func() tea.Msg {
		turn := domain.ChatTurn{
			Question: question,
			AskedAt:  time.Now(),
		}
		result, err := answerer.Answer(ctx, question, topK)
		if err != nil {
			turn.Err = err.Error()
		} else {
			turn.Answer = result.Text
			turn.Sources = result.Sources
		}
		return answerMsg{turn: turn}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("askdrive chat")
	transcript := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions asked yet."
	}

	var b strings.Builder
	for i, turn := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + turn.Question))
		b.WriteString("\n")
		if turn.Err != "" {
			b.WriteString(errorStyle.Render("Failed: " + turn.Err))
			continue
		}
		b.WriteString(turn.Answer)
		if len(turn.Sources) > 0 {
			names := make([]string, len(turn.Sources))
			for j, s := range turn.Sources {
				names[j] = s.Name
			}
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("Sources: " + strings.Join(names, ", ")))
		}
	}
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
