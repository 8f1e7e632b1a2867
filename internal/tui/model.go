package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"earnings-rag/internal/router"
)

// QueryEngine is the TUI-facing subset of the router engine.
type QueryEngine interface {
	Query(ctx context.Context, question string) (*router.Response, error)
}

// LoadFunc builds or fetches the engine. It runs once in the background
// when the program starts.
type LoadFunc func(ctx context.Context) (QueryEngine, error)

const greeting = "Ask me a question about Company earnings calls!"

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
)

type entry struct {
	role     role
	text     string
	question string
	resp     *router.Response
}

type engineReadyMsg struct{ engine QueryEngine }
type engineFailedMsg struct{ err error }
type answerMsg struct {
	question string
	resp     *router.Response
}
type answerErrMsg struct{ err error }

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	ctx      context.Context
	load     LoadFunc
	engine   QueryEngine
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []entry
	title    string
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model. title is shown in the header.
func New(ctx context.Context, load LoadFunc, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the earnings calls and press Enter"
	ti.CharLimit = 0
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return Model{
		ctx:      ctx,
		load:     load,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		title:    title,
		history:  []entry{{role: roleAssistant, text: greeting}},
		status:   "Loading transcripts and collections...",
		busy:     true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadEngine())
}

func (m Model) loadEngine() tea.Cmd {
	return func() tea.Msg {
		e, err := m.load(m.ctx)
		if err != nil {
			return engineFailedMsg{err: err}
		}
		return engineReadyMsg{engine: e}
	}
}

func (m Model) ask(q string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		resp, err := engine.Query(m.ctx, q)
		if err != nil {
			return answerErrMsg{err: err}
		}
		return answerMsg{question: q, resp: resp}
	}
}

// Update handles key, window and background events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, hh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input line
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-hh)
		m.refresh()
		return m, nil

	case engineReadyMsg:
		m.engine = msg.engine
		m.busy = false
		m.status = "Ready. Ask a question; PgUp/PgDn scroll, Ctrl+C quits."
		return m, nil

	case engineFailedMsg:
		m.busy = false
		m.status = "Engine unavailable"
		m.history = append(m.history, entry{role: roleError, text: msg.err.Error()})
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.status = "Ready."
		m.history = append(m.history, entry{role: roleAssistant, text: msg.resp.Text, question: msg.question, resp: msg.resp})
		m.refresh()
		return m, nil

	case answerErrMsg:
		m.busy = false
		m.status = "Ready."
		m.history = append(m.history, entry{role: roleError, text: msg.err.Error()})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy || m.engine == nil {
				return m, nil
			}
			m.input.Reset()
			m.history = append(m.history, entry{role: roleUser, text: q})
			m.busy = true
			m.status = "Thinking..."
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, chat history, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	history := historyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + history + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return mutedStyle.Render("No questions yet.")
	}
	width := m.viewport.Width
	var sb strings.Builder
	for i, e := range m.history {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch e.role {
		case roleUser:
			sb.WriteString(userStyle.Render("You: "))
			sb.WriteString(wrap(e.text, width))
		case roleAssistant:
			sb.WriteString(assistantStyle.Render("Assistant: "))
			sb.WriteString(wrap(e.text, width))
			sb.WriteString(renderSources(e.resp, e.question, width))
		case roleError:
			sb.WriteString(errorStyle.Render("Error: " + e.text))
		}
	}
	return sb.String()
}

// renderSources lists each sub-question with its best passage, the sentence
// closest to the question and sub-question highlighted.
func renderSources(resp *router.Response, question string, width int) string {
	if resp == nil || len(resp.SubAnswers) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, sa := range resp.SubAnswers {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  [%s] %s", sa.ToolName, sa.Question)))
		if len(sa.Answer.Sources) == 0 {
			continue
		}
		top := sa.Answer.Sources[0]
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("    %s  score=%.3f", filepath.Base(top.Chunk.Path), top.Score)))
		sb.WriteString("\n    ")
		sb.WriteString(spotlight(wrap(top.Chunk.Text, width-4), question, sa.Question))
	}
	return sb.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
