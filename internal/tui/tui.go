package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/mermaidcheck/internal/report"
	"github.com/sokinpui/mermaidcheck/mermaidcheck"
)

// --- Styles ---
var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("197")) // Red
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type resultMsg struct {
	mermaidcheck.Result
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// ProgressMsg reports how many files have been checked.
type ProgressMsg struct {
	Current, Total int
}

// --- Model ---
type Model struct {
	app     *mermaidcheck.App
	ctx     context.Context
	strict  bool
	spinner spinner.Model
	state   state
	result  mermaidcheck.Result
	err     error

	current, total int
}

type state int

const (
	stateProcessing state = iota
	stateDone
	stateError
)

func New(ctx context.Context, app *mermaidcheck.App, strict bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:     app,
		ctx:     ctx,
		strict:  strict,
		spinner: s,
		state:   stateProcessing,
	}
}

// Result returns the outcome once the program has finished.
func (m Model) Result() (mermaidcheck.Result, error) {
	return m.result, m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.state = stateError
			m.err = errors.New("interrupted")
			return m, tea.Quit
		}

	case ProgressMsg:
		m.current, m.total = msg.Current, msg.Total
		return m, nil

	case resultMsg:
		m.state = stateDone
		m.result = msg.Result
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.total > 0 {
			return fmt.Sprintf("%s Checking diagrams... %s", m.spinner.View(),
				faintStyle.Render(fmt.Sprintf("%d/%d files", m.current, m.total)))
		}
		return fmt.Sprintf("%s Checking diagrams...", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error()) + "\n"
	case stateDone:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderResult() string {
	if m.result.Summary != nil {
		return report.Summary(*m.result.Summary)
	}
	if m.result.Report != nil {
		return report.Console(m.result.Report, m.strict)
	}
	return ""
}

func (m *Model) runApp() tea.Msg {
	result, err := m.app.Execute(m.ctx)
	if err != nil {
		// Check for detailed error to print stack
		var e *mermaidcheck.DetailedError
		if errors.As(err, &e) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return resultMsg{Result: result}
}
