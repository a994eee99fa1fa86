// internal/tui/app.go
//
// The simulator's terminal UI. It shows the simulated brain screen the route
// selector draws on, the field phase and lifecycle state, and the tail of
// the match journal. Key presses become button presses for the selector.
//
// It uses bubbletea, which follows The Elm Architecture:
// Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vexide/autons/compete"
	"github.com/vexide/autons/internal/logbook"
	"github.com/vexide/autons/selector"
)

const (
	// BrainWidth and BrainHeight size the simulated screen in cells.
	BrainWidth  = 40
	BrainHeight = 12

	logRefreshInterval = 500 * time.Millisecond
	logTailLines       = 8
)

type phaseMsg struct{ phase compete.Phase }

type stateMsg struct{ state compete.State }

type commitMsg struct {
	name string
	sel  selector.Selection
}

type finishedMsg struct{ err error }

type screenMsg struct{}

type logTickMsg struct{}

// Finished tells the app the lifecycle returned.
func Finished(err error) tea.Msg {
	return finishedMsg{err: err}
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithLogbook shows the journal tail under the brain screen.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) { a.logbook = lb }
}

// WithSourceLabel describes where phases come from, e.g. "timeline match".
func WithSourceLabel(label string) AppOption {
	return func(a *App) { a.source = strings.TrimSpace(label) }
}

// WithSelector shows the selector's live highlight in the status panel.
// names label the highlighted index, usually the route table's names.
func WithSelector(sel selector.Selector, names []string) AppOption {
	return func(a *App) {
		a.selector = sel
		a.names = names
	}
}

// App is the simulator model.
type App struct {
	screen  *Screen
	buttons *Buttons
	logbook *logbook.Logbook
	keys    keyMap
	help    help.Model
	source  string

	selector selector.Selector
	names    []string

	phase     compete.Phase
	state     compete.State
	committed string
	sel       selector.Selection
	hasCommit bool
	finished  bool
	err       error

	width  int
	height int
}

// NewApp builds the simulator model around a screen and button latch that
// the route selector also holds.
func NewApp(screen *Screen, buttons *Buttons, opts ...AppOption) *App {
	a := &App{
		screen:  screen,
		buttons: buttons,
		keys:    defaultKeyMap(),
		help:    help.New(),
		phase:   compete.PhaseDisabled,
		state:   compete.StateAwaitingSelection,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Callbacks forwards lifecycle events to the program through send. The
// lifecycle calls them inline, so send must not block; use a Forwarder
// rather than (*tea.Program).Send directly.
func Callbacks(send func(tea.Msg)) compete.Callbacks {
	return compete.Callbacks{
		OnPhase: func(p compete.Phase) { send(phaseMsg{phase: p}) },
		OnState: func(s compete.State) { send(stateMsg{state: s}) },
		OnCommit: func(name string, sel selector.Selection) {
			send(commitMsg{name: name, sel: sel})
		},
	}
}

// ScreenNotifier returns a callback for Screen.OnChange that repaints the
// program. The selector draws from its own goroutine, so send must not block.
func ScreenNotifier(send func(tea.Msg)) func() {
	return func() { send(screenMsg{}) }
}

func logTick() tea.Cmd {
	return tea.Tick(logRefreshInterval, func(time.Time) tea.Msg { return logTickMsg{} })
}

// Init starts the journal refresh loop.
func (a *App) Init() tea.Cmd {
	return logTick()
}

// Update handles every message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case phaseMsg:
		a.phase = msg.phase
		return a, nil

	case stateMsg:
		// Finished is delivered directly and may overtake queued updates.
		if !a.finished {
			a.state = msg.state
		}
		return a, nil

	case commitMsg:
		a.committed = msg.name
		a.sel = msg.sel
		a.hasCommit = true
		return a, nil

	case finishedMsg:
		a.finished = true
		a.err = msg.err
		a.state = compete.StateFinished
		return a, nil

	case screenMsg:
		return a, nil

	case logTickMsg:
		return a, logTick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Help):
			a.help.ShowAll = !a.help.ShowAll
		case key.Matches(msg, a.keys.Previous):
			a.buttons.Press(ButtonPrevious)
		case key.Matches(msg, a.keys.Next):
			a.buttons.Press(ButtonNext)
		case key.Matches(msg, a.keys.Confirm):
			a.buttons.Press(ButtonConfirm)
		case key.Matches(msg, a.keys.Fault):
			a.screen.InjectFaults(1)
		}
	}
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#43BDE0")).
		MarginBottom(1).
		Render("⬡ AUTONS · route selection simulator")

	brain := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#999999")).
		Render(a.screen.Render())

	body := lipgloss.JoinHorizontal(lipgloss.Top, brain, "  ", a.renderStatusPanel())

	parts := []string{header, body}
	if panel := a.renderLogPanel(); panel != "" {
		parts = append(parts, panel)
	}
	parts = append(parts, a.help.View(a.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderStatusPanel() string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	value := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	row := func(name, v string) string {
		return label.Render(fmt.Sprintf("%-10s", name)) + value.Render(v)
	}

	committed := "none"
	if a.hasCommit {
		cause := "confirmed"
		if !a.sel.Confirmed {
			cause = "fallback"
		}
		committed = fmt.Sprintf("%s (%s)", a.committed, cause)
	}
	lines := []string{
		row("phase", a.phase.String()),
		row("state", a.state.String()),
		row("route", committed),
	}
	if a.selector != nil && !a.hasCommit {
		lines = append(lines, row("highlight", a.highlighted()))
	}
	if a.source != "" {
		lines = append(lines, row("source", a.source))
	}
	if a.finished {
		if a.err != nil {
			lines = append(lines, "", lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render("error: "+a.err.Error()))
		} else {
			lines = append(lines, "", label.Render("match over · press q to exit"))
		}
	}
	return lipgloss.NewStyle().Padding(1, 1).Render(strings.Join(lines, "\n"))
}

func (a *App) highlighted() string {
	i := a.selector.Highlight()
	if i >= 0 && i < len(a.names) {
		return fmt.Sprintf("%s (%d/%d)", a.names[i], i+1, len(a.names))
	}
	return fmt.Sprintf("#%d", i)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, _ := a.logbook.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}
