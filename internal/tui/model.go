package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/stats"
	"github.com/randomizedcoder/simrun/internal/status"
	"github.com/randomizedcoder/simrun/internal/timeseries"
)

// maxLines bounds the output pane history.
const maxLines = 500

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// NotificationMsg carries one controller notification.
type NotificationMsg notify.Notification

// StatusMsg carries an updated status bar item.
type StatusMsg status.Item

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// actionMsg reports the result of a run or terminate key press.
type actionMsg struct {
	terminate bool
	err       error
}

// =============================================================================
// Model
// =============================================================================

// Controller is the subset of the run controller the dashboard drives.
type Controller interface {
	Run(ctx context.Context, codeID string) error
	Terminate(codeID string) (bool, error)
	Status() status.Item
	Handles() []controller.RunInfo
}

// StatsSource provides completed-run summaries.
type StatsSource interface {
	Summaries() []stats.Summary
}

// Config holds TUI configuration.
type Config struct {
	Controller  Controller
	StatsSource StatsSource
	CodeID      string
	Name        string
	Path        string
	// AutoRun starts the code as soon as the program starts.
	AutoRun bool
}

// Model represents the TUI state.
type Model struct {
	ctrl        Controller
	statsSource StatsSource
	codeID      string
	name        string
	path        string
	autoRun     bool

	status    status.Item
	handles   []controller.RunInfo
	summaries []stats.Summary
	lines     []notify.Notification
	lastErr   error

	// rate counts output bytes of the current run. Shared by model copies.
	rate *timeseries.OutputRate

	startTime  time.Time
	lastUpdate time.Time

	width  int
	height int

	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	m := Model{
		ctrl:        cfg.Controller,
		statsSource: cfg.StatsSource,
		codeID:      cfg.CodeID,
		name:        cfg.Name,
		path:        cfg.Path,
		autoRun:     cfg.AutoRun,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		rate:        timeseries.NewOutputRate(),
		width:       80,
		height:      24,
	}
	m.refresh()
	return m
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.autoRun {
		return tea.Batch(tickCmd(), m.runCmd())
	}
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.runCmd()
		case "t":
			return m, m.terminateCmd()
		case "c":
			m.lines = nil
			m.lastErr = nil
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.rate.Sample()
		m.refresh()
		return m, tickCmd()

	case NotificationMsg:
		if msg.CodeID == m.codeID {
			m.rate.Add(len(msg.Message))
		}
		m.lines = append(m.lines, notify.Notification(msg))
		if len(m.lines) > maxLines {
			m.lines = m.lines[len(m.lines)-maxLines:]
		}
		return m, nil

	case StatusMsg:
		m.refresh()
		m.status = status.Item(msg)
		return m, nil

	case actionMsg:
		m.lastErr = msg.err
		if !msg.terminate && msg.err == nil {
			m.rate.Reset()
		}
		m.refresh()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// refresh pulls the latest controller and stats snapshots.
func (m *Model) refresh() {
	if m.ctrl != nil {
		m.status = m.ctrl.Status()
		m.handles = m.ctrl.Handles()
	}
	if m.statsSource != nil {
		m.summaries = m.statsSource.Summaries()
	}
	m.lastUpdate = time.Now()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// runCmd asks the controller to start the code. Rejections arrive as
// notifications as well as in actionMsg.
func (m Model) runCmd() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctrl, id := m.ctrl, m.codeID
	return func() tea.Msg {
		return actionMsg{err: ctrl.Run(context.Background(), id)}
	}
}

func (m Model) terminateCmd() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctrl, id := m.ctrl, m.codeID
	return func() tea.Msg {
		_, err := ctrl.Terminate(id)
		return actionMsg{terminate: true, err: err}
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Running reports whether the dashboard's code has a live process.
func (m Model) Running() bool {
	for _, h := range m.handles {
		if h.CodeID == m.codeID {
			return true
		}
	}
	return false
}

// OutputRate returns the output rate of the current run.
func (m Model) OutputRate() timeseries.Rates {
	return m.rate.Rate()
}

// Lines returns the buffered output, oldest first.
func (m Model) Lines() []notify.Notification {
	return m.lines
}

// =============================================================================
// Program bridge
// =============================================================================

// Forwarder relays controller notifications and status changes into a
// running program. It is created before the program so it can be handed to
// the controller as its notifier; messages before Attach are dropped.
type Forwarder struct {
	mu sync.Mutex
	p  *tea.Program
}

// Attach sets the program that receives messages.
func (f *Forwarder) Attach(p *tea.Program) {
	f.mu.Lock()
	f.p = p
	f.mu.Unlock()
}

func (f *Forwarder) program() *tea.Program {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.p
}

// Notify implements notify.Notifier.
func (f *Forwarder) Notify(n notify.Notification) {
	if p := f.program(); p != nil {
		p.Send(NotificationMsg(n))
	}
}

// Status is a controller.Observer.
func (f *Forwarder) Status(item status.Item) {
	if p := f.program(); p != nil {
		p.Send(StatusMsg(item))
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
