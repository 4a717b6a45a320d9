package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/stats"
	"github.com/randomizedcoder/simrun/internal/status"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeController struct {
	mu         sync.Mutex
	runs       []string
	terminates []string
	runErr     error
	item       status.Item
	handles    []controller.RunInfo
}

func (f *fakeController) Run(_ context.Context, codeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, codeID)
	return f.runErr
}

func (f *fakeController) Terminate(codeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminates = append(f.terminates, codeID)
	return true, nil
}

func (f *fakeController) Status() status.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.item
}

func (f *fakeController) Handles() []controller.RunInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]controller.RunInfo(nil), f.handles...)
}

type fakeStats struct {
	summaries []stats.Summary
}

func (f *fakeStats) Summaries() []stats.Summary { return f.summaries }

func runItem() status.Item {
	return status.Item{
		Visible: true,
		CodeID:  "frapcon",
		Name:    "FRAPCON",
		Label:   "Run FRAPCON",
		Tooltip: "Run FRAPCON",
		Action:  status.ActionRun,
		Command: "frapcon.run",
	}
}

func newTestModel(ctrl *fakeController) Model {
	return New(Config{
		Controller:  ctrl,
		StatsSource: &fakeStats{},
		CodeID:      "frapcon",
		Name:        "FRAPCON",
		Path:        "/work/rod.frpcon",
	})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// Tests: New
// =============================================================================

func TestNew(t *testing.T) {
	ctrl := &fakeController{item: runItem()}
	model := newTestModel(ctrl)

	if model.codeID != "frapcon" {
		t.Errorf("codeID = %s, want frapcon", model.codeID)
	}
	if model.status != runItem() {
		t.Errorf("status = %+v, want initial controller status", model.status)
	}
	if model.width != 80 {
		t.Errorf("width = %d, want 80", model.width)
	}
	if model.height != 24 {
		t.Errorf("height = %d, want 24", model.height)
	}
}

func TestNew_NilController(t *testing.T) {
	model := New(Config{CodeID: "serpent"})
	if model.Init() == nil {
		t.Error("Init() returned nil cmd")
	}
	if _, cmd := model.Update(key("r")); cmd != nil {
		t.Error("run without controller returned a cmd")
	}
	if !strings.Contains(model.View(), "No simulation code detected") {
		t.Error("hidden status not explained")
	}
}

// =============================================================================
// Tests: Init
// =============================================================================

func TestModel_Init(t *testing.T) {
	model := newTestModel(&fakeController{})
	if cmd := model.Init(); cmd == nil {
		t.Error("Init() returned nil cmd")
	}
}

func TestModel_Init_AutoRun(t *testing.T) {
	ctrl := &fakeController{}
	model := New(Config{Controller: ctrl, CodeID: "frapcon", AutoRun: true})

	msg := model.Init()()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		t.Fatalf("Init() msg = %T, want tea.BatchMsg", msg)
	}
	var ran bool
	for _, cmd := range batch {
		if _, ok := cmd().(actionMsg); ok {
			ran = true
			break
		}
	}
	if !ran {
		t.Fatal("autorun did not issue a run")
	}
	if len(ctrl.runs) != 1 || ctrl.runs[0] != "frapcon" {
		t.Errorf("runs = %v, want [frapcon]", ctrl.runs)
	}
}

// =============================================================================
// Tests: Update - Key Messages
// =============================================================================

func TestModel_Update_QuitKeys(t *testing.T) {
	tests := []struct {
		key      string
		wantQuit bool
	}{
		{"q", true},
		{"ctrl+c", true},
		{"esc", true},
		{"c", false},
		{"x", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			model := newTestModel(&fakeController{})
			newModel, cmd := model.Update(key(tt.key))
			m := newModel.(Model)

			if m.quitting != tt.wantQuit {
				t.Errorf("quitting = %v, want %v", m.quitting, tt.wantQuit)
			}
			if tt.wantQuit && cmd == nil {
				t.Error("expected tea.Quit cmd")
			}
		})
	}
}

func TestModel_Update_RunKey(t *testing.T) {
	ctrl := &fakeController{runErr: fmt.Errorf("frapcon: %w", controller.ErrExecutableNotSet)}
	model := newTestModel(ctrl)

	_, cmd := model.Update(key("r"))
	if cmd == nil {
		t.Fatal("expected run cmd")
	}
	msg := cmd()
	if len(ctrl.runs) != 1 || ctrl.runs[0] != "frapcon" {
		t.Fatalf("runs = %v, want [frapcon]", ctrl.runs)
	}

	newModel, _ := model.Update(msg)
	m := newModel.(Model)
	if !errors.Is(m.lastErr, controller.ErrExecutableNotSet) {
		t.Errorf("lastErr = %v, want ErrExecutableNotSet", m.lastErr)
	}
}

func TestModel_Update_TerminateKey(t *testing.T) {
	ctrl := &fakeController{}
	model := newTestModel(ctrl)

	_, cmd := model.Update(key("t"))
	if cmd == nil {
		t.Fatal("expected terminate cmd")
	}
	msg, ok := cmd().(actionMsg)
	if !ok || !msg.terminate || msg.err != nil {
		t.Errorf("terminate msg = %+v", msg)
	}
	if len(ctrl.terminates) != 1 || ctrl.terminates[0] != "frapcon" {
		t.Errorf("terminates = %v, want [frapcon]", ctrl.terminates)
	}
}

func TestModel_Update_ClearKey(t *testing.T) {
	model := newTestModel(&fakeController{})
	newModel, _ := model.Update(NotificationMsg{Message: "FRAPCON: hello"})
	newModel, _ = newModel.(Model).Update(actionMsg{err: errors.New("boom")})
	newModel, _ = newModel.(Model).Update(key("c"))
	m := newModel.(Model)

	if len(m.Lines()) != 0 || m.lastErr != nil {
		t.Errorf("after clear lines=%d lastErr=%v", len(m.Lines()), m.lastErr)
	}
}

// =============================================================================
// Tests: Update - Window Size
// =============================================================================

func TestModel_Update_WindowSize(t *testing.T) {
	model := newTestModel(&fakeController{})

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := newModel.(Model)

	if m.width != 120 {
		t.Errorf("width = %d, want 120", m.width)
	}
	if m.height != 40 {
		t.Errorf("height = %d, want 40", m.height)
	}
}

// =============================================================================
// Tests: Update - Tick
// =============================================================================

func TestModel_Update_Tick(t *testing.T) {
	ctrl := &fakeController{}
	source := &fakeStats{}
	model := New(Config{Controller: ctrl, StatsSource: source, CodeID: "frapcon"})

	if model.Running() {
		t.Fatal("Running() before any process")
	}

	ctrl.handles = []controller.RunInfo{{CodeID: "frapcon", Name: "FRAPCON", PID: 4242}}
	source.summaries = []stats.Summary{{CodeID: "frapcon", Runs: 2, Succeeded: 2}}

	newModel, cmd := model.Update(TickMsg(time.Now()))
	m := newModel.(Model)

	if !m.Running() {
		t.Error("Running() = false after tick with live handle")
	}
	if len(m.summaries) != 1 {
		t.Errorf("summaries = %d, want 1", len(m.summaries))
	}
	if cmd == nil {
		t.Error("expected tick cmd to be returned")
	}
}

// =============================================================================
// Tests: Update - Notifications and Status
// =============================================================================

func TestModel_Update_Notification(t *testing.T) {
	model := newTestModel(&fakeController{})

	var m tea.Model = model
	for i := 0; i < maxLines+10; i++ {
		m, _ = m.Update(NotificationMsg{Level: notify.LevelInfo, CodeID: "frapcon", Message: fmt.Sprintf("FRAPCON: line %d", i)})
	}
	lines := m.(Model).Lines()

	if len(lines) != maxLines {
		t.Fatalf("lines = %d, want %d", len(lines), maxLines)
	}
	if lines[0].Message != "FRAPCON: line 10" {
		t.Errorf("oldest line = %q, want line 10", lines[0].Message)
	}
	if lines[len(lines)-1].Message != fmt.Sprintf("FRAPCON: line %d", maxLines+9) {
		t.Errorf("newest line = %q", lines[len(lines)-1].Message)
	}
}

func TestModel_Update_StatusMsg(t *testing.T) {
	model := newTestModel(&fakeController{item: runItem()})
	item := runItem()
	item.Action = status.ActionTerminate
	item.Tooltip = "Terminate FRAPCON"

	newModel, _ := model.Update(StatusMsg(item))
	if got := newModel.(Model).status; got != item {
		t.Errorf("status = %+v, want %+v", got, item)
	}
	if view := newModel.(Model).View(); !strings.Contains(view, "⏹ FRAPCON") {
		t.Errorf("View() missing terminate control:\n%s", view)
	}
}

func TestModel_Update_QuitMsg(t *testing.T) {
	model := newTestModel(&fakeController{})

	newModel, cmd := model.Update(QuitMsg{})
	m := newModel.(Model)

	if !m.quitting {
		t.Error("quitting should be true after QuitMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit cmd")
	}
}

// =============================================================================
// Tests: View
// =============================================================================

func TestModel_View_Quitting(t *testing.T) {
	model := newTestModel(&fakeController{})
	model.quitting = true

	if view := model.View(); view != "" {
		t.Errorf("View() when quitting = %q, want empty", view)
	}
}

func TestModel_View_Dashboard(t *testing.T) {
	ctrl := &fakeController{
		item:    runItem(),
		handles: []controller.RunInfo{{CodeID: "frapcon", Name: "FRAPCON", Path: "/work/rod.frpcon", PID: 4242}},
	}
	model := New(Config{
		Controller: ctrl,
		StatsSource: &fakeStats{summaries: []stats.Summary{
			{CodeID: "frapcon", Runs: 3, Succeeded: 2, Failed: 1, LastExitCode: 1},
		}},
		CodeID: "frapcon",
		Name:   "FRAPCON",
		Path:   "/work/rod.frpcon",
	})
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	newModel, _ = newModel.(Model).Update(NotificationMsg{Level: notify.LevelError, CodeID: "frapcon", Message: "FRAPCON Error: bad deck"})

	view := newModel.(Model).View()
	for _, want := range []string{
		"simrun",
		"rod.frpcon",
		"▶ FRAPCON",
		"pid 4242",
		"3 runs",
		"(error)",
		"FRAPCON Error: bad deck",
		"q quit",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestModel_View_Empty(t *testing.T) {
	view := newTestModel(&fakeController{}).View()
	for _, want := range []string{"Nothing running.", "No output yet."} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Contains(view, "Runs") {
		t.Error("run stats shown without summaries")
	}
}

func TestModel_OutputHeight(t *testing.T) {
	model := newTestModel(&fakeController{})
	model.height = 10
	if got := model.outputHeight(); got != 3 {
		t.Errorf("outputHeight() = %d, want floor of 3", got)
	}
	model.height = 50
	if got := model.outputHeight(); got != 34 {
		t.Errorf("outputHeight() = %d, want 34", got)
	}
}

// =============================================================================
// Tests: Forwarder
// =============================================================================

func TestForwarder_DropsBeforeAttach(t *testing.T) {
	var f Forwarder
	f.Notify(notify.Notification{Message: "dropped"})
	f.Status(runItem())
	SendQuit(nil)
}

func TestModel_Elapsed(t *testing.T) {
	model := newTestModel(&fakeController{})
	model.startTime = time.Now().Add(-5 * time.Second)

	if elapsed := model.Elapsed(); elapsed < 5*time.Second || elapsed > 6*time.Second {
		t.Errorf("Elapsed() = %v, want ~5s", elapsed)
	}
}

// =============================================================================
// Tests: Output rate
// =============================================================================

func TestModel_OutputRate(t *testing.T) {
	ctrl := &fakeController{handles: []controller.RunInfo{{CodeID: "frapcon", Name: "FRAPCON", PID: 7}}}
	model := newTestModel(ctrl)

	var m tea.Model = model
	m, _ = m.Update(NotificationMsg{CodeID: "frapcon", Message: "0123456789"})
	m, _ = m.Update(NotificationMsg{CodeID: "serpent", Message: "ignored"})
	if got := m.(Model).OutputRate().Total; got != 10 {
		t.Errorf("Total = %d, want 10", got)
	}

	m, _ = m.Update(actionMsg{})
	if got := m.(Model).OutputRate().Total; got != 0 {
		t.Errorf("Total after new run = %d, want 0", got)
	}

	m, _ = m.Update(NotificationMsg{CodeID: "frapcon", Message: "abc"})
	m, _ = m.Update(actionMsg{terminate: true})
	if got := m.(Model).OutputRate().Total; got != 3 {
		t.Errorf("Total after terminate = %d, want 3", got)
	}

	if view := m.(Model).View(); !strings.Contains(view, "output:") {
		t.Errorf("View() missing output rate:\n%s", view)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{999, "999B"},
		{1500, "1.5kB"},
		{2_500_000, "2.5MB"},
		{3_000_000_000, "3GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
