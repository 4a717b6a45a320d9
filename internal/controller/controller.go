// Package controller runs and terminates simulation processes, one per code
// id, against the focused document, and projects the result onto the status
// control.
//
// The handle map is the only record of what is running. Every status
// projection re-reads it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/randomizedcoder/simrun/internal/dialect"
	"github.com/randomizedcoder/simrun/internal/logging"
	"github.com/randomizedcoder/simrun/internal/metrics"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/process"
	"github.com/randomizedcoder/simrun/internal/stats"
	"github.com/randomizedcoder/simrun/internal/status"
	"github.com/randomizedcoder/simrun/internal/workspace"
)

// readBufferSize bounds a single output chunk.
const readBufferSize = 4096

// ExecutableFunc resolves the configured executable path for a code id.
// A blank result means "not configured".
type ExecutableFunc func(codeID string) string

// Observer receives the status projection after every state change. It may
// be called from process goroutines.
type Observer func(item status.Item)

// Config holds the collaborators of a Controller.
type Config struct {
	Registry    *dialect.Registry
	Workspace   *workspace.Store
	Executables ExecutableFunc

	// Optional.
	Builder  process.Builder
	Notifier notify.Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Stats    *stats.RunStats

	// LegacyExitReport reports every exit as "<NAME> finished." regardless
	// of exit code.
	LegacyExitReport bool
}

// Controller owns the code id to process handle map.
type Controller struct {
	registry    *dialect.Registry
	workspace   *workspace.Store
	executables ExecutableFunc
	builder     process.Builder
	notifier    notify.Notifier
	logger      *slog.Logger
	metrics     *metrics.Collector
	stats       *stats.RunStats
	legacy      bool

	// runMu serializes Run so the conflict check and insert are atomic
	// with respect to other runs.
	runMu sync.Mutex

	mu        sync.Mutex
	handles   map[string]*Handle
	observers map[int]Observer
	nextObs   int

	wg sync.WaitGroup
}

// New creates a controller. Registry and Workspace are required.
func New(cfg Config) *Controller {
	c := &Controller{
		registry:    cfg.Registry,
		workspace:   cfg.Workspace,
		executables: cfg.Executables,
		builder:     cfg.Builder,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		stats:       cfg.Stats,
		legacy:      cfg.LegacyExitReport,
		handles:     make(map[string]*Handle),
		observers:   make(map[int]Observer),
	}
	if c.registry == nil {
		c.registry = dialect.Default()
	}
	if c.workspace == nil {
		c.workspace = workspace.NewStore()
	}
	if c.executables == nil {
		c.executables = func(string) string { return "" }
	}
	if c.builder == nil {
		c.builder = process.NewExecBuilder()
	}
	if c.notifier == nil {
		c.notifier = notify.Discard
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// Registry returns the dialect registry the controller was built with.
func (c *Controller) Registry() *dialect.Registry { return c.registry }

// Workspace returns the document store.
func (c *Controller) Workspace() *workspace.Store { return c.workspace }

// Run launches the executable for codeID against the focused document.
//
// Rejections are reported through the notifier and returned as wrapped
// sentinel errors; none of them change the handle map.
func (c *Controller) Run(ctx context.Context, codeID string) error {
	d, ok := c.registry.Lookup(codeID)
	if !ok {
		return fmt.Errorf("%q: %w", codeID, ErrUnknownCode)
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.Running(codeID) {
		c.reject(d, metrics.ReasonAlreadyRunning, notify.LevelWarning,
			fmt.Sprintf("%s is already running.", d.DisplayName))
		return fmt.Errorf("%s: %w", d.DisplayName, ErrAlreadyRunning)
	}

	doc, ok := c.workspace.Active()
	if !ok {
		c.reject(d, metrics.ReasonNoDocument, notify.LevelError,
			fmt.Sprintf("No active document to run %s on.", d.DisplayName))
		return fmt.Errorf("%s: %w", d.DisplayName, ErrNoActiveDocument)
	}

	exePath := strings.TrimSpace(c.executables(d.ID))
	if exePath == "" {
		c.reject(d, metrics.ReasonNotConfigured, notify.LevelError,
			fmt.Sprintf("Executable path for %s not set. Please configure it in settings.", d.DisplayName))
		return fmt.Errorf("%s (%s): %w", d.DisplayName, d.ExecutableKey(), ErrExecutableNotSet)
	}

	// The process must observe the buffer as it was when run was requested.
	if err := c.workspace.Save(ctx, doc.Path); err != nil {
		c.reject(d, metrics.ReasonSaveFailed, notify.LevelError,
			fmt.Sprintf("Could not save %s before running %s: %v", filepath.Base(doc.Path), d.DisplayName, err))
		return fmt.Errorf("save before run: %w", err)
	}

	h, err := c.spawn(ctx, d, exePath, doc.Path)
	if err != nil {
		c.reject(d, metrics.ReasonSpawnFailed, notify.LevelError,
			fmt.Sprintf("Failed to start %s: %v", d.DisplayName, err))
		return fmt.Errorf("start %s: %w", d.DisplayName, err)
	}

	c.logger.Info("run_started",
		"code", d.ID,
		"pid", h.PID,
		"file", doc.Path,
		"executable", exePath,
	)
	c.metrics.RunStarted(d.ID)
	c.metrics.SetActive(d.ID, true)
	c.publish()
	return nil
}

// spawn starts the process, inserts its handle and wires output and exit
// handling. Nothing is inserted on failure.
func (c *Controller) spawn(ctx context.Context, d dialect.Descriptor, exePath, filePath string) (*Handle, error) {
	cmd, err := c.builder.BuildCommand(ctx, exePath, filePath)
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	h := newHandle(d.ID, d.DisplayName, filePath, cmd)

	c.mu.Lock()
	c.handles[d.ID] = h
	c.mu.Unlock()

	stdoutRec := logging.NewOutputRecorder(d.ID, "stdout", c.logger)
	stderrRec := logging.NewOutputRecorder(d.ID, "stderr", c.logger)

	var streams sync.WaitGroup
	streams.Add(2)
	go c.forward(&streams, d, stdout, "stdout", stdoutRec, notify.LevelInfo, d.DisplayName+": ")
	go c.forward(&streams, d, stderr, "stderr", stderrRec, notify.LevelError, d.DisplayName+" Error: ")

	c.wg.Add(1)
	go c.wait(h, d, &streams, stderrRec)

	return h, nil
}

// forward turns every chunk read from r into one notification.
func (c *Controller) forward(wg *sync.WaitGroup, d dialect.Descriptor, r io.Reader, stream string,
	rec *logging.OutputRecorder, level notify.Level, prefix string) {
	defer wg.Done()
	defer rec.Flush()

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			_, _ = rec.Write(chunk)
			c.metrics.OutputChunk(d.ID, stream, n)
			c.notifier.Notify(notify.Notification{
				Level:   level,
				CodeID:  d.ID,
				Message: prefix + string(chunk),
			})
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("output_read_ended", "code", d.ID, "stream", stream, "error", err)
			}
			return
		}
	}
}

// wait reaps the process, removes its handle and issues the single
// completion notification.
func (c *Controller) wait(h *Handle, d dialect.Descriptor, streams *sync.WaitGroup, stderrRec *logging.OutputRecorder) {
	defer c.wg.Done()

	// Pipes must be drained before Wait closes them.
	streams.Wait()
	waitErr := h.cmd.Wait()
	exitCode := process.ExitCode(waitErr)
	terminated := h.finish(exitCode, process.Killed(waitErr))
	uptime := h.Uptime()

	removed := c.remove(d.ID, h)

	outcome := stats.OutcomeSuccess
	switch {
	case terminated:
		outcome = stats.OutcomeTerminated
	case exitCode != 0:
		outcome = stats.OutcomeFailure
	}

	c.logger.Info("process_exited",
		"code", d.ID,
		"pid", h.PID,
		"exit_code", exitCode,
		"exit_label", stats.ExitCodeLabel(exitCode),
		"terminated", terminated,
		"uptime", uptime.String(),
		"last_stderr", stderrRec.LastLine(),
	)
	c.metrics.RunFinished(d.ID, outcome.String(), uptime)
	if removed {
		c.metrics.SetActive(d.ID, false)
	}
	c.stats.Record(d.ID, uptime, outcome, exitCode)

	c.notifier.Notify(c.completion(d, exitCode, terminated, stderrRec.LastLine()))
	if removed {
		c.publish()
	}
}

// completion builds the exit notification.
func (c *Controller) completion(d dialect.Descriptor, exitCode int, terminated bool, lastErr string) notify.Notification {
	n := notify.Notification{Level: notify.LevelInfo, CodeID: d.ID}
	switch {
	case c.legacy:
		n.Message = fmt.Sprintf("%s finished.", d.DisplayName)
	case terminated:
		n.Message = fmt.Sprintf("%s finished (terminated).", d.DisplayName)
	case exitCode == 0:
		n.Message = fmt.Sprintf("%s finished.", d.DisplayName)
	default:
		n.Level = notify.LevelError
		n.Message = fmt.Sprintf("%s failed with exit code %d.", d.DisplayName, exitCode)
		if lastErr = strings.TrimSpace(lastErr); lastErr != "" {
			n.Message += " Last error: " + lastErr
		}
	}
	return n
}

// Terminate kills the process for codeID and removes its handle without
// waiting for the exit. It reports false when nothing was running.
func (c *Controller) Terminate(codeID string) (bool, error) {
	d, ok := c.registry.Lookup(codeID)
	if !ok {
		return false, fmt.Errorf("%q: %w", codeID, ErrUnknownCode)
	}

	c.mu.Lock()
	h := c.handles[codeID]
	delete(c.handles, codeID)
	c.mu.Unlock()

	if h == nil || !h.markTerminating() || !c.kill(d, h) {
		if h != nil {
			// Exited on its own; wait still reports the completion.
			c.logger.Debug("terminate_after_exit", "code", d.ID, "pid", h.PID)
			c.metrics.SetActive(d.ID, false)
			c.publish()
		}
		c.notifier.Notify(notify.Notification{
			Level:   notify.LevelInfo,
			CodeID:  d.ID,
			Message: fmt.Sprintf("No running %s process found.", d.DisplayName),
		})
		return false, nil
	}

	c.logger.Info("run_terminated", "code", d.ID, "pid", h.PID)
	c.metrics.SetActive(d.ID, false)

	c.notifier.Notify(notify.Notification{
		Level:   notify.LevelWarning,
		CodeID:  d.ID,
		Message: fmt.Sprintf("%s terminated.", d.DisplayName),
	})
	c.publish()
	return true, nil
}

// kill signals the handle's process. It returns false if the process had
// already been reaped.
func (c *Controller) kill(d dialect.Descriptor, h *Handle) bool {
	err := process.Kill(h.cmd)
	switch {
	case errors.Is(err, os.ErrProcessDone):
		return false
	case err != nil:
		c.logger.Warn("kill_failed", "code", d.ID, "pid", h.PID, "error", err)
	}
	return true
}

// TerminateAll kills every running process. Used on shutdown.
func (c *Controller) TerminateAll() int {
	n := 0
	for _, id := range c.runningIDs() {
		if ok, _ := c.Terminate(id); ok {
			n++
		}
	}
	return n
}

// Wait blocks until every spawned process has been reaped or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remove deletes the handle for codeID only if it is still h. It reports
// whether anything was removed, so a terminate racing a natural exit removes
// the entry once.
func (c *Controller) remove(codeID string, h *Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles[codeID] != h {
		return false
	}
	delete(c.handles, codeID)
	return true
}

func (c *Controller) reject(d dialect.Descriptor, reason string, level notify.Level, msg string) {
	c.logger.Info("run_rejected", "code", d.ID, "reason", reason)
	c.metrics.RunRejected(d.ID, reason)
	c.notifier.Notify(notify.Notification{Level: level, CodeID: d.ID, Message: msg})
}

// Running reports whether a handle exists for codeID.
func (c *Controller) Running(codeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handles[codeID]
	return ok
}

// Handle returns the live handle for codeID.
func (c *Controller) Handle(codeID string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[codeID]
	return h, ok
}

// Handles returns a snapshot of every live process, sorted by code id.
func (c *Controller) Handles() []RunInfo {
	c.mu.Lock()
	hs := make([]*Handle, 0, len(c.handles))
	for _, h := range c.handles {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	out := make([]RunInfo, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CodeID < out[j].CodeID })
	return out
}

func (c *Controller) runningIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.handles))
	for id := range c.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Focus moves focus to an open document and publishes the new projection.
func (c *Controller) Focus(path string) error {
	if err := c.workspace.Focus(path); err != nil {
		return err
	}
	c.publish()
	return nil
}

// State derives the active document state from the focused document and
// the handle map.
func (c *Controller) State() status.ActiveDocumentState {
	doc, ok := c.workspace.Active()
	if !ok {
		return status.ActiveDocumentState{}
	}
	state := status.ActiveDocumentState{Path: doc.Path}
	id, ok := c.registry.Detect(filepath.Base(doc.Path), doc.Text)
	if !ok {
		return state
	}
	state.CodeID = id
	state.Detected = true
	state.Running = c.Running(id)
	return state
}

// Status returns the current status projection.
func (c *Controller) Status() status.Item {
	return status.Project(c.State(), c.registry)
}

// Subscribe registers an observer and returns a function that removes it.
// The observer is called once immediately with the current projection.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = o
	c.mu.Unlock()

	o(c.Status())

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Refresh recomputes and publishes the projection, e.g. after the focused
// document's text changed.
func (c *Controller) Refresh() { c.publish() }

func (c *Controller) publish() {
	item := c.Status()

	c.mu.Lock()
	obs := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		obs = append(obs, o)
	}
	c.mu.Unlock()

	for _, o := range obs {
		o(item)
	}
}

// ShutdownTimeout bounds how long Close waits for killed processes.
const ShutdownTimeout = 5 * time.Second

// Close terminates everything and waits for the exits to be reported.
func (c *Controller) Close() error {
	if n := c.TerminateAll(); n > 0 {
		c.logger.Info("terminated_on_shutdown", "count", n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return c.Wait(ctx)
}
