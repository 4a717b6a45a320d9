package controller

import (
	"os/exec"
	"sync"
	"time"
)

// State is the lifecycle state of a simulation process.
type State int32

const (
	// StateRunning means the process was spawned and has not exited.
	StateRunning State = iota

	// StateTerminating means a kill was sent and the exit is pending.
	StateTerminating

	// StateExited means Wait returned.
	StateExited
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Handle is one live simulation process. It is owned by the controller's
// handle map; callers only observe it.
type Handle struct {
	CodeID  string
	Name    string
	Path    string
	PID     int
	Started time.Time

	cmd  *exec.Cmd
	done chan struct{}

	mu         sync.Mutex
	state      State
	terminated bool
	exitCode   int
	duration   time.Duration
}

func newHandle(codeID, name, path string, cmd *exec.Cmd) *Handle {
	h := &Handle{
		CodeID:  codeID,
		Name:    name,
		Path:    path,
		Started: time.Now(),
		cmd:     cmd,
		done:    make(chan struct{}),
	}
	if cmd.Process != nil {
		h.PID = cmd.Process.Pid
	}
	return h
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Terminated reports whether a kill was requested for this process.
func (h *Handle) Terminated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated
}

// markTerminating moves a running handle to terminating. It returns false if
// the handle was not running.
func (h *Handle) markTerminating() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateRunning {
		return false
	}
	h.state = StateTerminating
	h.terminated = true
	return true
}

// finish records the exit and releases Done waiters. It returns whether the
// process was terminated: asked to terminate and then killed. A process that
// exited on its own while a kill was in flight is not.
func (h *Handle) finish(exitCode int, killed bool) (terminated bool) {
	h.mu.Lock()
	h.state = StateExited
	h.exitCode = exitCode
	h.duration = time.Since(h.Started)
	h.terminated = h.terminated && killed
	terminated = h.terminated
	h.mu.Unlock()
	close(h.done)
	return terminated
}

// Done is closed once the process has exited and its output was drained.
func (h *Handle) Done() <-chan struct{} { return h.done }

// ExitCode returns the exit code. Only meaningful after Done is closed.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// Uptime returns how long the process ran, or has been running so far.
func (h *Handle) Uptime() time.Duration {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.duration
	default:
		return time.Since(h.Started)
	}
}

// RunInfo is a snapshot of a live process for status surfaces.
type RunInfo struct {
	CodeID  string        `json:"code"`
	Name    string        `json:"name"`
	Path    string        `json:"path"`
	PID     int           `json:"pid"`
	State   string        `json:"state"`
	Started time.Time     `json:"started"`
	Uptime  time.Duration `json:"uptime_ns"`
}

func (h *Handle) info() RunInfo {
	return RunInfo{
		CodeID:  h.CodeID,
		Name:    h.Name,
		Path:    h.Path,
		PID:     h.PID,
		State:   h.State().String(),
		Started: h.Started,
		Uptime:  h.Uptime(),
	}
}
