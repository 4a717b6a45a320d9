// Package process builds and controls the external simulation processes.
package process

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// Builder creates the command that runs a simulation executable against an
// input file. The command must not be started yet.
type Builder interface {
	BuildCommand(ctx context.Context, exePath, filePath string) (*exec.Cmd, error)
}

// ExecBuilder runs "exePath filePath" from the file's directory.
type ExecBuilder struct {
	// Env is appended to the inherited environment.
	Env []string
}

// NewExecBuilder creates a builder with the inherited environment.
func NewExecBuilder() *ExecBuilder {
	return &ExecBuilder{}
}

// BuildCommand creates the command. The child gets its own process group so
// that Kill reaches anything it forks. The command outlives ctx: simulations
// run until they exit or are killed.
func (b *ExecBuilder) BuildCommand(ctx context.Context, exePath, filePath string) (*exec.Cmd, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exePath = strings.TrimSpace(exePath)
	if exePath == "" {
		return nil, errors.New("empty executable path")
	}
	if filePath == "" {
		return nil, errors.New("empty input file path")
	}

	cmd := exec.Command(exePath, filePath)
	cmd.Dir = filepath.Dir(filePath)
	if len(b.Env) > 0 {
		cmd.Env = append(cmd.Environ(), b.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd, nil
}

// CommandString returns the command line that would be executed.
func CommandString(exePath, filePath string) string {
	return strings.TrimSpace(exePath) + " " + filePath
}

// Kill sends SIGKILL to a started command and then to its process group.
// It returns os.ErrProcessDone when the command was already reaped, in which
// case nothing is signalled.
func Kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Signal(syscall.SIGKILL); err != nil {
		return err
	}
	// Setpgid makes the leader's pid the group id.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// Killed reports whether a Wait error means the process died from SIGKILL.
func Killed(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() && status.Signal() == syscall.SIGKILL
}

// ExitCode extracts the exit code from a Wait error. Signalled processes
// report 128 plus the signal number.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}
	return 1
}
