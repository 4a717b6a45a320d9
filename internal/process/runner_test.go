package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestExecBuilder_BuildCommand(t *testing.T) {
	b := NewExecBuilder()

	cmd, err := b.BuildCommand(context.Background(), " /usr/bin/frapcon ", "/tmp/a.inp")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Path != "/usr/bin/frapcon" {
		t.Errorf("Path = %q", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "/tmp/a.inp" {
		t.Errorf("Args = %v", cmd.Args)
	}
	if cmd.Dir != "/tmp" {
		t.Errorf("Dir = %q, want /tmp", cmd.Dir)
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		t.Error("command should run in its own process group")
	}
}

func TestExecBuilder_Errors(t *testing.T) {
	b := NewExecBuilder()
	testCases := []struct {
		name string
		exe  string
		file string
	}{
		{"blank exe", "   ", "/tmp/a.inp"},
		{"empty file", "/bin/true", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := b.BuildCommand(context.Background(), tc.exe, tc.file); err == nil {
				t.Error("expected error")
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.BuildCommand(ctx, "/bin/true", "/tmp/a"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled ctx: %v", err)
	}
}

func TestExecBuilder_Env(t *testing.T) {
	b := &ExecBuilder{Env: []string{"SIMRUN_TEST=1"}}
	cmd, err := b.BuildCommand(context.Background(), "/bin/sh", "/tmp/x")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, kv := range cmd.Env {
		if kv == "SIMRUN_TEST=1" {
			found = true
		}
	}
	if !found {
		t.Error("extra env not applied")
	}
}

func TestCommandString(t *testing.T) {
	if got := CommandString(" /usr/bin/frapcon", "/tmp/a.inp"); got != "/usr/bin/frapcon /tmp/a.inp" {
		t.Errorf("CommandString = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(errors.New("boom")); got != 1 {
		t.Errorf("ExitCode(other) = %d", got)
	}

	err := exec.Command("sh", "-c", "exit 3").Run()
	if got := ExitCode(err); got != 3 {
		t.Errorf("ExitCode(exit 3) = %d", got)
	}
}

func TestKill(t *testing.T) {
	if err := Kill(nil); err != nil {
		t.Errorf("Kill(nil) = %v", err)
	}

	cmd, _ := NewExecBuilder().BuildCommand(context.Background(), "sleep", "30")
	cmd.Dir = ""
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	if err := Kill(cmd); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if got := ExitCode(err); got != 128+9 {
			t.Errorf("exit code = %d, want 137", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process not killed")
	}
}

func TestKill_AfterReap(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 0")
	waitErr := cmd.Run()
	if cmd.Process == nil {
		t.Skipf("sh not available: %v", waitErr)
	}
	if Killed(waitErr) {
		t.Error("Killed(natural exit) = true")
	}

	if err := Kill(cmd); !errors.Is(err, os.ErrProcessDone) {
		t.Errorf("Kill after Wait = %v, want os.ErrProcessDone", err)
	}
}

func TestKilled(t *testing.T) {
	if Killed(nil) || Killed(errors.New("x")) {
		t.Error("Killed reported a non-signal error")
	}
	cmd := exec.Command("sh", "-c", "kill -9 $$")
	if err := cmd.Run(); !Killed(err) {
		t.Errorf("Killed(%v) = false, want true", err)
	}
	cmd = exec.Command("sh", "-c", "kill -15 $$")
	if err := cmd.Run(); Killed(err) {
		t.Errorf("Killed(SIGTERM) = true")
	}
}
