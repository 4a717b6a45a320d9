package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/dialect"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/preflight"
	"github.com/randomizedcoder/simrun/internal/process"
	"github.com/randomizedcoder/simrun/internal/stats"
	"github.com/randomizedcoder/simrun/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the detected code on an input file",
	Long: `Detect the code an input file is written for and run its executable on it
from the file's directory. Output is streamed to a dashboard, or to
stdout/stderr with --no-tui. Ctrl+C terminates the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runFile(ctx context.Context, file string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	a := newApp(!cfg.NoTUI && !cfg.PrintCmd)
	defer a.close()

	d, err := pickDialect(a.registry, path)
	if err != nil {
		return err
	}

	if cfg.PrintCmd {
		exe := cfg.Executable(d.ID)
		if exe == "" {
			return fmt.Errorf("%w: %s", controller.ErrExecutableNotSet, d.DisplayName)
		}
		fmt.Fprintf(stdout, "# %s command, run from %s:\n\n", d.DisplayName, filepath.Dir(path))
		fmt.Fprintln(stdout, process.CommandString(exe, path))
		return nil
	}

	if !cfg.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Registry:    a.registry,
			Executables: cfg.Executable,
			Docs:        a.docs,
		})
		if !result.Passed || cfg.Verbose {
			preflight.PrintResults(stderr, result)
		}
		if !result.Passed {
			return fmt.Errorf("preflight checks failed (use --skip-preflight to bypass)")
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting", "mode", "run", "version", version, "code", d.ID, "file", path)

	if cfg.NoTUI {
		err = runPlain(ctx, a, d, path, stdout, stderr)
	} else {
		err = runDashboard(ctx, a, d, path)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stderr, stats.FormatExitSummary(a.stats.Summaries(), a.names(), time.Since(a.started)))
	return runOutcome(a.stats, d)
}

// pickDialect honours --code, otherwise detects from the file name and
// contents.
func pickDialect(r *dialect.Registry, path string) (dialect.Descriptor, error) {
	if cfg.CodeID != "" {
		d, _ := r.Lookup(cfg.CodeID)
		return d, nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return dialect.Descriptor{}, err
	}
	id, ok := r.Detect(filepath.Base(path), string(text))
	if !ok {
		return dialect.Descriptor{}, fmt.Errorf("no simulation code detected for %s (use --code)", filepath.Base(path))
	}
	d, _ := r.Lookup(id)
	return d, nil
}

// openAndFocus makes path the controller's active document.
func openAndFocus(ctrl *controller.Controller, path string) error {
	if _, err := ctrl.Workspace().OpenFile(path); err != nil {
		return err
	}
	return ctrl.Focus(path)
}

// runPlain streams notifications to the terminal and blocks until the
// process exits or ctx ends.
func runPlain(ctx context.Context, a *app, d dialect.Descriptor, path string, stdout, stderr io.Writer) error {
	ctrl := a.newController(notify.Func(func(n notify.Notification) {
		w := stdout
		if n.Level != notify.LevelInfo {
			w = stderr
		}
		msg := n.Message
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		_, _ = io.WriteString(w, msg)
	}))
	defer ctrl.Close()

	if err := a.startMetrics(ctrl); err != nil {
		return err
	}
	if err := openAndFocus(ctrl, path); err != nil {
		return err
	}
	if err := ctrl.Run(ctx, d.ID); err != nil {
		return err
	}

	if h, ok := ctrl.Handle(d.ID); ok {
		select {
		case <-h.Done():
		case <-ctx.Done():
			a.logger.Info("interrupted", "code", d.ID)
			_, _ = ctrl.Terminate(d.ID)
		}
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), controller.ShutdownTimeout)
	defer cancel()
	return ctrl.Wait(waitCtx)
}

// runDashboard shows the terminal dashboard until the user quits.
func runDashboard(ctx context.Context, a *app, d dialect.Descriptor, path string) error {
	fwd := &tui.Forwarder{}
	ctrl := a.newController(fwd)
	unsubscribe := ctrl.Subscribe(fwd.Status)
	defer unsubscribe()

	if err := a.startMetrics(ctrl); err != nil {
		_ = ctrl.Close()
		return err
	}
	if err := openAndFocus(ctrl, path); err != nil {
		_ = ctrl.Close()
		return err
	}

	model := tui.New(tui.Config{
		Controller:  ctrl,
		StatsSource: a.stats,
		CodeID:      d.ID,
		Name:        d.DisplayName,
		Path:        path,
		AutoRun:     true,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	fwd.Attach(p)

	go func() {
		<-ctx.Done()
		tui.SendQuit(p)
	}()

	_, err := p.Run()
	fwd.Attach(nil)
	if cerr := ctrl.Close(); err == nil {
		err = cerr
	}
	return err
}

// runOutcome turns the last run of d into the command's exit status.
func runOutcome(s *stats.RunStats, d dialect.Descriptor) error {
	sum, ok := s.Summary(d.ID)
	if !ok {
		return fmt.Errorf("%s did not run", d.DisplayName)
	}
	if sum.LastExitCode != 0 && sum.Terminated == 0 {
		return fmt.Errorf("%s failed with exit code %d %s", d.DisplayName, sum.LastExitCode, stats.ExitCodeLabel(sum.LastExitCode))
	}
	return nil
}
