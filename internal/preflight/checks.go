// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/randomizedcoder/simrun/internal/dialect"
	"github.com/randomizedcoder/simrun/internal/docs"
)

// Note: syscall.RLIMIT_NPROC is not exported in Go's syscall package,
// so we read process limits from /proc/self/limits instead.

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Options are the inputs of RunAll.
type Options struct {
	Registry    *dialect.Registry
	Executables func(codeID string) string
	Docs        map[string]*docs.Table

	// LimitsPath overrides /proc/self/limits in tests.
	LimitsPath string
}

// RunAll executes all preflight checks. Only an executable that is
// configured but cannot be found fails the result; everything else that is
// missing degrades and is reported as a warning.
func RunAll(opts Options) *Result {
	ids := opts.Registry.IDs()
	result := &Result{
		Checks: make([]Check, 0, 2+3*len(ids)),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkFileDescriptors(len(ids)))
	limitsPath := opts.LimitsPath
	if limitsPath == "" {
		limitsPath = "/proc/self/limits"
	}
	add(checkProcessLimit(limitsPath, len(ids)))

	for _, d := range opts.Registry.All() {
		exe := ""
		if opts.Executables != nil {
			exe = opts.Executables(d.ID)
		}
		add(checkExecutable(d, exe))
		add(checkDocs(d, opts.Docs[d.ID]))
		add(checkKeywords(d))
	}
	return result
}

// checkFileDescriptors verifies there is room for one process per code.
func checkFileDescriptors(codes int) Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	// Each run holds two pipes plus whatever the simulation opens.
	required := codes*16 + 64
	actual := int(limit.Cur)

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, required),
	}
}

// checkProcessLimit verifies sufficient process slots are available.
func checkProcessLimit(limitsPath string, codes int) Check {
	required := codes + 16

	data, err := os.ReadFile(limitsPath)
	if err != nil {
		// Non-Linux or restricted access, assume OK
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	actual := parseMaxProcesses(string(data))
	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, required),
	}
}

// parseMaxProcesses reads the soft "Max processes" limit from the contents
// of /proc/self/limits. Returns 0 when absent.
func parseMaxProcesses(limits string) int {
	for _, line := range strings.Split(limits, "\n") {
		if !strings.HasPrefix(line, "Max processes") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return 0
		}
		if fields[2] == "unlimited" {
			return 1000000
		}
		actual := 0
		fmt.Sscanf(fields[2], "%d", &actual)
		return actual
	}
	return 0
}

// checkExecutable verifies the configured executable can be found. An
// unconfigured code is a warning: runs for it are rejected with a message.
func checkExecutable(d dialect.Descriptor, exe string) Check {
	name := d.ID + "_executable"
	exe = strings.TrimSpace(exe)
	if exe == "" {
		return Check{
			Name:    name,
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s not set", d.ExecutableKey()),
		}
	}

	resolved, err := exec.LookPath(exe)
	if err != nil {
		return Check{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", exe, err),
		}
	}
	return Check{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("found at %s", resolved),
	}
}

// checkDocs reports how many documentation entries were loaded.
func checkDocs(d dialect.Descriptor, t *docs.Table) Check {
	n := t.Len()
	return Check{
		Name:    d.ID + "_docs",
		Passed:  true,
		Warning: n == 0,
		Message: fmt.Sprintf("%d entries from %s", n, d.DocsFile),
	}
}

// checkKeywords reports whether content sniffing is available.
func checkKeywords(d dialect.Descriptor) Check {
	n := len(d.Keywords)
	msg := fmt.Sprintf("%d keywords", n)
	if n == 0 {
		msg = "none loaded, extension-only detection"
	}
	return Check{
		Name:    d.ID + "_keywords",
		Passed:  true,
		Warning: n == 0,
		Message: msg,
	}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch {
	case name == "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case name == "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	case strings.HasSuffix(name, "_executable"):
		id := strings.TrimSuffix(name, "_executable")
		return fmt.Sprintf("set %s.executablePath in settings, --exe %s=PATH or SIMRUN_%s_EXECUTABLE",
			id, id, strings.ToUpper(id))
	default:
		return "see documentation"
	}
}
