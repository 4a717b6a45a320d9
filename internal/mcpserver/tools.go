package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/docs"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/stats"
)

// Config holds what the tool handlers need.
type Config struct {
	Controller *controller.Controller
	Docs       map[string]*docs.Table
	Stats      *stats.RunStats
	Recent     *notify.Ring
}

// DetectDialectInput is the input schema for the detect_dialect tool
type DetectDialectInput struct {
	File string `json:"file" jsonschema:"Path of the input file; the extension is checked first"`
	Text string `json:"text,omitempty" jsonschema:"File content to sniff; read from the file when omitted"`
}

// DetectDialectTool creates the detect_dialect MCP tool
func DetectDialectTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "detect_dialect",
		Description: "Detect which simulation code (FRAPCON, FRAPTRAN, SERPENT) an input file is written for. The file extension wins; otherwise the content is scanned for known keywords.",
	}
}

// DetectDialectHandler handles the detect_dialect tool invocation
func DetectDialectHandler(cfg *Config) func(context.Context, *mcp.CallToolRequest, DetectDialectInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DetectDialectInput) (*mcp.CallToolResult, any, error) {
		if input.File == "" {
			return nil, nil, fmt.Errorf("file path is required")
		}

		text := input.Text
		if text == "" {
			data, err := os.ReadFile(input.File)
			if err != nil && !os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("read %s: %w", input.File, err)
			}
			text = string(data)
		}

		r := cfg.Controller.Registry()
		id, ok := r.Detect(filepath.Base(input.File), text)
		if !ok {
			return textResult(fmt.Sprintf("No simulation code detected for %s", input.File)), nil, nil
		}
		d, _ := r.Lookup(id)
		return textResult(fmt.Sprintf("%s (%s): run with %s, terminate with %s",
			d.ID, d.DisplayName, d.RunCommand(), d.TerminateCommand())), nil, nil
	}
}

// LookupKeywordInput is the input schema for the lookup_keyword tool
type LookupKeywordInput struct {
	Code string `json:"code" jsonschema:"Code id: frapcon, fraptran or serpent"`
	Name string `json:"name,omitempty" jsonschema:"Input variable name; omit to list every documented input"`
}

// LookupKeywordTool creates the lookup_keyword MCP tool
func LookupKeywordTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "lookup_keyword",
		Description: "Show the documentation of an input variable for a simulation code, or list every documented input with whether it is required.",
	}
}

// LookupKeywordHandler handles the lookup_keyword tool invocation
func LookupKeywordHandler(cfg *Config) func(context.Context, *mcp.CallToolRequest, LookupKeywordInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LookupKeywordInput) (*mcp.CallToolResult, any, error) {
		d, ok := cfg.Controller.Registry().Lookup(input.Code)
		if !ok {
			return nil, nil, fmt.Errorf("unknown code %q", input.Code)
		}
		table := cfg.Docs[d.ID]

		if input.Name != "" {
			md, ok := table.Hover(input.Name)
			if !ok {
				return textResult(fmt.Sprintf("%s has no documentation for %q", d.DisplayName, input.Name)), nil, nil
			}
			return textResult(md), nil, nil
		}

		entries := table.Entries()
		if len(entries) == 0 {
			return textResult(fmt.Sprintf("No documentation loaded for %s", d.DisplayName)), nil, nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s inputs (%d)\n\n", d.DisplayName, len(entries))
		for _, e := range entries {
			need := "optional"
			if e.Required {
				need = "required"
			}
			fmt.Fprintf(&sb, "- **%s** (%s)", e.Name, need)
			if e.InputBlock != "" {
				fmt.Fprintf(&sb, " in %s", e.InputBlock)
			}
			sb.WriteString("\n")
		}
		return textResult(sb.String()), nil, nil
	}
}

// RunSimulationInput is the input schema for the run_simulation tool
type RunSimulationInput struct {
	File string `json:"file" jsonschema:"Path of the input file to run"`
	Code string `json:"code,omitempty" jsonschema:"Code id to run; detected from the file when omitted"`
}

// RunSimulationTool creates the run_simulation MCP tool
func RunSimulationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "run_simulation",
		Description: "Start the configured simulation executable on an input file. Only one process per code may run at a time. Output is collected and can be read with simulation_status.",
	}
}

// RunSimulationHandler handles the run_simulation tool invocation
func RunSimulationHandler(cfg *Config) func(context.Context, *mcp.CallToolRequest, RunSimulationInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RunSimulationInput) (*mcp.CallToolResult, any, error) {
		if input.File == "" {
			return nil, nil, fmt.Errorf("file path is required")
		}
		ctrl := cfg.Controller

		doc, err := ctrl.Workspace().OpenFile(input.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", input.File, err)
		}
		if err := ctrl.Focus(doc.Path); err != nil {
			return nil, nil, err
		}

		code := input.Code
		if code == "" {
			id, ok := ctrl.Registry().Detect(filepath.Base(doc.Path), doc.Text)
			if !ok {
				return errorResult(fmt.Sprintf("No simulation code detected for %s; pass code explicitly", input.File)), nil, nil
			}
			code = id
		}

		if err := ctrl.Run(ctx, code); err != nil {
			return errorResult(err.Error()), nil, nil
		}

		h, ok := ctrl.Handle(code)
		if !ok {
			// Exited before we looked.
			return textResult(fmt.Sprintf("Started %s on %s; it has already exited", code, doc.Path)), nil, nil
		}
		return textResult(fmt.Sprintf("Started %s (pid %d) on %s", h.Name, h.PID, doc.Path)), nil, nil
	}
}

// TerminateSimulationInput is the input schema for the terminate_simulation tool
type TerminateSimulationInput struct {
	Code string `json:"code" jsonschema:"Code id whose process should be killed"`
}

// TerminateSimulationTool creates the terminate_simulation MCP tool
func TerminateSimulationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "terminate_simulation",
		Description: "Kill the running process of a simulation code. Reports when nothing is running.",
	}
}

// TerminateSimulationHandler handles the terminate_simulation tool invocation
func TerminateSimulationHandler(cfg *Config) func(context.Context, *mcp.CallToolRequest, TerminateSimulationInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TerminateSimulationInput) (*mcp.CallToolResult, any, error) {
		d, ok := cfg.Controller.Registry().Lookup(input.Code)
		if !ok {
			return nil, nil, fmt.Errorf("unknown code %q", input.Code)
		}
		killed, err := cfg.Controller.Terminate(d.ID)
		if err != nil {
			return nil, nil, err
		}
		if !killed {
			return textResult(fmt.Sprintf("No running %s process found.", d.DisplayName)), nil, nil
		}
		return textResult(fmt.Sprintf("%s terminated.", d.DisplayName)), nil, nil
	}
}

// SimulationStatusInput is the input schema for the simulation_status tool
type SimulationStatusInput struct {
	Code  string `json:"code,omitempty" jsonschema:"Restrict to one code id"`
	Lines int    `json:"lines,omitempty" jsonschema:"How many recent messages to include (default 20)"`
}

// SimulationStatusTool creates the simulation_status MCP tool
func SimulationStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_status",
		Description: "List running simulation processes, completed run statistics, and the most recent output and status messages.",
	}
}

// SimulationStatusHandler handles the simulation_status tool invocation
func SimulationStatusHandler(cfg *Config) func(context.Context, *mcp.CallToolRequest, SimulationStatusInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SimulationStatusInput) (*mcp.CallToolResult, any, error) {
		if input.Code != "" {
			if _, ok := cfg.Controller.Registry().Lookup(input.Code); !ok {
				return nil, nil, fmt.Errorf("unknown code %q", input.Code)
			}
		}
		lines := input.Lines
		if lines <= 0 {
			lines = 20
		}

		var sb strings.Builder
		sb.WriteString("# Running\n\n")
		running := 0
		for _, h := range cfg.Controller.Handles() {
			if input.Code != "" && h.CodeID != input.Code {
				continue
			}
			running++
			fmt.Fprintf(&sb, "- %s pid %d on %s (%s, up %s)\n",
				h.Name, h.PID, h.Path, h.State, stats.FormatDuration(h.Uptime))
		}
		if running == 0 {
			sb.WriteString("(none)\n")
		}

		var summaries []stats.Summary
		for _, s := range cfg.Stats.Summaries() {
			if input.Code == "" || s.CodeID == input.Code {
				summaries = append(summaries, s)
			}
		}
		if len(summaries) > 0 {
			sb.WriteString("\n# Completed runs\n\n")
			for _, s := range summaries {
				fmt.Fprintf(&sb, "- %s: %d runs (%d ok, %d failed, %d terminated), p50 %s, max %s, last exit %d %s\n",
					s.CodeID, s.Runs, s.Succeeded, s.Failed, s.Terminated,
					stats.FormatShort(s.P50), stats.FormatShort(s.Max),
					s.LastExitCode, stats.ExitCodeLabel(s.LastExitCode))
			}
		}

		if cfg.Recent != nil {
			recent := cfg.Recent.Recent(input.Code, lines)
			if len(recent) > 0 {
				sb.WriteString("\n# Recent messages\n\n")
				for _, n := range recent {
					fmt.Fprintf(&sb, "[%s] %s\n", n.Level, strings.TrimRight(n.Message, "\n"))
				}
			}
		}
		return textResult(sb.String()), nil, nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	r := textResult(text)
	r.IsError = true
	return r
}
