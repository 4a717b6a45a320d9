// Package mcpserver exposes dialect detection, documentation lookup and the
// run controller as Model Context Protocol tools.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates the MCP server with every tool registered.
func NewServer(cfg *Config, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "simrun",
		Version: version,
	}, nil)

	mcp.AddTool(s, DetectDialectTool(), DetectDialectHandler(cfg))
	mcp.AddTool(s, LookupKeywordTool(), LookupKeywordHandler(cfg))
	mcp.AddTool(s, RunSimulationTool(), RunSimulationHandler(cfg))
	mcp.AddTool(s, TerminateSimulationTool(), TerminateSimulationHandler(cfg))
	mcp.AddTool(s, SimulationStatusTool(), SimulationStatusHandler(cfg))

	return s
}

// Run serves over stdio until the client disconnects or ctx ends. Running
// processes are killed on the way out.
func Run(ctx context.Context, cfg *Config, version string) error {
	defer cfg.Controller.Close()
	return NewServer(cfg, version).Run(ctx, &mcp.StdioTransport{})
}
