// Package mcp provides the mac MCP server: the commands a frontend can
// invoke to greet the user and to query or start the container system.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"time"

	"github.com/deixis/mac"
	"github.com/deixis/mac/internal/container"
	"github.com/deixis/mac/internal/history"
	"github.com/deixis/mac/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// History is the read side of the run history.
// Implemented by history.LRUStore.
type History interface {
	Load(runID string) (*history.Entry, error)
	Recent(n int) []*history.Entry
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	system  *container.System
	history History // nil disables inspect_run and recent_runs
	logger  *slog.Logger
}

// NewServer creates an MCP server with all mac tools registered.
func NewServer(system *container.System, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	h := &handler{
		system:  system,
		history: so.history,
		logger:  so.logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "mac", Version: mac.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "greet",
		Description: "Greet a user by name.",
	}, h.greetHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "check_container_version",
		Description: `Report the installed Apple container CLI version (container --version).

Fails with NotInstalled when the CLI cannot be found.`,
	}, h.versionHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "check_container_system_status",
		Description: `Report the container system status (container system status).

Fails with SystemNotRunning when the apiserver is down, even if the CLI exited successfully.`,
	}, h.statusHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "start_container_system",
		Description: `Start the container system (container system start), answering its confirmation prompt.

The output may be empty on success. Blocks until the CLI exits.`,
	}, h.startHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "container_preflight",
		Description: `Check that the container CLI is installed and its system is running, in that order.

Pass start=true to start the system when it is stopped and check again.`,
	}, h.preflightHandler)

	if h.history != nil {
		mcp.AddTool(s, &mcp.Tool{
			Name:        "inspect_run",
			Description: "Show the raw argv, exit code, stdout and stderr of a past container CLI run, by the run ID reported in a failure.",
		}, h.inspectHandler)

		mcp.AddTool(s, &mcp.Tool{
			Name:        "recent_runs",
			Description: "List recent container CLI runs, most recent first.",
		}, h.recentHandler)
	}

	return s
}

// ServerOption configures the mac MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	history History
	logger  *slog.Logger
}

// WithHistory exposes run history through inspect_run and recent_runs.
func WithHistory(h History) ServerOption {
	return func(o *serverOptions) {
		o.history = h
	}
}

// WithLogger sets the logger used by tool handlers.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// observe times fn and records the outcome in metrics.
func (h *handler) observe(ctx context.Context, op container.Op, fn func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	out, err := fn(ctx)
	metrics.Observe(op, err, time.Since(start))
	h.logger.DebugContext(ctx, "tool finished", "op", op, "outcome", metrics.Outcome(err), "duration", time.Since(start))
	return out, err
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
