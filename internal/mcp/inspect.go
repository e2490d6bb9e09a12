package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/mac/internal/history"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a failed container tool result"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	entry, err := h.history.Load(params.RunID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return errorResult(fmt.Sprintf("No run %s in history.", params.RunID))
		}
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	return textResult(formatEntry(entry))
}

type recentParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to list. Default: all retained runs."`
}

func (h *handler) recentHandler(ctx context.Context, req *mcp.CallToolRequest, params recentParams) (*mcp.CallToolResult, any, error) {
	entries := h.history.Recent(params.Limit)
	if len(entries) == 0 {
		return textResult("No runs recorded.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runs (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s\n", e.Summary())
	}
	return textResult(b.String())
}

func formatEntry(e *history.Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", e.ID)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(e.Argv, " "))
	if e.LaunchError != "" {
		fmt.Fprintf(&b, "Launch error: %s\n", e.LaunchError)
	} else {
		fmt.Fprintf(&b, "Exit code: %d\n", e.ExitCode)
	}
	fmt.Fprintf(&b, "Started: %s (%s)\n", e.StartedAt.Format("2006-01-02 15:04:05"), e.Duration)
	if e.Truncated {
		fmt.Fprintln(&b, "Output truncated.")
	}

	for _, stream := range []struct{ name, text string }{{"Stdout", e.Stdout}, {"Stderr", e.Stderr}} {
		if stream.text == "" {
			continue
		}
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s:\n", stream.name)
		for _, line := range strings.Split(strings.TrimRight(stream.text, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return b.String()
}
