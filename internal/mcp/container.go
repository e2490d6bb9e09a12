package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/mac/internal/container"
	"github.com/deixis/mac/internal/metrics"
	"github.com/deixis/mac/internal/preflight"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type noParams struct{}

func (h *handler) versionHandler(ctx context.Context, req *mcp.CallToolRequest, _ noParams) (*mcp.CallToolResult, any, error) {
	return containerResult(h.observe(ctx, container.OpVersion, h.system.Version))
}

func (h *handler) statusHandler(ctx context.Context, req *mcp.CallToolRequest, _ noParams) (*mcp.CallToolResult, any, error) {
	return containerResult(h.observe(ctx, container.OpStatus, h.system.Status))
}

func (h *handler) startHandler(ctx context.Context, req *mcp.CallToolRequest, _ noParams) (*mcp.CallToolResult, any, error) {
	return containerResult(h.observe(ctx, container.OpStart, h.system.Start))
}

type preflightParams struct {
	Start bool `json:"start,omitempty" jsonschema:"start the container system if it is not running, then check again. Default: false."`
}

func (h *handler) preflightHandler(ctx context.Context, req *mcp.CallToolRequest, params preflightParams) (*mcp.CallToolResult, any, error) {
	c := &preflight.Checker{System: &observed{h: h}, AutoStart: params.Start}
	rep := c.Run(ctx)
	if !rep.Ready() {
		return errorResult(rep.String())
	}
	return textResult(rep.String())
}

// observed routes preflight calls through the handler's metrics.
type observed struct{ h *handler }

func (o *observed) Version(ctx context.Context) (string, error) {
	return o.h.observe(ctx, container.OpVersion, o.h.system.Version)
}

func (o *observed) Status(ctx context.Context) (string, error) {
	return o.h.observe(ctx, container.OpStatus, o.h.system.Status)
}

func (o *observed) Start(ctx context.Context) (string, error) {
	return o.h.observe(ctx, container.OpStart, o.h.system.Start)
}

// containerResult maps a facade outcome onto a tool result. Failures carry
// the message on the first line so a frontend can show it verbatim.
func containerResult(out string, err error) (*mcp.CallToolResult, any, error) {
	if err == nil {
		return textResult(out)
	}
	return errorResult(formatFailure(err))
}

func formatFailure(err error) string {
	var b strings.Builder
	fmt.Fprintln(&b, err.Error())
	fmt.Fprintf(&b, "Kind: %s\n", metrics.Outcome(err))

	var ce *container.Error
	if errors.As(err, &ce) {
		if ce.RunID != "" {
			fmt.Fprintf(&b, "Run: %s\n", ce.RunID)
		}
		if r := ce.Remediation(); r != "" {
			fmt.Fprintf(&b, "Action: %s\n", r)
		}
	}
	return b.String()
}
