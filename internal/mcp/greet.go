package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type greetParams struct {
	Name string `json:"name" jsonschema:"name of the person to greet"`
}

// Greet returns the greeting shown by the frontend.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from Go!", name)
}

func (h *handler) greetHandler(ctx context.Context, req *mcp.CallToolRequest, params greetParams) (*mcp.CallToolResult, any, error) {
	return textResult(Greet(params.Name))
}
