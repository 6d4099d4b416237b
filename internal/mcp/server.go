package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"waypoint/internal/tool"
)

// Version is reported to MCP peers.
var Version = "dev"

// NewServer exposes every tool of registry to MCP hosts.
func NewServer(registry *tool.Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: implementationName, Version: Version}, nil)
	for _, t := range registry.List() {
		server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: describe(t),
			InputSchema: t.Parameters(),
		}, handler(t))
	}
	return server
}

// Serve runs the tools of registry over stdio until ctx is done or the
// host disconnects.
func Serve(ctx context.Context, registry *tool.Registry) error {
	return NewServer(registry).Run(ctx, &mcp.StdioTransport{})
}

func describe(t tool.Tool) string {
	if bp := t.BestPractices(); bp != "" {
		return t.Description() + "\n\n" + bp
	}
	return t.Description()
}

func handler(t tool.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params json.RawMessage
		if req.Params != nil {
			params = req.Params.Arguments
		}

		res, err := t.Execute(ctx, params)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		if !res.Success {
			msg := res.Output
			if msg == "" {
				msg = res.Error
			}
			return errorResult(msg), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Output}},
		}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
