package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"waypoint/internal/tool"
)

// RemoteTool exposes one tool of an external MCP server as a tool.Tool
// named <server>_<tool>.
type RemoteTool struct {
	client *Client
	remote *mcp.Tool
	name   string
}

func NewRemoteTool(client *Client, remote *mcp.Tool) *RemoteTool {
	return &RemoteTool{
		client: client,
		remote: remote,
		name:   client.Name() + "_" + remote.Name,
	}
}

func (t *RemoteTool) Name() string {
	return t.name
}

func (t *RemoteTool) Description() string {
	desc := t.remote.Description
	if desc == "" {
		desc = "External tool " + t.remote.Name
	}
	return fmt.Sprintf("%s\n\n[MCP server: %s]", desc, t.client.Name())
}

func (t *RemoteTool) BestPractices() string {
	return ""
}

// Parameters returns the remote input schema, or an empty object schema
// when it cannot be represented as a map.
func (t *RemoteTool) Parameters() map[string]any {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}

	switch s := t.remote.InputSchema.(type) {
	case nil:
		return empty
	case map[string]any:
		return s
	}

	raw, err := json.Marshal(t.remote.InputSchema)
	if err != nil {
		return empty
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil || schema == nil {
		return empty
	}
	return schema
}

// Execute forwards the call. Remote failures come back as failed results so
// the model sees them as an error payload.
func (t *RemoteTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	args := map[string]any{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	res, err := t.client.CallTool(ctx, t.remote.Name, args)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}

	text := contentText(res.Content)
	if res.IsError {
		if text == "" {
			text = "remote tool returned an error"
		}
		return &tool.Result{Success: false, Error: text}, nil
	}

	return &tool.Result{
		Success: true,
		Output:  text,
		Data: map[string]any{
			"mcp_server": t.client.Name(),
			"mcp_tool":   t.remote.Name,
		},
	}, nil
}

func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		switch c := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.ImageContent:
			parts = append(parts, "[image: "+c.MIMEType+"]")
		case *mcp.AudioContent:
			parts = append(parts, "[audio: "+c.MIMEType+"]")
		default:
			if data, err := json.Marshal(item); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}
