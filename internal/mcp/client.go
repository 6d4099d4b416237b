// Package mcp mounts external MCP servers into the tool registry and
// serves the search tools to MCP hosts.
package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const implementationName = "waypoint"

// Client is a connected session to one external MCP server.
type Client struct {
	name    string
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// Dial starts command and connects to it over stdio.
func Dial(ctx context.Context, name, command string, args []string, env map[string]string) (*Client, error) {
	cmd := exec.Command(command, args...)
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), envList(env)...)
	}
	return Connect(ctx, name, &mcp.CommandTransport{Command: cmd})
}

// Connect opens a session over transport and caches the server's tool list.
func Connect(ctx context.Context, name string, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: implementationName, Version: Version}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	var tools []*mcp.Tool
	for t, err := range session.Tools(ctx, nil) {
		if err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		tools = append(tools, t)
	}

	return &Client{name: name, session: session, tools: tools}, nil
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Tools() []*mcp.Tool {
	return c.tools
}

// CallTool runs toolName on the remote server.
func (c *Client) CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("call tool request failed: %w", err)
	}
	return result, nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
