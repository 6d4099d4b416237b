package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"waypoint/internal/config"
	"waypoint/internal/tool"
)

type echoTool struct{}

func (echoTool) Name() string          { return "echo" }
func (echoTool) Description() string   { return "Echoes the city back" }
func (echoTool) BestPractices() string { return "" }
func (echoTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
	}
}

func (echoTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var args struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, err
	}
	if args.City == "" {
		return nil, errors.New("city is required")
	}
	return &tool.Result{Success: true, Output: "hello " + args.City}, nil
}

// connectPair serves registry in memory and returns a client connected to it.
func connectPair(t *testing.T, name string, registry *tool.Registry) *Client {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := NewServer(registry).Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client, err := Connect(ctx, name, clientTransport)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestServer_ListsAndCallsTools(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister(echoTool{})
	client := connectPair(t, "local", reg)

	if len(client.Tools()) != 1 || client.Tools()[0].Name != "echo" {
		t.Fatalf("unexpected tools: %+v", client.Tools())
	}

	res, err := client.CallTool(context.Background(), "echo", map[string]any{"city": "Paris"})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError || contentText(res.Content) != "hello Paris" {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = client.CallTool(context.Background(), "echo", map[string]any{})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if !res.IsError || !strings.Contains(contentText(res.Content), "city is required") {
		t.Errorf("expected tool error, got %+v", res)
	}
}

func TestManager_MountsRemoteTools(t *testing.T) {
	remote := tool.NewRegistry()
	remote.MustRegister(echoTool{})
	client := connectPair(t, "geo", remote)

	local := tool.NewRegistry()
	m := NewManager(local, nil)
	if err := m.add(client); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if names := m.ToolNames(); len(names) != 1 || names[0] != "geo_echo" {
		t.Fatalf("unexpected tool names: %v", names)
	}

	rt, err := local.Get("geo_echo")
	if err != nil {
		t.Fatalf("remote tool not registered: %v", err)
	}
	if !strings.Contains(rt.Description(), "[MCP server: geo]") {
		t.Errorf("unexpected description: %q", rt.Description())
	}
	if rt.Parameters()["type"] != "object" {
		t.Errorf("unexpected schema: %v", rt.Parameters())
	}

	res, err := rt.Execute(context.Background(), json.RawMessage(`{"city":"Lyon"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success || res.Output != "hello Lyon" {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = rt.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Success || !strings.Contains(res.Error, "city is required") {
		t.Errorf("expected failed result, got %+v", res)
	}
}

// aliasTool is echoTool under another name.
type aliasTool struct {
	echoTool
	name string
}

func (a aliasTool) Name() string { return a.name }

func TestManager_FailedMountLeavesNoTools(t *testing.T) {
	remote := tool.NewRegistry()
	remote.MustRegister(aliasTool{name: "alpha"}, echoTool{})
	client := connectPair(t, "geo", remote)

	local := tool.NewRegistry()
	local.MustRegister(aliasTool{name: "geo_echo"})

	m := NewManager(local, nil)
	if err := m.add(client); err == nil {
		t.Fatal("expected duplicate tool name to fail the mount")
	}

	if _, err := local.Get("geo_alpha"); err == nil {
		t.Error("tools of a failed server must be removed from the registry")
	}
	if names := local.Names(); len(names) != 1 || names[0] != "geo_echo" {
		t.Errorf("unexpected registry contents: %v", names)
	}
	if len(m.ToolNames()) != 0 || len(m.Servers()) != 0 {
		t.Errorf("failed server recorded: tools=%v servers=%v", m.ToolNames(), m.Servers())
	}
}

func TestManager_Mount(t *testing.T) {
	m := NewManager(tool.NewRegistry(), nil)
	m.dial = func(ctx context.Context, cfg config.MCPServerConfig) (*Client, error) {
		return nil, errors.New("command not found")
	}

	if err := m.Mount(context.Background(), config.MCPConfig{}); err != nil {
		t.Errorf("no servers should not fail: %v", err)
	}

	cfg := config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "a", Transport: "stdio", Command: "missing"},
		{Name: "b", Transport: "stdio", Command: "missing", Disabled: true},
	}}
	err := m.Mount(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "command not found") {
		t.Errorf("expected all-failed error, got %v", err)
	}
	if len(m.Servers()) != 0 {
		t.Errorf("expected no servers, got %v", m.Servers())
	}
}

func TestEnvList(t *testing.T) {
	got := envList(map[string]string{"B": "2", "A": "1"})
	if strings.Join(got, ",") != "A=1,B=2" {
		t.Errorf("unexpected env: %v", got)
	}
}
