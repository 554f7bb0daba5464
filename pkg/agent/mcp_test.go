package agent

import (
	"context"
	"testing"

	"github.com/flowdeck/agentcore/pkg/tools"
	"github.com/flowdeck/agentcore/pkg/types"
)

func TestConnectMCPServers_SkipsServerThatFailsToConnect(t *testing.T) {
	registry := tools.NewRegistry()
	config := &AgentConfig{
		ToolRegistry: registry,
		MCPServers: map[string]types.McpServerConfig{
			"broken": {Type: "stdio", Command: "/nonexistent/binary/does-not-exist"},
		},
	}

	client := connectMCPServers(context.Background(), config)
	if client == nil {
		t.Fatal("expected a non-nil client even when every server fails to connect")
	}
	if len(registry.Names()) != 0 {
		t.Fatalf("expected no tools registered from a failed connection, got %d", len(registry.Names()))
	}
}

func TestConnectMCPServers_NoopWhenNoServersConfigured(t *testing.T) {
	registry := tools.NewRegistry()
	config := &AgentConfig{ToolRegistry: registry, MCPServers: nil}

	client := connectMCPServers(context.Background(), config)
	if client == nil {
		t.Fatal("expected a non-nil client")
	}
}
