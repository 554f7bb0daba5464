package agent

import (
	"context"
	"time"

	"github.com/flowdeck/agentcore/pkg/mcp"
)

// mcpConnectTimeout bounds how long a single server gets to connect before
// the loop gives up on it and moves on to the next one.
const mcpConnectTimeout = 15 * time.Second

// connectMCPServers connects every server in config.MCPServers and registers
// their tools into config.ToolRegistry. A server that fails to connect is
// skipped (its absence from the registry is the only signal; the loop does
// not abort startup over one misbehaving MCP server).
func connectMCPServers(ctx context.Context, config *AgentConfig) *mcp.Client {
	client := mcp.NewClient(config.ToolRegistry)
	for name, serverConfig := range config.MCPServers {
		connectCtx, cancel := context.WithTimeout(ctx, mcpConnectTimeout)
		client.Connect(connectCtx, name, serverConfig)
		cancel()
	}
	return client
}
