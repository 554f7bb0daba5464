package permission

import (
	"context"

	"github.com/flowdeck/agentcore/pkg/agent"
)

// EngineApprover adapts an Engine into the agent.LiveApprover interface so
// pkg/agent's doom-loop guard can route its re-ask through the same
// pending/approved state machine as every other permission decision,
// without pkg/agent importing this package directly.
type EngineApprover struct {
	Engine    *Engine
	SessionID string
}

// NewEngineApprover wraps engine for sessionID.
func NewEngineApprover(engine *Engine, sessionID string) *EngineApprover {
	return &EngineApprover{Engine: engine, SessionID: sessionID}
}

// Ask requests fresh approval for permissionType/toolName, bypassing any
// previously "always"-approved pattern for the tool itself since the
// pattern here is scoped to the permission type, not the tool name.
func (a *EngineApprover) Ask(ctx context.Context, permissionType, toolName string, input map[string]any) error {
	return a.Engine.Ask(ctx, Info{
		PermissionType: permissionType,
		Pattern:        &Pattern{Single: permissionType},
		SessionID:      a.SessionID,
		Message:        "repeated tool call requires fresh approval: " + toolName,
		Metadata: map[string]any{
			"tool_name": toolName,
			"input":     input,
		},
	})
}

var _ agent.LiveApprover = (*EngineApprover)(nil)
