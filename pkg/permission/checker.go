package permission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flowdeck/agentcore/internal/idgen"
	"github.com/flowdeck/agentcore/pkg/agent"
	"github.com/flowdeck/agentcore/pkg/types"
)

// Checker evaluates permissions for tool invocations.
// It implements agent.PermissionChecker.
type Checker struct {
	mu sync.RWMutex

	mode          types.PermissionMode
	allowedTools  map[string]bool
	disabledTools map[string]bool

	configRules  []PermissionRule // from settings files
	sessionRules []PermissionRule // accumulated during session

	allowDangerouslySkipPermissions bool

	// Hook & callback integration
	hookRunner   agent.HookRunner
	canUseTool   types.CanUseToolFunc
	userPrompter UserPrompter

	// directoryGuard forces an ask for paths outside the project roots,
	// overriding the allowed-tools/rules auto-allow layers.
	directoryGuard *DirectoryGuard

	// engine, when set, is the single authority every "ask" outcome below
	// is routed through (spec §4.4): the decision is still sourced from
	// userPrompter, but it is recorded as a pending Engine request first,
	// so Engine.Pending/IsApproved see the same request every other asker
	// (e.g. the doom-loop EngineApprover) goes through.
	engine    *Engine
	sessionID string
}

// SetDirectoryGuard installs or replaces the external_directory guard.
func (c *Checker) SetDirectoryGuard(guard *DirectoryGuard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.directoryGuard = guard
}

// NewChecker creates a permission Checker from configuration.
func NewChecker(config CheckerConfig) *Checker {
	allowed := make(map[string]bool, len(config.AllowedTools))
	for _, name := range config.AllowedTools {
		allowed[name] = true
	}

	disabled := make(map[string]bool, len(config.DisabledTools))
	for _, name := range config.DisabledTools {
		disabled[name] = true
	}

	mode := types.PermissionMode(config.Mode)
	if mode == "" {
		mode = types.PermissionModeDefault
	}

	return &Checker{
		mode:                            mode,
		allowedTools:                    allowed,
		disabledTools:                   disabled,
		configRules:                     config.Rules,
		allowDangerouslySkipPermissions: config.AllowDangerouslySkipPermissions,
		hookRunner:                      config.HookRunner,
		canUseTool:                      config.CanUseTool,
		userPrompter:                    config.UserPrompter,
		directoryGuard:                  config.DirectoryGuard,
		engine:                          config.Engine,
		sessionID:                       config.SessionID,
	}
}

// Check evaluates whether a tool invocation is permitted.
// Layers: mode → disabled → allowed → rules → hook → callback → mode default → prompter.
func (c *Checker) Check(ctx context.Context, toolName string, input map[string]any) (agent.PermissionResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Layer 1: Mode check
	switch c.mode {
	case types.PermissionModeBypassPermissions:
		if !c.allowDangerouslySkipPermissions {
			return agent.PermissionResult{}, errors.New("bypassPermissions mode requires AllowDangerouslySkipPermissions to be true")
		}
		return agent.PermissionResult{Behavior: "allow"}, nil

	case types.PermissionModePlan:
		return agent.PermissionResult{
			Behavior: "deny",
			Message:  "tool execution is not allowed in plan mode",
		}, nil

	case types.PermissionModeDelegate:
		if toolName != "Agent" {
			return agent.PermissionResult{
				Behavior: "deny",
				Message:  "only Agent tool is allowed in delegate mode",
			}, nil
		}
		return agent.PermissionResult{Behavior: "allow"}, nil
	}

	// Layer 2: Disabled check
	if c.disabledTools[toolName] {
		return agent.PermissionResult{
			Behavior: "deny",
			Message:  "tool is disabled",
		}, nil
	}

	// Layer 2.5: external_directory guard. A path outside the project
	// roots always needs a live ask, even for an auto-allowed tool or a
	// matched "allow" rule — it is evaluated before both.
	if path, escapes := c.directoryGuard.Escapes(input); escapes {
		if c.hookRunner != nil {
			if hookResult, err := c.firePermissionHook(ctx, toolName, input); err == nil && hookResult != nil {
				return *hookResult, nil
			}
		}
		if c.userPrompter != nil || c.engine != nil {
			return c.askViaEngine(ctx, "external_directory", toolName, input)
		}
		return agent.PermissionResult{
			Behavior: "deny",
			Message:  "path outside project directory requires approval: " + path,
		}, nil
	}

	// Layer 3: Allowed check
	if c.allowedTools[toolName] {
		return agent.PermissionResult{Behavior: "allow"}, nil
	}

	// Layer 4: Rules check
	if result, matched := c.checkRules(toolName, input); matched {
		if result.Behavior == "allow" || result.Behavior == "deny" {
			return result, nil
		}
		// "ask" from rules falls through to hook/callback
	}

	// Layer 5: Hook check (PermissionRequest hook)
	if c.hookRunner != nil {
		hookResult, err := c.firePermissionHook(ctx, toolName, input)
		if err == nil && hookResult != nil {
			return *hookResult, nil
		}
	}

	// Layer 6: Callback check (canUseTool)
	if c.canUseTool != nil {
		cbResult, err := c.canUseTool(toolName, input)
		if err == nil && cbResult != nil {
			return agent.PermissionResult{
				Behavior:           cbResult.Behavior,
				UpdatedInput:       cbResult.UpdatedInput,
				UpdatedPermissions: cbResult.Permissions,
				Message:            cbResult.Message,
			}, nil
		}
	}

	// Layer 7: Mode default
	behavior := DefaultBehaviorForTool(c.mode, toolName)

	// If mode default says "ask", route through the Engine's pending/approved
	// state machine (falling back to the bare prompter if no Engine is wired).
	if behavior == BehaviorAsk {
		if c.userPrompter != nil || c.engine != nil {
			return c.askViaEngine(ctx, toolName, toolName, input)
		}
		// No prompter: deny in headless mode
		return agent.PermissionResult{
			Behavior: "deny",
			Message:  "permission denied (no interactive prompter available)",
		}, nil
	}

	result := agent.PermissionResult{Behavior: string(behavior)}
	if behavior == BehaviorDeny {
		result.Message = "denied by mode default"
	}
	return result, nil
}

// firePermissionHook fires the PermissionRequest hook and interprets the result.
// Returns nil if hook didn't provide a decision (continue).
func (c *Checker) firePermissionHook(ctx context.Context, toolName string, input map[string]any) (*agent.PermissionResult, error) {
	results, err := c.hookRunner.Fire(ctx, types.HookEventPermissionRequest, map[string]any{
		"tool_name":  toolName,
		"tool_input": input,
	})
	if err != nil {
		return nil, err
	}

	for _, hr := range results {
		switch hr.Decision {
		case "allow":
			return &agent.PermissionResult{Behavior: "allow"}, nil
		case "deny":
			msg := hr.Message
			if msg == "" {
				msg = "denied by hook"
			}
			return &agent.PermissionResult{Behavior: "deny", Message: msg}, nil
		default:
			// "" or "continue" — fall through
			continue
		}
	}

	return nil, nil // no decision from hooks
}

// checkRules evaluates config rules then session rules.
func (c *Checker) checkRules(toolName string, input map[string]any) (agent.PermissionResult, bool) {
	for _, rule := range c.configRules {
		if rule.Matches(toolName, input) {
			return agent.PermissionResult{
				Behavior: string(rule.Behavior),
				Message:  ruleMessage(rule),
			}, true
		}
	}

	for _, rule := range c.sessionRules {
		if rule.Matches(toolName, input) {
			return agent.PermissionResult{
				Behavior: string(rule.Behavior),
				Message:  ruleMessage(rule),
			}, true
		}
	}

	return agent.PermissionResult{}, false
}

func ruleMessage(rule PermissionRule) string {
	if rule.Behavior == BehaviorDeny {
		return "denied by permission rule"
	}
	return ""
}

// SetMode changes the permission mode.
func (c *Checker) SetMode(mode types.PermissionMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Mode returns the current permission mode.
func (c *Checker) Mode() types.PermissionMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// askViaEngine records permType/toolName as a pending Engine request, then
// waits for it to resolve. The decision itself still comes from
// userPrompter (run in a goroutine so Engine.Ask's blocking wait and the
// prompt itself happen concurrently); the point of threading it through
// Engine is that the request is visible via Engine.Pending and governed by
// the same approved-pattern bookkeeping as every other ask, including the
// doom-loop guard's EngineApprover. With no Engine configured this falls
// back to calling userPrompter directly, matching the prior behavior.
func (c *Checker) askViaEngine(ctx context.Context, permType, toolName string, input map[string]any) (agent.PermissionResult, error) {
	if c.engine == nil {
		if c.userPrompter == nil {
			return agent.PermissionResult{
				Behavior: "deny",
				Message:  "permission denied (no interactive prompter available)",
			}, nil
		}
		return c.userPrompter.PromptForPermission(toolName, input, nil)
	}

	id := idgen.Permission()
	info := Info{
		ID:             id,
		PermissionType: permType,
		Pattern:        &Pattern{Single: permType},
		SessionID:      c.sessionID,
		Message:        "tool call requires approval: " + toolName,
		Metadata:       map[string]any{"tool_name": toolName, "input": input},
	}

	resCh := make(chan agent.PermissionResult, 1)
	askDone := make(chan struct{})
	go func() {
		var res agent.PermissionResult
		if c.userPrompter != nil {
			res, _ = c.userPrompter.PromptForPermission(toolName, input, nil)
		} else {
			res = agent.PermissionResult{
				Behavior: "deny",
				Message:  "permission denied (no interactive prompter available)",
			}
		}
		decision := DecisionReject
		if res.Behavior == "allow" {
			decision = DecisionOnce
		}
		// The prompter may answer before Ask has registered the pending
		// record; keep trying until Respond finds it or Ask has returned.
		for c.engine.Respond(c.sessionID, id, decision) == ErrNotFound {
			select {
			case <-askDone:
				resCh <- res
				return
			case <-time.After(time.Millisecond):
			}
		}
		resCh <- res
	}()

	err := c.engine.Ask(ctx, info)
	close(askDone)
	res := <-resCh
	if err != nil {
		if errors.Is(err, ErrRejected) {
			if res.Behavior == "" {
				res = agent.PermissionResult{Behavior: "deny", Message: "denied"}
			}
			return res, nil
		}
		return agent.PermissionResult{}, err
	}
	return agent.PermissionResult{Behavior: "allow", UpdatedInput: res.UpdatedInput, UpdatedPermissions: res.UpdatedPermissions}, nil
}
