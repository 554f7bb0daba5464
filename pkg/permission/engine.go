package permission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flowdeck/agentcore/internal/idgen"
	"github.com/flowdeck/agentcore/pkg/agent"
	"github.com/flowdeck/agentcore/pkg/types"
)

// Decision is the caller's answer to a pending ask, delivered via Respond.
type Decision string

const (
	DecisionOnce   Decision = "once"
	DecisionAlways Decision = "always"
	DecisionReject Decision = "reject"
)

// ErrRejected is returned to an Ask caller whose request was denied, either
// by a plugin rewriting the hook status to "deny" or by a Respond(Reject).
var ErrRejected = errors.New("permission: request rejected")

// ErrNotFound is returned by Respond for an id with no pending record.
var ErrNotFound = errors.New("permission: pending request not found")

// Pattern keys a permission approval for matching future requests. A nil
// Pattern expands to [Type] alone; Single expands to one key; Multiple
// expands to several (spec §3, §4.4 is_approved).
type Pattern struct {
	Single   string
	Multiple []string
}

func (p *Pattern) keys(permType string) []string {
	if p == nil {
		return []string{permType}
	}
	if len(p.Multiple) > 0 {
		return p.Multiple
	}
	if p.Single != "" {
		return []string{p.Single}
	}
	return []string{permType}
}

// Info describes one ask request (spec §3 "Permission Record").
type Info struct {
	ID             string
	PermissionType string
	Pattern        *Pattern
	SessionID      string
	MessageID      string
	CallID         string
	Message        string
	Metadata       map[string]any
}

type pendingRecord struct {
	info   Info
	result chan Decision
}

// Engine is the single authority for side-effect approvals described by
// spec §4.4: a pending/approved state machine keyed per session, distinct
// from (and composable with) this package's mode-layered Checker — Checker
// handles "does policy already answer this"; Engine handles "the answer
// requires asking someone, and remembering what they said."
type Engine struct {
	mu       sync.Mutex
	pending  map[string]map[string]*pendingRecord // session_id -> permission_id -> record
	approved map[string]map[string]bool           // session_id -> pattern key -> approved
	hooks    agent.HookRunner
}

// NewEngine creates an Engine. hooks may be nil, in which case the
// PermissionAsk hook step is skipped and every unapproved request becomes
// pending.
func NewEngine(hooks agent.HookRunner) *Engine {
	return &Engine{
		pending:  make(map[string]map[string]*pendingRecord),
		approved: make(map[string]map[string]bool),
		hooks:    hooks,
	}
}

// wildcardMatch implements spec §3's pattern rules: `*` matches anything;
// `*x*` matches if text contains x; `x*` matches as a prefix; `*x` matches
// as a suffix; anything else requires an exact match. Ported from
// opencode-permission's wildcard_match.
func wildcardMatch(text, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) >= 2 {
		middle := pattern[1 : len(pattern)-1]
		return strings.Contains(text, middle)
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(text, pattern[:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(text, pattern[1:])
	}
	return text == pattern
}

// covered reports whether every key in keys matches some pattern already
// approved for the session.
func covered(keys []string, approvedPatterns map[string]bool) bool {
	for _, k := range keys {
		matched := false
		for pattern := range approvedPatterns {
			if wildcardMatch(k, pattern) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// IsApproved reports whether every key pattern expands to already matches
// an entry previously approved (via Always) for sessionID.
func (e *Engine) IsApproved(sessionID string, pattern *Pattern, permType string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return covered(pattern.keys(permType), e.approved[sessionID])
}

// Ask requests approval for info. It returns nil if already approved or if
// a PermissionAsk hook rewrites the status to "allow"; ErrRejected if the
// hook rewrites it to "deny" or a later Respond(Reject) arrives; otherwise
// it blocks until Respond is called for info.ID, or ctx is cancelled.
func (e *Engine) Ask(ctx context.Context, info Info) error {
	if info.ID == "" {
		info.ID = idgen.Permission()
	}

	e.mu.Lock()
	if covered(info.Pattern.keys(info.PermissionType), e.approved[info.SessionID]) {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	status, err := e.firePermissionAskHook(ctx, info)
	if err != nil {
		return fmt.Errorf("permission: PermissionAsk hook: %w", err)
	}
	switch status {
	case "allow":
		return nil
	case "deny":
		return ErrRejected
	}

	rec := &pendingRecord{info: info, result: make(chan Decision, 1)}
	e.mu.Lock()
	if e.pending[info.SessionID] == nil {
		e.pending[info.SessionID] = make(map[string]*pendingRecord)
	}
	e.pending[info.SessionID][info.ID] = rec
	e.mu.Unlock()

	select {
	case <-ctx.Done():
		e.mu.Lock()
		delete(e.pending[info.SessionID], info.ID)
		e.mu.Unlock()
		return ctx.Err()
	case decision := <-rec.result:
		if decision == DecisionReject {
			return ErrRejected
		}
		return nil
	}
}

// firePermissionAskHook fires the PermissionRequest hook (the core event
// named `PermissionAsk` in spec §3) and extracts a "status" field from the
// first hook result that set one, mirroring the single-winning-output
// semantics opencode-permission's ask() uses against trigger_collect.
func (e *Engine) firePermissionAskHook(ctx context.Context, info Info) (string, error) {
	if e.hooks == nil {
		return "ask", nil
	}
	input := map[string]any{
		"status":          "ask",
		"permission_type": info.PermissionType,
		"session_id":      info.SessionID,
		"message_id":      info.MessageID,
		"call_id":         info.CallID,
		"message":         info.Message,
		"metadata":        info.Metadata,
	}
	results, err := e.hooks.Fire(ctx, types.HookEventPermissionRequest, input)
	if err != nil {
		return "ask", err
	}
	for _, r := range results {
		switch r.Decision {
		case "allow":
			return "allow", nil
		case "deny":
			return "deny", nil
		}
	}
	return "ask", nil
}

// Respond resolves a pending Ask by id. Reject releases the waiter with
// ErrRejected; Always additionally adds every key the pattern expands to,
// to the session's approved set so future matching Asks short-circuit;
// Once releases the waiter without remembering anything.
func (e *Engine) Respond(sessionID, permissionID string, decision Decision) error {
	e.mu.Lock()
	sessMap := e.pending[sessionID]
	if sessMap == nil {
		e.mu.Unlock()
		return ErrNotFound
	}
	rec, ok := sessMap[permissionID]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	delete(sessMap, permissionID)

	if decision == DecisionAlways {
		if e.approved[sessionID] == nil {
			e.approved[sessionID] = make(map[string]bool)
		}
		for _, k := range rec.info.Pattern.keys(rec.info.PermissionType) {
			e.approved[sessionID][k] = true
		}
	}
	e.mu.Unlock()

	rec.result <- decision
	return nil
}

// Pending returns every outstanding ask for sessionID, sorted by id, for
// surfacing to a UI or a `/permissions` listing.
func (e *Engine) Pending(sessionID string) []Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	sessMap := e.pending[sessionID]
	out := make([]Info, 0, len(sessMap))
	for _, rec := range sessMap {
		out = append(out, rec.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClearSession drops both the pending and approved maps for sessionID,
// e.g. when a session is archived or deleted.
func (e *Engine) ClearSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, sessionID)
	delete(e.approved, sessionID)
}
