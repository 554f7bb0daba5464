package agent

import (
	"github.com/flowdeck/agentcore/pkg/llm"
	"github.com/flowdeck/agentcore/pkg/session/convo"
	"github.com/flowdeck/agentcore/pkg/types"
)

// ExitReason describes why the agentic loop terminated.
type ExitReason string

const (
	ExitEndTurn       ExitReason = "end_turn"
	ExitStopSequence  ExitReason = "stop_sequence"
	ExitMaxTurns      ExitReason = "max_turns"
	ExitMaxBudget     ExitReason = "error_max_budget_usd"
	ExitInterrupted   ExitReason = "interrupted"
	ExitMaxTokens     ExitReason = "max_tokens"
	ExitAborted       ExitReason = "aborted"
)

// LoopState tracks the mutable state of a running agentic loop.
type LoopState struct {
	SessionID     string
	Messages      []llm.ChatMessage // conversation history in OpenAI format
	TurnCount     int
	TotalUsage    types.BetaUsage
	TotalCostUSD  float64
	IsInterrupted bool
	ExitReason    ExitReason

	// Dynamic model override (set via control command, empty = use config.Model)
	Model             string
	MaxThinkingTokens int
	StopSequence      string // the stop sequence value if stop_sequence reason
	UsingFallback     bool   // true if currently using FallbackModel after a retriable error
	BudgetDowngraded  bool   // true if model was downgraded due to budget threshold

	// LastError captures the last error that caused the loop to exit.
	LastError error

	// PendingAdditionalContext collects context from hooks to inject
	// into the system prompt on the next LLM call.
	PendingAdditionalContext []string

	// AccessedFiles tracks file paths touched during this session.
	// Key: absolute file path, Value: set of operations (read, write, edit, glob, grep, exec)
	AccessedFiles map[string]map[string]bool

	// ActiveSkill holds the scope of the currently executing skill.
	// When set, tool permission checks are augmented by the skill's allowed-tools.
	// Cleared on end_turn or next user message.
	ActiveSkill *SkillScope

	// Doom-loop guard (spec's repeated-identical-tool-call rule): tracks
	// the fingerprint and run length of the most recently committed tool
	// call so a run of doomLoopThreshold identical calls forces a fresh
	// approval before the next dispatch.
	lastToolFingerprint  string
	consecutiveToolCalls int

	// RevertAnchors maps a mutating tool call's tool_use_id to the
	// Snapshot Coordinator id captured immediately before it ran, so a
	// later rewind can restore the work directory to that point.
	RevertAnchors map[string]string

	// History mirrors Messages as a §4.1 convo.Session: every user prompt,
	// assistant response, and tool result appended to Messages is also
	// appended here as typed Parts, so the compactor can mask history
	// non-destructively via Part.Ignored instead of truncating Messages
	// outright. Nil on a LoopState built by hand (e.g. in tests) that
	// never called newLoopHistory; RunLoop always populates it.
	History *convo.State
	Session *convo.Session
}

// recordRevertAnchor stores a snapshot id for toolUseID, creating the map
// on first use.
func (s *LoopState) recordRevertAnchor(toolUseID, snapshotID string) {
	if s.RevertAnchors == nil {
		s.RevertAnchors = make(map[string]string)
	}
	s.RevertAnchors[toolUseID] = snapshotID
}

// doomLoopThreshold is the number of consecutive identical (name, input)
// tool calls that trips the guard.
const doomLoopThreshold = 3

// SkillScope holds the runtime context for an active skill execution.
type SkillScope struct {
	SkillName    string
	AllowedTools []string
}

// RecordFileAccess records that a file was accessed with the given operation.
func (s *LoopState) RecordFileAccess(path string, op string) {
	if s.AccessedFiles == nil {
		s.AccessedFiles = make(map[string]map[string]bool)
	}
	if s.AccessedFiles[path] == nil {
		s.AccessedFiles[path] = make(map[string]bool)
	}
	s.AccessedFiles[path][op] = true
}

// addUsage accumulates token usage from an LLM response.
func (s *LoopState) addUsage(usage types.BetaUsage) {
	s.TotalUsage.InputTokens += usage.InputTokens
	s.TotalUsage.OutputTokens += usage.OutputTokens
	s.TotalUsage.CacheReadInputTokens += usage.CacheReadInputTokens
	s.TotalUsage.CacheCreationInputTokens += usage.CacheCreationInputTokens
}
