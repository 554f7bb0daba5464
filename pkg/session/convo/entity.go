package convo

import "time"

// Status is the Session lifecycle state (spec §3).
type Status string

const (
	StatusActive     Status = "active"
	StatusCompacting Status = "compacting"
	StatusArchived   Status = "archived"
)

// Usage is a monotonic accumulator of token/cost figures. Session usage
// equals the sum of its messages' usages (spec §3, P3).
type Usage struct {
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	CacheReadTokens int64
	CacheWriteTokens int64
	CostUSD         float64
}

// Add accumulates other into u, returning the sum (Usage is a value type;
// callers reassign).
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		ReasoningTokens:  u.ReasoningTokens + other.ReasoningTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
		CostUSD:          u.CostUSD + other.CostUSD,
	}
}

// RevertAnchor points at the (message, optional part) pair immediately
// following an undoable side-effect (spec §3).
type RevertAnchor struct {
	MessageID  string
	PartID     string // empty if the anchor is message-granular
	SnapshotID string // set when backed by the Snapshot Coordinator
	Diff       string // set when backed by an inline diff instead
}

// Session is the root entity: conversation, messages, usage, revert
// pointer (spec §3).
type Session struct {
	ID        string
	ParentID  string // empty unless forked
	Project   string
	Directory string
	Title     string

	Created    time.Time
	Updated    time.Time
	Compacting time.Time // zero unless status=Compacting
	Archived   time.Time // zero unless status=Archived

	Messages []*Message
	Revert   *RevertAnchor
	Usage    Usage
	Status   Status

	// Ruleset holds this session's permission approvals, if any were
	// persisted across a restore; the Permission Engine owns the live copy.
	Ruleset map[string]bool
}

// FindMessage returns the message with the given id, or nil.
func (s *Session) FindMessage(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// LastMessage returns the most recently appended message, or nil.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// OpenAssistantMessage returns the trailing Assistant message if it has
// not yet been closed with a Finish reason, for ConsumeStream/ToolPhase to
// keep appending to, or nil if the last message is closed or not an
// Assistant message.
func (s *Session) OpenAssistantMessage() *Message {
	m := s.LastMessage()
	if m == nil || m.Role != RoleAssistant || m.Finish != "" {
		return nil
	}
	return m
}

// FindToolCall scans all messages for the ToolCallPart with the given
// call id, for matching a ToolResult against its originating call.
func (s *Session) FindToolCall(callID string) *ToolCallPart {
	for _, m := range s.Messages {
		for _, tc := range m.ToolCallParts() {
			if tc.CallID == callID {
				return tc
			}
		}
	}
	return nil
}
