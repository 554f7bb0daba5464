package convo

import "time"

// Role discriminates Message ownership per spec §3.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// FinishReason records why an Assistant message's turn ended.
type FinishReason string

const (
	FinishEndTurn      FinishReason = "end_turn"
	FinishToolCalls    FinishReason = "tool_calls"
	FinishMaxTokens    FinishReason = "max_tokens"
	FinishStopSequence FinishReason = "stop_sequence"
	FinishAbort        FinishReason = "abort"
	FinishError        FinishReason = "error"
)

// Message belongs to exactly one Session and owns an ordered sequence of
// Parts (spec §3).
type Message struct {
	ID      string
	Role    Role
	Parts   []Part
	Created time.Time
	Finish  FinishReason // empty until the message is closed
	Usage   Usage
}

// AppendPart appends p to the message's part sequence. Callers (State)
// are responsible for invariant enforcement; Message itself is a plain
// ordered container.
func (m *Message) AppendPart(p Part) {
	m.Parts = append(m.Parts, p)
}

// FindPart returns the part with the given id, or nil.
func (m *Message) FindPart(id string) Part {
	for _, p := range m.Parts {
		if p.GetID() == id {
			return p
		}
	}
	return nil
}

// LastPart returns the most recently appended part, or nil if empty.
func (m *Message) LastPart() Part {
	if len(m.Parts) == 0 {
		return nil
	}
	return m.Parts[len(m.Parts)-1]
}

// LastTextPart returns the last part if it is a *TextPart, for
// TextDelta accumulation (§4.2 ConsumeStream), or nil otherwise.
func (m *Message) LastTextPart() *TextPart {
	if tp, ok := m.LastPart().(*TextPart); ok {
		return tp
	}
	return nil
}

// LastReasoningPart mirrors LastTextPart for ReasoningDelta accumulation.
func (m *Message) LastReasoningPart() *ReasoningPart {
	if rp, ok := m.LastPart().(*ReasoningPart); ok {
		return rp
	}
	return nil
}

// ToolCallParts returns every ToolCallPart in the message, in order.
func (m *Message) ToolCallParts() []*ToolCallPart {
	var out []*ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(*ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

// PendingToolCalls returns ToolCallParts with status=Pending, in emission
// order, for ToolPhase dispatch (§4.2 step 4).
func (m *Message) PendingToolCalls() []*ToolCallPart {
	var out []*ToolCallPart
	for _, tc := range m.ToolCallParts() {
		if tc.Status == ToolCallPending {
			out = append(out, tc)
		}
	}
	return out
}
