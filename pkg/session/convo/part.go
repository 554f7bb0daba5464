package convo

// PartType discriminates the tagged Part variants named in spec §3.
type PartType string

const (
	PartTypeText       PartType = "text"
	PartTypeReasoning  PartType = "reasoning"
	PartTypeToolCall   PartType = "tool_call"
	PartTypeToolResult PartType = "tool_result"
	PartTypeStepStart  PartType = "step_start"
	PartTypeStepFinish PartType = "step_finish"
	PartTypeFile       PartType = "file"
	PartTypeImage      PartType = "image"
	PartTypeSnapshot   PartType = "snapshot"
	PartTypePatch      PartType = "patch"
	PartTypeAgent      PartType = "agent"
	PartTypeSubtask    PartType = "subtask"
	PartTypeRetry      PartType = "retry"
	PartTypeCompaction PartType = "compaction"
)

// ToolCallStatus is the state machine driven by the Tool Dispatcher (§4.3).
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallError     ToolCallStatus = "error"
)

// Part is implemented by every tagged variant. A Part belongs to exactly
// one Message and is never shared.
type Part interface {
	GetID() string
	GetType() PartType
	isIgnored() bool
	setIgnored(bool)
}

// BasePart carries the fields every variant shares: its own identifier and
// the "ignored" flag used by the Compaction Engine and by /undo masking.
type BasePart struct {
	ID      string `json:"id"`
	Ignored bool   `json:"ignored,omitempty"`
}

func (b *BasePart) GetID() string    { return b.ID }
func (b *BasePart) isIgnored() bool  { return b.Ignored }
func (b *BasePart) setIgnored(v bool) { b.Ignored = v }

// TextPart is model or user-authored prose.
type TextPart struct {
	BasePart
	Text      string `json:"text"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

func (TextPart) GetType() PartType { return PartTypeText }

// ReasoningPart holds chain-of-thought text the UI may conceal.
type ReasoningPart struct {
	BasePart
	Text string `json:"text"`
}

func (ReasoningPart) GetType() PartType { return PartTypeReasoning }

// ToolCallPart tracks one requested tool invocation through its dispatch
// state machine (§4.3).
type ToolCallPart struct {
	BasePart
	CallID string         `json:"call_id"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Status ToolCallStatus `json:"status"`
	Raw    string         `json:"raw,omitempty"` // unparsed argument fragment, set while streaming
}

func (ToolCallPart) GetType() PartType { return PartTypeToolCall }

// ToolResultPart is the outcome of one ToolCallPart, matched by CallID.
type ToolResultPart struct {
	BasePart
	CallID      string         `json:"call_id"`
	Content     string         `json:"content"`
	IsError     bool           `json:"is_error"`
	Title       string         `json:"title,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Attachments []string       `json:"attachments,omitempty"`
	Truncated   bool           `json:"truncated,omitempty"`
}

func (ToolResultPart) GetType() PartType { return PartTypeToolResult }

// StepStartPart / StepFinishPart delimit one model "step" inside a message.
type StepStartPart struct {
	BasePart
	StepID string `json:"step_id"`
	Name   string `json:"name,omitempty"`
}

func (StepStartPart) GetType() PartType { return PartTypeStepStart }

type StepFinishPart struct {
	BasePart
	StepID string `json:"step_id"`
	Output string `json:"output,omitempty"`
}

func (StepFinishPart) GetType() PartType { return PartTypeStepFinish }

// FilePart / ImagePart reference attachments by URL.
type FilePart struct {
	BasePart
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Mime     string `json:"mime,omitempty"`
}

func (FilePart) GetType() PartType { return PartTypeFile }

type ImagePart struct {
	BasePart
	URL string `json:"url"`
}

func (ImagePart) GetType() PartType { return PartTypeImage }

// SnapshotPart records a Snapshot Coordinator id taken around a mutation.
type SnapshotPart struct {
	BasePart
	Content string `json:"content"`
}

func (SnapshotPart) GetType() PartType { return PartTypeSnapshot }

// PatchPart is a single file edit rendered as an old/new string pair.
type PatchPart struct {
	BasePart
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
	Filepath  string `json:"filepath"`
}

func (PatchPart) GetType() PartType { return PartTypePatch }

// AgentPart / SubtaskPart surface subagent progress inline in the parent
// conversation.
type AgentPart struct {
	BasePart
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (AgentPart) GetType() PartType { return PartTypeAgent }

type SubtaskPart struct {
	BasePart
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (SubtaskPart) GetType() PartType { return PartTypeSubtask }

// RetryPart is appended by the Retry Controller before each backoff sleep.
type RetryPart struct {
	BasePart
	Count  int    `json:"count"`
	Reason string `json:"reason"`
}

func (RetryPart) GetType() PartType { return PartTypeRetry }

// CompactionPart carries the Compaction Engine's summary.
type CompactionPart struct {
	BasePart
	Summary string `json:"summary"`
}

func (CompactionPart) GetType() PartType { return PartTypeCompaction }
