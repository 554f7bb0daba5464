// Package provider defines the Provider capability (spec §6) and a
// registry of concrete implementations, so the Streaming Loop can address
// several backends polymorphically by id.
package provider

import "context"

// ModelInfo describes one model a Provider exposes.
type ModelInfo struct {
	ID               string
	MaxInputTokens   int
	MaxOutputTokens  int
	SupportsToolUse  bool
	SupportsThinking bool
}

// Message is one entry in a ChatRequest's conversation, matching spec
// §6's `{role, content: Text(string)|Parts([ContentPart]), cache_control?,
// provider_options?}`.
type Message struct {
	Role            string
	Text            string         // set when content is a plain string
	Parts           []ContentPart  // set when content is a list of parts
	CacheControl    string         // provider hint, e.g. "ephemeral"
	ProviderOptions map[string]any
}

// ContentPart is one block of a multi-part message (text, tool call, or
// tool result echoed back to the model).
type ContentPart struct {
	Type       string // "text" | "tool_use" | "tool_result"
	Text       string
	ToolCallID string
	ToolName   string
	ToolInput  map[string]any
	ToolOutput string
	IsError    bool
}

// ToolDefinition describes one callable tool for the request's tool
// catalog.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ChatRequest is the provider-agnostic request shape built by BuildRequest
// (spec §4.2 step 1) after plugin transforms have been applied.
type ChatRequest struct {
	Model           string
	Messages        []Message
	Tools           []ToolDefinition
	Temperature     *float64
	TopP            *float64
	MaxTokens       int
	Stream          bool
	ProviderOptions map[string]any
	Variant         string
}

// ChatResponse is the non-streaming completion result.
type ChatResponse struct {
	Text         string
	ToolCalls    []ToolCallResult
	FinishReason string
	Usage        Usage
}

// ToolCallResult is one accumulated tool call from a completed response.
type ToolCallResult struct {
	CallID string
	Name   string
	Input  map[string]any
}

// Usage mirrors the token accounting a provider reports.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// StreamEventType discriminates StreamEvent, matching the variant names
// spec §4.2 enumerates for `chat_stream`.
type StreamEventType string

const (
	EventTextDelta     StreamEventType = "text_delta"
	EventReasoningDelta StreamEventType = "reasoning_delta"
	EventToolCallDelta StreamEventType = "tool_call_delta"
	EventToolCallEnd   StreamEventType = "tool_call_end"
	EventFinishStep    StreamEventType = "finish_step"
	EventDone          StreamEventType = "done"
	EventError         StreamEventType = "error"
)

// StreamEvent is one item from a ChatStream, folded into the open
// Assistant message by ConsumeStream (spec §4.2 step 3).
type StreamEvent struct {
	Type StreamEventType

	// EventTextDelta / EventReasoningDelta
	Delta string

	// EventToolCallDelta
	CallID       string
	Name         string
	ArgFragment  string

	// EventToolCallEnd
	// (CallID above identifies which call ended)

	// EventFinishStep
	FinishReason string
	Usage        Usage

	// EventError
	Err error
}

// ChatStream is a finite, ordered sequence of StreamEvent, closed by the
// provider when exhausted.
type ChatStream interface {
	Next(ctx context.Context) (StreamEvent, bool)
	Close() error
}

// Provider is the capability §6 names: id/models/get_model/chat/chat_stream.
type Provider interface {
	ID() string
	Models() []ModelInfo
	GetModel(id string) (ModelInfo, bool)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error)
}
