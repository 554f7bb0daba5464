package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/flowdeck/agentcore/pkg/llm"
)

// LLMAdapter wraps the teacher's hand-rolled pkg/llm.Client (an
// OpenAI-compatible SSE client aimed at a LiteLLM gateway in front of
// Claude models) as a Provider, so it registers in the same Registry as
// OpenAIProvider and the orchestrator addresses both polymorphically.
type LLMAdapter struct {
	id     string
	client llm.Client
	mu     sync.RWMutex
	models map[string]ModelInfo
}

// NewLLMAdapter wraps client under id, seeding its model catalog from
// pkg/llm's package-level capability registry.
func NewLLMAdapter(id string, client llm.Client, seedModels []string) *LLMAdapter {
	a := &LLMAdapter{id: id, client: client, models: make(map[string]ModelInfo)}
	for _, m := range seedModels {
		if caps, ok := llm.GetCapabilities(m); ok {
			a.models[m] = ModelInfo{
				ID:               m,
				MaxInputTokens:   caps.MaxInputTokens,
				MaxOutputTokens:  caps.MaxOutputTokens,
				SupportsToolUse:  caps.SupportsToolUse,
				SupportsThinking: caps.SupportsThinking,
			}
		}
	}
	return a
}

func (a *LLMAdapter) ID() string { return a.id }

func (a *LLMAdapter) Models() []ModelInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ModelInfo, 0, len(a.models))
	for _, m := range a.models {
		out = append(out, m)
	}
	return out
}

func (a *LLMAdapter) GetModel(id string) (ModelInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.models[id]
	return m, ok
}

func toLLMMessages(msgs []Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Parts) == 0 {
			out = append(out, llm.ChatMessage{Role: m.Role, Content: m.Text})
			continue
		}
		for _, part := range m.Parts {
			switch part.Type {
			case "text":
				out = append(out, llm.ChatMessage{Role: m.Role, Content: part.Text})
			case "tool_use":
				args, _ := json.Marshal(part.ToolInput)
				out = append(out, llm.ChatMessage{
					Role: "assistant",
					ToolCalls: []llm.ToolCall{{
						ID:   part.ToolCallID,
						Type: "function",
						Function: llm.FunctionCall{
							Name:      part.ToolName,
							Arguments: string(args),
						},
					}},
				})
			case "tool_result":
				out = append(out, llm.ChatMessage{
					Role:       "tool",
					Content:    part.ToolOutput,
					ToolCallID: part.ToolCallID,
				})
			}
		}
	}
	return out
}

func toLLMRequest(req ChatRequest) *llm.CompletionRequest {
	out := &llm.CompletionRequest{
		Model:       req.Model,
		Messages:    toLLMMessages(req.Messages),
		Stream:      req.Stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, llm.ToolDefinition{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}

// Chat issues a non-streaming completion by driving the underlying
// streaming client to accumulation, matching how the teacher's own loop
// always streams and accumulates (pkg/agent/loop.go).
func (a *LLMAdapter) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	llmReq := toLLMRequest(req)
	llmReq.Stream = true

	stream, err := a.client.Complete(ctx, llmReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("provider(%s): chat: %w", a.id, err)
	}
	resp, err := stream.Accumulate()
	if err != nil {
		return ChatResponse{}, fmt.Errorf("provider(%s): accumulate: %w", a.id, err)
	}

	out := ChatResponse{
		FinishReason: resp.StopReason,
		Usage: Usage{
			InputTokens:      resp.Usage.InputTokens,
			OutputTokens:     resp.Usage.OutputTokens,
			CacheReadTokens:  resp.Usage.CacheReadInputTokens,
			CacheWriteTokens: resp.Usage.CacheCreationInputTokens,
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCallResult{CallID: block.ID, Name: block.Name, Input: block.Input})
		}
	}
	return out, nil
}

// llmChatStream adapts *llm.Stream (raw StreamChunk Next()) to ChatStream,
// translating each chunk's delta into our StreamEvent variants the same
// way llm.Stream.AccumulateWithCallback folds them, but emitting events
// instead of accumulating.
type llmChatStream struct {
	stream  *llm.Stream
	pending []StreamEvent
	callIdx map[int]string
	done    bool
}

func (a *LLMAdapter) ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	llmReq := toLLMRequest(req)
	llmReq.Stream = true

	stream, err := a.client.Complete(ctx, llmReq)
	if err != nil {
		return nil, fmt.Errorf("provider(%s): chat_stream: %w", a.id, err)
	}
	return &llmChatStream{stream: stream, callIdx: make(map[int]string)}, nil
}

func (s *llmChatStream) Next(ctx context.Context) (StreamEvent, bool) {
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		return ev, true
	}
	if s.done {
		return StreamEvent{}, false
	}

	chunk, err := s.stream.Next()
	if err == io.EOF {
		s.done = true
		return StreamEvent{Type: EventDone}, true
	}
	if err != nil {
		s.done = true
		return StreamEvent{Type: EventError, Err: err}, true
	}

	for _, choice := range chunk.Choices {
		delta := choice.Delta
		if delta.Content != nil && *delta.Content != "" {
			s.pending = append(s.pending, StreamEvent{Type: EventTextDelta, Delta: *delta.Content})
		}
		if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
			s.pending = append(s.pending, StreamEvent{Type: EventReasoningDelta, Delta: *delta.ReasoningContent})
		}
		for _, tc := range delta.ToolCalls {
			callID, ok := s.callIdx[tc.Index]
			if !ok {
				callID = tc.ID
				s.callIdx[tc.Index] = callID
			}
			s.pending = append(s.pending, StreamEvent{
				Type:        EventToolCallDelta,
				CallID:      callID,
				Name:        tc.Function.Name,
				ArgFragment: tc.Function.Arguments,
			})
		}
		if choice.FinishReason != nil {
			for _, callID := range s.callIdx {
				s.pending = append(s.pending, StreamEvent{Type: EventToolCallEnd, CallID: callID})
			}
			usage := Usage{}
			if chunk.Usage != nil {
				usage = Usage{
					InputTokens:      chunk.Usage.PromptTokens,
					OutputTokens:     chunk.Usage.CompletionTokens,
					CacheReadTokens:  chunk.Usage.CacheReadInputTokens,
					CacheWriteTokens: chunk.Usage.CacheCreationInputTokens,
				}
			}
			s.pending = append(s.pending, StreamEvent{
				Type:         EventFinishStep,
				FinishReason: *choice.FinishReason,
				Usage:        usage,
			})
		}
	}

	return s.Next(ctx)
}

func (s *llmChatStream) Close() error {
	return s.stream.Close()
}
