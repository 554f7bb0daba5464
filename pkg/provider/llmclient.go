package provider

import (
	"context"
	"io"

	"github.com/flowdeck/agentcore/pkg/llm"
)

// ProviderLLMClient adapts a Registry-selected Provider into llm.Client,
// the interface pkg/agent's loop actually calls through config.LLMClient.
// Without this, a Provider (including OpenAIProvider) can be registered
// and never once be asked to serve a request — RunLoop only ever talks to
// whatever concrete llm.Client it was handed directly. Wiring a
// ProviderLLMClient into AgentConfig.LLMClient makes the Registry's
// provider-selection the thing that actually drives completions.
type ProviderLLMClient struct {
	provider Provider
	model    string
}

// NewProviderLLMClient wraps p, defaulting new requests to model unless
// ClientConfig.Model overrides it per-call via BuildCompletionRequest.
func NewProviderLLMClient(p Provider, model string) *ProviderLLMClient {
	return &ProviderLLMClient{provider: p, model: model}
}

func (c *ProviderLLMClient) Model() string { return c.model }

func (c *ProviderLLMClient) SetModel(model string) { c.model = model }

// Complete issues req against the wrapped Provider's ChatStream and folds
// its StreamEvents into the llm.StreamEvent/StreamChunk shape Stream
// already knows how to accumulate, so callers see no difference from
// talking to the teacher's native client.
func (c *ProviderLLMClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.Stream, error) {
	preq := toProviderRequest(req, c.model)

	streamCtx, cancel := context.WithCancel(ctx)
	pstream, err := c.provider.ChatStream(streamCtx, preq)
	if err != nil {
		cancel()
		return nil, err
	}

	events := make(chan llm.StreamEvent, 16)
	go pumpProviderStream(streamCtx, pstream, events)

	return llm.NewStream(events, io.NopCloser(nil), cancel), nil
}

func toProviderRequest(req *llm.CompletionRequest, model string) ChatRequest {
	if req.Model != "" {
		model = req.Model
	}
	out := ChatRequest{
		Model:       model,
		Stream:      true,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, toProviderMessage(m))
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Schema:      t.Function.Parameters,
		})
	}
	return out
}

func toProviderMessage(m llm.ChatMessage) Message {
	if m.ToolCallID != "" {
		return Message{
			Role: m.Role,
			Parts: []ContentPart{{
				Type:       "tool_result",
				ToolCallID: m.ToolCallID,
				ToolOutput: contentToText(m.Content),
			}},
		}
	}
	if len(m.ToolCalls) > 0 {
		parts := make([]ContentPart, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			parts = append(parts, ContentPart{
				Type:       "tool_use",
				ToolCallID: tc.ID,
				ToolName:   tc.Function.Name,
			})
		}
		return Message{Role: m.Role, Parts: parts}
	}
	return Message{Role: m.Role, Text: contentToText(m.Content)}
}

func contentToText(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	return ""
}

// pumpProviderStream translates a ChatStream into llm.StreamEvents,
// mirroring the chunk-per-delta shape llmChatStream.Next produces in the
// other direction (llm.Stream -> provider.ChatStream) in llmadapter.go.
func pumpProviderStream(ctx context.Context, pstream ChatStream, events chan<- llm.StreamEvent) {
	defer close(events)
	defer pstream.Close()

	for {
		ev, ok := pstream.Next(ctx)
		if !ok {
			events <- llm.StreamEvent{Done: true}
			return
		}
		switch ev.Type {
		case EventError:
			events <- llm.StreamEvent{Err: ev.Err}
			return
		case EventDone:
			events <- llm.StreamEvent{Done: true}
			return
		case EventTextDelta:
			content := ev.Delta
			events <- llm.StreamEvent{Chunk: &llm.StreamChunk{
				Choices: []llm.Choice{{Delta: llm.Delta{Content: &content}}},
			}}
		case EventReasoningDelta:
			reasoning := ev.Delta
			events <- llm.StreamEvent{Chunk: &llm.StreamChunk{
				Choices: []llm.Choice{{Delta: llm.Delta{ReasoningContent: &reasoning}}},
			}}
		case EventToolCallDelta:
			args := ev.ArgFragment
			events <- llm.StreamEvent{Chunk: &llm.StreamChunk{
				Choices: []llm.Choice{{Delta: llm.Delta{ToolCalls: []llm.ToolCall{{
					ID:       ev.CallID,
					Type:     "function",
					Function: llm.FunctionCall{Name: ev.Name, Arguments: args},
				}}}}},
			}}
		case EventToolCallEnd:
			// no-op: the tool call accumulator keys off the next finish_reason chunk
		case EventFinishStep:
			reason := ev.FinishReason
			events <- llm.StreamEvent{Chunk: &llm.StreamChunk{
				Choices: []llm.Choice{{FinishReason: &reason}},
				Usage: &llm.Usage{
					PromptTokens:             ev.Usage.InputTokens,
					CompletionTokens:         ev.Usage.OutputTokens,
					CacheReadInputTokens:     ev.Usage.CacheReadTokens,
					CacheCreationInputTokens: ev.Usage.CacheWriteTokens,
				},
			}}
		}
	}
}

var _ llm.Client = (*ProviderLLMClient)(nil)
