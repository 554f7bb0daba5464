package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	ID      string // registry id, e.g. "openai"
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible gateways
	Models  []ModelInfo
}

// OpenAIProvider implements Provider against the OpenAI chat completions
// API via the official client, a second concrete Provider registered
// alongside the teacher's own hand-rolled SSE client (pkg/llm), exercising
// the same capability interface from an independent implementation.
type OpenAIProvider struct {
	id     string
	client *openai.Client
	mu     sync.RWMutex
	models map[string]ModelInfo
}

// NewOpenAIProvider creates an OpenAIProvider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	id := cfg.ID
	if id == "" {
		id = "openai"
	}
	models := make(map[string]ModelInfo, len(cfg.Models))
	for _, m := range cfg.Models {
		models[m.ID] = m
	}
	return &OpenAIProvider{
		id:     id,
		client: openai.NewClientWithConfig(oaCfg),
		models: models,
	}
}

func (p *OpenAIProvider) ID() string { return p.id }

func (p *OpenAIProvider) Models() []ModelInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ModelInfo, 0, len(p.models))
	for _, m := range p.models {
		out = append(out, m)
	}
	return out
}

func (p *OpenAIProvider) GetModel(id string) (ModelInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.models[id]
	return m, ok
}

// RegisterModel adds or replaces a model's capability entry, mirroring
// the teacher's pkg/llm/capabilities.go SetCapabilities.
func (p *OpenAIProvider) RegisterModel(m ModelInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[m.ID] = m
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Parts) == 0 {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Text})
			continue
		}
		for _, part := range m.Parts {
			switch part.Type {
			case "text":
				out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: part.Text})
			case "tool_use":
				args, _ := json.Marshal(part.ToolInput)
				out = append(out, openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   part.ToolCallID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      part.ToolName,
							Arguments: string(args),
						},
					}},
				})
			case "tool_result":
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    part.ToolOutput,
					ToolCallID: part.ToolCallID,
				})
			}
		}
	}
	return out
}

func toOpenAITools(defs []ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema,
			},
		})
	}
	return out
}

func toOpenAIRequest(req ChatRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  toOpenAIMessages(req.Messages),
		Tools:     toOpenAITools(req.Tools),
		MaxTokens: req.MaxTokens,
		Stream:    req.Stream,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		out.TopP = float32(*req.TopP)
	}
	return out
}

// Chat issues a non-streaming completion.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	oaReq := toOpenAIRequest(req)
	oaReq.Stream = false

	resp, err := p.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("provider(%s): chat: %w", p.id, err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("provider(%s): empty choices", p.id)
	}

	choice := resp.Choices[0]
	out := ChatResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		out.ToolCalls = append(out.ToolCalls, ToolCallResult{
			CallID: tc.ID,
			Name:   tc.Function.Name,
			Input:  input,
		})
	}
	return out, nil
}

// openaiStream adapts *openai.ChatCompletionStream to the ChatStream
// interface, accumulating per-call-id argument fragments the way
// jack-phare-goat's pkg/llm/stream.go's ToolCallAccumulator does.
type openaiStream struct {
	stream  *openai.ChatCompletionStream
	pending []StreamEvent
	callIdx map[int]string // tool-call index -> call id, filled on first delta
	done    bool
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	oaReq := toOpenAIRequest(req)
	oaReq.Stream = true

	s, err := p.client.CreateChatCompletionStream(ctx, oaReq)
	if err != nil {
		return nil, fmt.Errorf("provider(%s): chat_stream: %w", p.id, err)
	}
	return &openaiStream{stream: s, callIdx: make(map[int]string)}, nil
}

func (s *openaiStream) Next(ctx context.Context) (StreamEvent, bool) {
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		return ev, true
	}
	if s.done {
		return StreamEvent{}, false
	}

	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		s.done = true
		return StreamEvent{Type: EventDone}, true
	}
	if err != nil {
		s.done = true
		return StreamEvent{Type: EventError, Err: err}, true
	}
	if len(resp.Choices) == 0 {
		return s.Next(ctx)
	}

	choice := resp.Choices[0]
	delta := choice.Delta

	if delta.Content != "" {
		s.pending = append(s.pending, StreamEvent{Type: EventTextDelta, Delta: delta.Content})
	}
	for _, tc := range delta.ToolCalls {
		idx := 0
		if tc.Index != nil {
			idx = *tc.Index
		}
		callID, ok := s.callIdx[idx]
		if !ok {
			callID = tc.ID
			s.callIdx[idx] = callID
		}
		s.pending = append(s.pending, StreamEvent{
			Type:        EventToolCallDelta,
			CallID:      callID,
			Name:        tc.Function.Name,
			ArgFragment: tc.Function.Arguments,
		})
	}
	if choice.FinishReason != "" {
		for idx, callID := range s.callIdx {
			_ = idx
			s.pending = append(s.pending, StreamEvent{Type: EventToolCallEnd, CallID: callID})
		}
		usage := Usage{}
		if resp.Usage != nil {
			usage.InputTokens = resp.Usage.PromptTokens
			usage.OutputTokens = resp.Usage.CompletionTokens
		}
		s.pending = append(s.pending, StreamEvent{
			Type:         EventFinishStep,
			FinishReason: string(choice.FinishReason),
			Usage:        usage,
		})
	}

	return s.Next(ctx)
}

func (s *openaiStream) Close() error {
	s.stream.Close()
	return nil
}
