package convo

import (
	"encoding/json"
	"strings"

	"github.com/flowdeck/agentcore/pkg/llm"
)

// AppendUserText appends a single-part User message carrying text.
func (s *State) AppendUserText(sess *Session, text string) (*Message, error) {
	return s.AppendMessage(sess, RoleUser, []Part{&TextPart{Text: text}})
}

// AppendAssistantResponse converts a provider completion into an Assistant
// message: each text/thinking content block becomes a TextPart/ReasoningPart
// and each tool_use block becomes a pending ToolCallPart, closed with the
// FinishReason translated from resp.StopReason (§4.2 ConsumeStream).
func (s *State) AppendAssistantResponse(sess *Session, resp *llm.CompletionResponse) (*Message, error) {
	var parts []Part
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			parts = append(parts, &TextPart{Text: block.Text})
		case "thinking":
			parts = append(parts, &ReasoningPart{Text: block.Thinking})
		case "tool_use":
			parts = append(parts, &ToolCallPart{
				CallID: block.ID,
				Name:   block.Name,
				Input:  block.Input,
				Status: ToolCallPending,
			})
		}
	}

	msg, err := s.AppendMessage(sess, RoleAssistant, parts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	msg.Finish = finishReasonFromStopReason(resp.StopReason)
	msg.Usage = Usage{
		InputTokens:      int64(resp.Usage.InputTokens),
		OutputTokens:     int64(resp.Usage.OutputTokens),
		CacheReadTokens:  int64(resp.Usage.CacheReadInputTokens),
		CacheWriteTokens: int64(resp.Usage.CacheCreationInputTokens),
	}
	sess.Usage = sess.Usage.Add(msg.Usage)
	s.mu.Unlock()

	return msg, nil
}

func finishReasonFromStopReason(stopReason string) FinishReason {
	switch stopReason {
	case "end_turn":
		return FinishEndTurn
	case "tool_use":
		return FinishToolCalls
	case "max_tokens":
		return FinishMaxTokens
	case "stop_sequence":
		return FinishStopSequence
	default:
		return FinishReason(stopReason)
	}
}

// AppendToolResult records the outcome of a ToolCallPart: the originating
// call is transitioned to Completed/Error and a new Tool-role message
// carrying the ToolResultPart is appended (§4.3 dispatch completion).
func (s *State) AppendToolResult(sess *Session, callID, content string, isError bool) error {
	call := sess.FindToolCall(callID)
	if call == nil {
		return ErrPartNotFound
	}

	owner := s.findOwningMessage(sess, call)
	status := ToolCallCompleted
	if isError {
		status = ToolCallError
	}
	if owner != nil {
		if call.Status == ToolCallPending {
			running := *call
			running.Status = ToolCallRunning
			if err := s.UpdatePart(sess, owner, call.ID, &running); err != nil {
				return err
			}
			call = &running
		}
		done := *call
		done.Status = status
		if err := s.UpdatePart(sess, owner, call.ID, &done); err != nil {
			return err
		}
	}

	_, err := s.AppendMessage(sess, RoleTool, []Part{
		&ToolResultPart{CallID: callID, Content: content, IsError: isError},
	})
	return err
}

func (s *State) findOwningMessage(sess *Session, call *ToolCallPart) *Message {
	for _, m := range sess.Messages {
		for _, p := range m.Parts {
			if p.GetID() == call.ID {
				return m
			}
		}
	}
	return nil
}

// MarkCompacted marks every part of every message in sess.Messages[:splitIdx]
// as ignored rather than deleting them (spec's R3 non-destructive masking:
// compacted history stays on the session for audit/undo, it is simply
// excluded from future projections), then appends a System message carrying
// a CompactionPart with the summary at the boundary.
func (s *State) MarkCompacted(sess *Session, splitIdx int, summary string) (*Message, error) {
	s.mu.Lock()
	if sess.Status == StatusArchived {
		s.mu.Unlock()
		return nil, ErrArchived
	}
	if splitIdx < 0 {
		splitIdx = 0
	}
	if splitIdx > len(sess.Messages) {
		splitIdx = len(sess.Messages)
	}
	for _, msg := range sess.Messages[:splitIdx] {
		for _, p := range msg.Parts {
			p.setIgnored(true)
		}
	}
	s.touch(sess)
	s.mu.Unlock()

	return s.AppendMessage(sess, RoleSystem, []Part{&CompactionPart{Summary: summary}})
}

// ProjectChatMessages derives the wire-format provider request history by
// walking every non-ignored part in order (§4.2 BuildRequest). Parts marked
// ignored by MarkCompacted are skipped here but remain on the session.
func (sess *Session) ProjectChatMessages() []llm.ChatMessage {
	var out []llm.ChatMessage
	for _, msg := range sess.Messages {
		var text strings.Builder
		var toolCalls []llm.ToolCall
		for _, p := range msg.Parts {
			if p.isIgnored() {
				continue
			}
			switch v := p.(type) {
			case *TextPart:
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString(v.Text)
			case *CompactionPart:
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString("[Previous conversation summary]\n\n" + v.Summary)
			case *ToolCallPart:
				args, _ := json.Marshal(v.Input)
				toolCalls = append(toolCalls, llm.ToolCall{
					ID:       v.CallID,
					Type:     "function",
					Function: llm.FunctionCall{Name: v.Name, Arguments: string(args)},
				})
			case *ToolResultPart:
				out = append(out, llm.ChatMessage{
					Role:       string(RoleTool),
					Content:    v.Content,
					ToolCallID: v.CallID,
				})
			}
		}
		if text.Len() == 0 && len(toolCalls) == 0 {
			continue
		}
		out = append(out, llm.ChatMessage{
			Role:      string(msg.Role),
			Content:   text.String(),
			ToolCalls: toolCalls,
		})
	}
	return out
}
