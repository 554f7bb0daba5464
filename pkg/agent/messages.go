package agent

import (
	"encoding/json"

	"github.com/flowdeck/agentcore/pkg/llm"
	"github.com/flowdeck/agentcore/pkg/types"
)

// responseToAssistantMessage converts a CompletionResponse to an OpenAI assistant ChatMessage
// for inclusion in the conversation history.
func responseToAssistantMessage(resp *llm.CompletionResponse) llm.ChatMessage {
	cm := llm.ChatMessage{Role: "assistant"}

	var text string
	var toolBlocks []types.ContentBlock

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = block.Text
		case "tool_use":
			toolBlocks = append(toolBlocks, block)
		}
	}

	if text != "" {
		cm.Content = text
	}

	for _, block := range toolBlocks {
		args, _ := json.Marshal(block.Input)
		cm.ToolCalls = append(cm.ToolCalls, llm.ToolCall{
			ID:   block.ID,
			Type: "function",
			Function: llm.FunctionCall{
				Name:      block.Name,
				Arguments: string(args),
			},
		})
	}

	return cm
}

// toolResultsToMessages converts tool execution results to OpenAI "tool" role messages.
func toolResultsToMessages(results []llm.ToolResult) []llm.ChatMessage {
	return llm.ConvertToToolMessages(results)
}

// pruneOldToolResults shortens "tool" messages longer than 1000 characters to
// their first 200 characters plus a truncation marker, except within the last
// preserveRecent messages (a negative value counts as 0).
func pruneOldToolResults(messages []llm.ChatMessage, preserveRecent int) []llm.ChatMessage {
	result := append([]llm.ChatMessage(nil), messages...)
	for i := 0; i < len(result)-max(preserveRecent, 0); i++ {
		if s, ok := result[i].Content.(string); ok && result[i].Role == "tool" && len(s) > 1000 {
			result[i] = llm.ChatMessage{Role: "tool", ToolCallID: result[i].ToolCallID, Content: s[:200] + "\n... [output truncated]"}
		}
	}
	return result
}

// extractToolUseBlocks pulls out all tool_use content blocks from a CompletionResponse.
func extractToolUseBlocks(resp *llm.CompletionResponse) []types.ContentBlock {
	var blocks []types.ContentBlock
	for _, b := range resp.Content {
		if b.Type == "tool_use" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
