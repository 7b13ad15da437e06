package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// writeTranscript dumps the message history as JSON in the wire shape of
// the Messages API, so transcripts can be inspected or replayed.
func writeTranscript(path string, messages []agent.Message) error {
	out := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		out = append(out, transcriptMessage(msg))
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return os.WriteFile(path, payload, 0o644)
}

func transcriptMessage(msg agent.Message) map[string]any {
	if !msg.HasBlocks() {
		return map[string]any{"role": string(msg.Role), "content": msg.Text}
	}

	blocks := make([]map[string]any, 0, len(msg.Blocks))
	for _, block := range msg.Blocks {
		blocks = append(blocks, transcriptBlock(block))
	}
	return map[string]any{"role": string(msg.Role), "content": blocks}
}

func transcriptBlock(block agent.ContentBlock) map[string]any {
	switch b := block.(type) {
	case *agent.TextBlock:
		return map[string]any{"type": "text", "text": b.Text}

	case *agent.ThinkingBlock:
		return map[string]any{"type": "thinking", "thinking": b.Thinking, "signature": b.Signature}

	case *agent.ToolUseBlock:
		return map[string]any{
			"type":  "tool_use",
			"id":    b.ID,
			"name":  b.Name,
			"input": json.RawMessage(b.Input),
		}

	case *agent.ToolResultBlock:
		content := make([]map[string]any, 0, len(b.Content))
		for _, sub := range b.Content {
			switch s := sub.(type) {
			case *agent.TextContent:
				content = append(content, map[string]any{"type": "text", "text": s.Text})
			case *agent.ImageContent:
				content = append(content, map[string]any{
					"type": "image",
					"source": map[string]any{
						"type":       "base64",
						"media_type": s.MediaType,
						"data":       s.Data,
					},
				})
			}
		}
		return map[string]any{
			"type":        "tool_result",
			"tool_use_id": b.ToolUseID,
			"is_error":    b.IsError,
			"content":     content,
		}

	default:
		return map[string]any{"type": "unknown"}
	}
}
