package agent

// normalizeResponse maps a model response's content blocks to their
// message-history representation.
//
// Block order is preserved. The only block ever dropped is an empty
// non-thinking text block; thinking text and signatures pass through
// unmodified, and tool_use id/name/input are preserved exactly.
func normalizeResponse(content []ContentBlock) []ContentBlock {
	normalized := make([]ContentBlock, 0, len(content))
	for _, block := range content {
		switch b := block.(type) {
		case *TextBlock:
			if b.Text == "" {
				continue
			}
			normalized = append(normalized, &TextBlock{Text: b.Text})
		case *ThinkingBlock:
			normalized = append(normalized, &ThinkingBlock{
				Thinking:  b.Thinking,
				Signature: b.Signature,
			})
		case *ToolUseBlock:
			normalized = append(normalized, &ToolUseBlock{
				ID:    b.ID,
				Name:  b.Name,
				Input: b.Input,
			})
		default:
			normalized = append(normalized, block)
		}
	}
	return normalized
}
