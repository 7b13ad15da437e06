package agent

// TrimImages removes the oldest embedded images from tool_result blocks in
// place so at most imagesToKeep remain across the entire history.
//
// Screenshots lose value as the conversation progresses, so removal is
// oldest-first. When minRemovalThreshold > 0 the excess is rounded down to
// the nearest multiple of the threshold so removal happens in batches; a
// single expired image would otherwise invalidate the server-side prompt
// cache prefix on every iteration. A threshold of 0 removes the exact
// excess immediately.
//
// The policy runs on the full accumulated history before every request, so
// it is idempotent for stable counts. Text and error sub-blocks are never
// touched.
func TrimImages(messages []Message, imagesToKeep, minRemovalThreshold int) {
	if imagesToKeep < 0 {
		return
	}

	results := collectToolResults(messages)

	total := 0
	for _, block := range results {
		for _, content := range block.Content {
			if _, ok := content.(*ImageContent); ok {
				total++
			}
		}
	}

	toRemove := total - imagesToKeep
	if minRemovalThreshold > 0 {
		toRemove -= toRemove % minRemovalThreshold
	}
	if toRemove <= 0 {
		return
	}

	for _, block := range results {
		kept := block.Content[:0]
		for _, content := range block.Content {
			if _, ok := content.(*ImageContent); ok && toRemove > 0 {
				toRemove--
				continue
			}
			kept = append(kept, content)
		}
		block.Content = kept
	}
}

// collectToolResults returns every tool_result block in conversation order.
func collectToolResults(messages []Message) []*ToolResultBlock {
	var results []*ToolResultBlock
	for i := range messages {
		for _, block := range messages[i].Blocks {
			if tr, ok := block.(*ToolResultBlock); ok {
				results = append(results, tr)
			}
		}
	}
	return results
}
