package agent

import "testing"

func userBlockTurn(text string) Message {
	return Message{Role: RoleUser, Blocks: []ContentBlock{
		&ToolResultBlock{ToolUseID: "id", Content: []ToolResultContent{&TextContent{Text: text}}},
	}}
}

func assistantTurn(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []ContentBlock{&TextBlock{Text: text}}}
}

func markedCount(messages []Message) int {
	count := 0
	for i := range messages {
		for _, block := range messages[i].Blocks {
			if hasCacheControl(block) {
				count++
			}
		}
	}
	return count
}

func TestInjectCacheBreakpointsMarksThreeMostRecentUserTurns(t *testing.T) {
	var messages []Message
	for i := 0; i < 5; i++ {
		messages = append(messages, userBlockTurn("turn"), assistantTurn("ok"))
	}

	InjectCacheBreakpoints(messages)

	if got := markedCount(messages); got != 3 {
		t.Fatalf("expected 3 breakpoints, got %d", got)
	}
	// The three most recent user turns are at indices 4, 6, 8.
	for _, idx := range []int{4, 6, 8} {
		last := messages[idx].Blocks[len(messages[idx].Blocks)-1]
		if !hasCacheControl(last) {
			t.Errorf("message %d: expected cache marker on final block", idx)
		}
	}
}

func TestInjectCacheBreakpointsClearsOneStaleMarker(t *testing.T) {
	var messages []Message
	for i := 0; i < 4; i++ {
		messages = append(messages, userBlockTurn("turn"), assistantTurn("ok"))
	}

	// Steady state: a previous iteration marked what were then the three
	// most recent user turns. Appending one more turn leaves a stale
	// marker on the now fourth-most-recent.
	InjectCacheBreakpoints(messages)
	messages = append(messages, userBlockTurn("new"), assistantTurn("ok"))
	InjectCacheBreakpoints(messages)

	if got := markedCount(messages); got != 3 {
		t.Fatalf("expected 3 breakpoints after re-injection, got %d", got)
	}
	stale := messages[0].Blocks[len(messages[0].Blocks)-1]
	if hasCacheControl(stale) {
		t.Error("expected stale marker on oldest user turn cleared")
	}
}

func TestInjectCacheBreakpointsSkipsPlainTextUserTurns(t *testing.T) {
	messages := []Message{
		userBlockTurn("oldest"),
		assistantTurn("ok"),
		UserText("plain text turn"),
		assistantTurn("ok"),
		userBlockTurn("newest"),
	}

	InjectCacheBreakpoints(messages)

	// Plain-text turn consumes no slot; both block turns are marked.
	if got := markedCount(messages); got != 2 {
		t.Fatalf("expected 2 breakpoints, got %d", got)
	}
}

func TestInjectCacheBreakpointsFewerThanThreeUserTurns(t *testing.T) {
	messages := []Message{userBlockTurn("only")}
	InjectCacheBreakpoints(messages)
	if got := markedCount(messages); got != 1 {
		t.Fatalf("expected 1 breakpoint, got %d", got)
	}
}

func TestInjectCacheBreakpointsNeverMarksAssistantTurns(t *testing.T) {
	messages := []Message{assistantTurn("a"), assistantTurn("b")}
	InjectCacheBreakpoints(messages)
	if got := markedCount(messages); got != 0 {
		t.Fatalf("expected no breakpoints, got %d", got)
	}
}
