package agent

// cacheBreakpoints is the number of recent user turns marked as prompt
// cache breakpoints. One additional breakpoint is reserved for the system
// prompt and tool schemas, shared across sessions.
const cacheBreakpoints = 3

// InjectCacheBreakpoints annotates the final content block of up to the 3
// most recent block-content user turns as cache-eligible, and clears the
// one stale annotation left behind by the previous iteration.
//
// In steady state each loop iteration appends one user turn, so exactly one
// older turn carries a leftover marker; the scan stops as soon as it has
// inspected that turn. Plain-text user messages are skipped without
// consuming a breakpoint slot. Callers whose provider does not support
// prompt caching must not invoke this.
func InjectCacheBreakpoints(messages []Message) {
	remaining := cacheBreakpoints
	for i := len(messages) - 1; i >= 0; i-- {
		msg := &messages[i]
		if msg.Role != RoleUser || !msg.HasBlocks() || len(msg.Blocks) == 0 {
			continue
		}
		last := msg.Blocks[len(msg.Blocks)-1]
		if remaining > 0 {
			remaining--
			setCacheControl(last, true)
			continue
		}
		if hasCacheControl(last) {
			setCacheControl(last, false)
		}
		// Only one extra turn can hold a stale marker per iteration.
		break
	}
}
