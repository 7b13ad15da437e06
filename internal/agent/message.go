// Package agent implements the sampling loop that drives a conversation
// between the Anthropic Messages API and local tool executors.
//
// The loop owns a growing message history, applies the image-retention and
// prompt-cache policies before each request, sends the request through an
// injected API capability, executes every tool the model asked for, and
// feeds the results back until the model stops requesting tools.
package agent

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the conversation. Content is either plain text
// (Text, with Blocks nil) or an ordered block sequence. Block order is
// conversation order and is never reordered, only truncated in place.
type Message struct {
	Role   Role
	Text   string
	Blocks []ContentBlock
}

// HasBlocks reports whether the message carries block-sequence content.
// Plain-text messages are skipped by the cache breakpoint policy.
func (m *Message) HasBlocks() bool {
	return m.Blocks != nil
}

// UserText builds a plain-text user turn, used to seed a conversation.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// ContentBlock is the tagged union of block kinds that can appear in a
// message: text, thinking, tool_use and tool_result. Concrete types are
// pointers so the retention and cache policies can mutate history in place.
type ContentBlock interface {
	blockKind() string
}

// TextBlock carries plain assistant or user text.
type TextBlock struct {
	Text string

	// CacheControl marks the block as a prompt-cache breakpoint.
	CacheControl bool
}

// ThinkingBlock carries an opaque reasoning trace emitted by the model.
// Thinking text and the signature token are passed through unmodified;
// they are never parsed or truncated.
type ThinkingBlock struct {
	Thinking  string
	Signature string
}

// ToolUseBlock is a model-emitted request to invoke a named tool.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage

	CacheControl bool
}

// ToolResultBlock is the loop's reply to a tool_use block.
type ToolResultBlock struct {
	ToolUseID string
	Content   []ToolResultContent
	IsError   bool

	CacheControl bool
}

func (*TextBlock) blockKind() string       { return "text" }
func (*ThinkingBlock) blockKind() string   { return "thinking" }
func (*ToolUseBlock) blockKind() string    { return "tool_use" }
func (*ToolResultBlock) blockKind() string { return "tool_result" }

// ToolResultContent is the union of sub-blocks inside a tool_result:
// text or a base64-encoded image.
type ToolResultContent interface {
	resultKind() string
}

// TextContent is a text sub-block of a tool result.
type TextContent struct {
	Text string
}

// ImageContent is a base64-encoded image sub-block of a tool result.
type ImageContent struct {
	MediaType string
	Data      string
}

func (*TextContent) resultKind() string  { return "text" }
func (*ImageContent) resultKind() string { return "image" }

// setCacheControl sets or clears the cache marker on a block. Thinking
// blocks cannot carry cache annotations; setting one is a no-op.
func setCacheControl(block ContentBlock, on bool) {
	switch b := block.(type) {
	case *TextBlock:
		b.CacheControl = on
	case *ToolUseBlock:
		b.CacheControl = on
	case *ToolResultBlock:
		b.CacheControl = on
	}
}

// hasCacheControl reports whether a block carries a cache marker.
func hasCacheControl(block ContentBlock) bool {
	switch b := block.(type) {
	case *TextBlock:
		return b.CacheControl
	case *ToolUseBlock:
		return b.CacheControl
	case *ToolResultBlock:
		return b.CacheControl
	default:
		return false
	}
}
