package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Provider selects which API backend serves the conversation. The provider
// determines caching support and the image-retention budget (see Loop.Run).
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
	ProviderVertex    Provider = "vertex"
)

// SupportsPromptCaching reports whether the provider serves the server-side
// prompt cache. Only the first-party API does.
func (p Provider) SupportsPromptCaching() bool {
	return p == ProviderAnthropic
}

// Client is the API capability the loop talks to. Implementations own
// transport, authentication and retries; the loop never retries.
//
// CreateMessage returns either a successful Response or an error. A
// *RequestError signals a structured API-level failure (bad request,
// validation failure, non-2xx status) that the loop recovers from by
// terminating cleanly; any other error propagates to the caller.
type Client interface {
	CreateMessage(ctx context.Context, req *Request) (*Response, error)
}

// Request carries everything needed for one Messages API exchange. The
// message slice is the loop's full (policy-applied) history; implementations
// must not mutate it.
type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolSchema

	MaxTokens      int
	ThinkingBudget int
	Betas          []string

	// CacheSystemPrompt marks the system prompt as a cache breakpoint.
	CacheSystemPrompt bool
}

// Response is a successful model reply: ordered content blocks plus the
// stop reason and token usage reported by the API. Raw request/response are
// retained for the exchange callback.
type Response struct {
	Content    []ContentBlock
	StopReason string
	Usage      Usage

	HTTPRequest  *http.Request
	HTTPResponse *http.Response
}

// Usage is the token accounting reported with a response.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// RequestError is a structured API-level failure. The loop reports it via
// the exchange callback and returns the history accumulated so far; it is
// never retried by the loop itself.
type RequestError struct {
	StatusCode int
	Message    string
	RequestID  string

	HTTPRequest  *http.Request
	HTTPResponse *http.Response

	Cause error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api request failed: status=%d %s", e.StatusCode, e.Message)
	}
	return "api request failed: " + e.Message
}

func (e *RequestError) Unwrap() error { return e.Cause }

// ToolSchema describes one tool to the model.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema json.RawMessage

	// Computer is set for the native computer-use tool, which is declared
	// to the API by display geometry rather than a JSON schema.
	Computer *ComputerConfig
}

// ComputerConfig is the display geometry of the virtual desktop.
type ComputerConfig struct {
	DisplayWidthPx  int
	DisplayHeightPx int
	DisplayNumber   int

	// Version names the tool declaration generation ("computer_use_20241022"
	// or "computer_use_20250124"). The collection stamps it so the API
	// declaration matches the beta flag the collection requests. Empty
	// selects the 2025-01-24 declaration.
	Version string
}

// ToolRunner is the tool collection capability: schema exposure for the
// request plus by-name execution. Run returns ErrToolNotFound (wrapped)
// when the name is unregistered, before any execution is attempted.
type ToolRunner interface {
	Run(ctx context.Context, name string, input json.RawMessage) (*ToolResult, error)
	Schemas() []ToolSchema
	BetaFlag() string
}
