package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Beta flags assembled per request.
const (
	promptCachingBetaFlag       = "prompt-caching-2024-07-31"
	tokenEfficientToolsBetaFlag = "token-efficient-tools-2025-02-19"
	computerUse20250124BetaFlag = "computer-use-2025-01-24"
)

// bedrockImageBudget is the fixed screenshot budget for bedrock, which has
// no prompt cache to preserve and therefore truncates immediately.
const bedrockImageBudget = 3

// ErrNoClient is returned when a loop is constructed without an API client.
var ErrNoClient = errors.New("agent: no api client configured")

// ErrMaxIterations is returned when the optional iteration cap is reached.
var ErrMaxIterations = errors.New("agent: max iterations reached")

// Callbacks are the loop's three side-effecting observers. All are optional
// and must not mutate the message history.
type Callbacks struct {
	// OnContent observes each normalized assistant content block.
	OnContent func(block ContentBlock)

	// OnToolResult observes each raw tool result with its tool_use id.
	OnToolResult func(result *ToolResult, toolUseID string)

	// OnAPIExchange observes each raw API exchange. On success err is nil;
	// on a structured API failure resp may be nil and err carries the
	// *RequestError.
	OnAPIExchange func(req *http.Request, resp *http.Response, err error)
}

// Options configure one sampling loop.
type Options struct {
	Model    string
	Provider Provider

	// SystemPromptSuffix is appended to the fixed base system prompt.
	SystemPromptSuffix string

	// OnlyNMostRecentImages bounds embedded screenshots in the history.
	// Zero leaves the history untruncated (except on bedrock, which always
	// keeps at most bedrockImageBudget).
	OnlyNMostRecentImages int

	// MaxTokens caps the response length. Zero means 4096.
	MaxTokens int

	// ThinkingBudget enables extended thinking when nonzero.
	ThinkingBudget int

	// TokenEfficientTools opts in to the token-efficient tool-use beta.
	TokenEfficientTools bool

	// MaxIterations caps assistant turns per run. Zero means unlimited.
	MaxIterations int

	Logger *slog.Logger
}

// Loop drives the request, normalize, execute-tools, append cycle.
//
// The loop is single-threaded and cooperative: one blocking exchange per
// iteration, then every requested tool strictly in order. It holds
// exclusive mutation rights over the history for the duration of Run;
// concurrent runs over the same slice are not supported.
type Loop struct {
	client    Client
	tools     ToolRunner
	opts      Options
	callbacks Callbacks
	logger    *slog.Logger
}

// New creates a sampling loop. Callbacks may be zero-valued.
func New(client Client, tools ToolRunner, opts Options, callbacks Callbacks) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Loop{
		client:    client,
		tools:     tools,
		opts:      opts,
		callbacks: callbacks,
		logger:    logger,
	}
}

// Run executes the loop over messages until the model's turn contains no
// tool invocations, then returns the full history.
//
// A structured API failure ends the loop cleanly: the failed exchange is
// reported through OnAPIExchange and the history as of the last successful
// append is returned with a nil error. Any other failure (a tool crash, an
// unresolvable tool name) propagates, leaving the history unmodified since
// the last successful append.
func (l *Loop) Run(ctx context.Context, messages []Message) ([]Message, error) {
	if l.client == nil {
		return messages, ErrNoClient
	}
	if l.tools == nil {
		return messages, errors.New("agent: no tool collection configured")
	}

	system := SystemPrompt(l.opts.SystemPromptSuffix)
	caching := l.opts.Provider.SupportsPromptCaching()

	// Mutable copy: once caching is enabled the configured count is zeroed
	// after the first trim so later truncation never breaks the cache.
	onlyN := l.opts.OnlyNMostRecentImages

	for iteration := 1; ; iteration++ {
		if l.opts.MaxIterations > 0 && iteration > l.opts.MaxIterations {
			return messages, fmt.Errorf("%w: %d", ErrMaxIterations, l.opts.MaxIterations)
		}
		if err := ctx.Err(); err != nil {
			return messages, err
		}

		betas := make([]string, 0, 3)
		flag := l.tools.BetaFlag()
		if flag != "" {
			betas = append(betas, flag)
		}
		// The token-efficient beta only exists for the 2025-01-24 tool group.
		if l.opts.TokenEfficientTools && flag == computerUse20250124BetaFlag {
			betas = append(betas, tokenEfficientToolsBetaFlag)
		}
		if caching {
			betas = append(betas, promptCachingBetaFlag)
		}

		switch {
		case l.opts.Provider == ProviderBedrock:
			TrimImages(messages, bedrockImageBudget, 0)
		case onlyN > 0:
			TrimImages(messages, onlyN, onlyN)
			if caching {
				// Cached reads cost a fraction of fresh input tokens, so
				// breaking the cache to drop images is never worth it.
				onlyN = 0
			}
		}

		if caching {
			InjectCacheBreakpoints(messages)
		}

		req := &Request{
			Model:             l.opts.Model,
			System:            system,
			Messages:          messages,
			Tools:             l.tools.Schemas(),
			MaxTokens:         l.opts.MaxTokens,
			ThinkingBudget:    l.opts.ThinkingBudget,
			Betas:             betas,
			CacheSystemPrompt: caching,
		}

		l.logger.Debug("issuing api request",
			"iteration", iteration,
			"model", l.opts.Model,
			"provider", string(l.opts.Provider),
			"messages", len(messages),
			"betas", betas,
		)

		resp, err := l.client.CreateMessage(ctx, req)
		if err != nil {
			var reqErr *RequestError
			if errors.As(err, &reqErr) {
				l.logger.Error("api request failed",
					"iteration", iteration,
					"status", reqErr.StatusCode,
					"error", reqErr.Message,
				)
				l.emitExchange(reqErr.HTTPRequest, reqErr.HTTPResponse, reqErr)
				return messages, nil
			}
			return messages, fmt.Errorf("agent: api call: %w", err)
		}

		l.emitExchange(resp.HTTPRequest, resp.HTTPResponse, nil)
		l.logger.Debug("api response received",
			"iteration", iteration,
			"stop_reason", resp.StopReason,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"cache_read_tokens", resp.Usage.CacheReadInputTokens,
		)

		assistantBlocks := normalizeResponse(resp.Content)
		messages = append(messages, Message{Role: RoleAssistant, Blocks: assistantBlocks})

		var toolResults []ContentBlock
		for _, block := range assistantBlocks {
			l.emitContent(block)
			toolUse, ok := block.(*ToolUseBlock)
			if !ok {
				continue
			}

			l.logger.Info("executing tool", "tool", toolUse.Name, "tool_use_id", toolUse.ID)
			result, err := l.tools.Run(ctx, toolUse.Name, toolUse.Input)
			if err != nil {
				return messages, fmt.Errorf("agent: tool %q: %w", toolUse.Name, err)
			}
			if result.Error != "" {
				l.logger.Warn("tool returned error", "tool", toolUse.Name, "error", result.Error)
			}

			toolResults = append(toolResults, makeToolResultBlock(result, toolUse.ID))
			l.emitToolResult(result, toolUse.ID)
		}

		if len(toolResults) == 0 {
			l.logger.Info("loop complete", "iterations", iteration, "messages", len(messages))
			return messages, nil
		}

		messages = append(messages, Message{Role: RoleUser, Blocks: toolResults})
	}
}

func (l *Loop) emitContent(block ContentBlock) {
	if l.callbacks.OnContent != nil {
		l.callbacks.OnContent(block)
	}
}

func (l *Loop) emitToolResult(result *ToolResult, toolUseID string) {
	if l.callbacks.OnToolResult != nil {
		l.callbacks.OnToolResult(result, toolUseID)
	}
}

func (l *Loop) emitExchange(req *http.Request, resp *http.Response, err error) {
	if l.callbacks.OnAPIExchange != nil {
		l.callbacks.OnAPIExchange(req, resp, err)
	}
}
