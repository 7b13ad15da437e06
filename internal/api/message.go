package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// CreateMessage performs one blocking Messages API exchange. API-level
// failures come back as *agent.RequestError; everything else (conversion,
// transport setup) propagates as a plain error.
func (c *Client) CreateMessage(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("api: convert messages: %w", err)
	}
	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, fmt.Errorf("api: convert tools: %w", err)
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(req.MaxTokens),
		Tools:     tools,
	}

	if req.System != "" {
		block := anthropic.BetaTextBlockParam{Text: req.System}
		if req.CacheSystemPrompt {
			block.CacheControl = anthropic.NewBetaCacheControlEphemeralParam()
		}
		params.System = []anthropic.BetaTextBlockParam{block}
	}

	if len(req.Betas) > 0 {
		betas := make([]anthropic.AnthropicBeta, len(req.Betas))
		for i, beta := range req.Betas {
			betas[i] = anthropic.AnthropicBeta(beta)
		}
		params.Betas = betas
	}

	if req.ThinkingBudget > 0 {
		params.Thinking = anthropic.BetaThinkingConfigParamOfEnabled(int64(req.ThinkingBudget))
	}

	var raw *http.Response
	message, err := c.sdk.Beta.Messages.New(ctx, params, option.WithResponseInto(&raw))
	if err != nil {
		return nil, wrapError(err)
	}

	resp := &agent.Response{
		Content:    convertResponseContent(message.Content),
		StopReason: string(message.StopReason),
		Usage: agent.Usage{
			InputTokens:              message.Usage.InputTokens,
			OutputTokens:             message.Usage.OutputTokens,
			CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
		},
		HTTPResponse: raw,
	}
	if raw != nil {
		resp.HTTPRequest = raw.Request
	}
	return resp, nil
}
