package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// convertMessages translates the domain history into beta message params.
// Cache markers on blocks become ephemeral cache_control entries. Messages
// left without any content (every block dropped by normalization) are
// skipped: the API rejects empty content.
func convertMessages(messages []agent.Message) ([]anthropic.BetaMessageParam, error) {
	result := make([]anthropic.BetaMessageParam, 0, len(messages))

	for _, msg := range messages {
		var content []anthropic.BetaContentBlockParamUnion

		if msg.HasBlocks() {
			for _, block := range msg.Blocks {
				converted, err := convertBlock(block)
				if err != nil {
					return nil, err
				}
				content = append(content, converted)
			}
		} else if msg.Text != "" {
			content = append(content, anthropic.NewBetaTextBlock(msg.Text))
		}
		if len(content) == 0 {
			continue
		}

		role := anthropic.BetaMessageParamRoleUser
		if msg.Role == agent.RoleAssistant {
			role = anthropic.BetaMessageParamRoleAssistant
		}
		result = append(result, anthropic.BetaMessageParam{
			Role:    role,
			Content: content,
		})
	}

	return result, nil
}

func convertBlock(block agent.ContentBlock) (anthropic.BetaContentBlockParamUnion, error) {
	switch b := block.(type) {
	case *agent.TextBlock:
		param := anthropic.BetaTextBlockParam{Text: b.Text}
		if b.CacheControl {
			param.CacheControl = anthropic.NewBetaCacheControlEphemeralParam()
		}
		return anthropic.BetaContentBlockParamUnion{OfText: &param}, nil

	case *agent.ThinkingBlock:
		return anthropic.BetaContentBlockParamUnion{
			OfThinking: &anthropic.BetaThinkingBlockParam{
				Thinking:  b.Thinking,
				Signature: b.Signature,
			},
		}, nil

	case *agent.ToolUseBlock:
		var input map[string]interface{}
		if err := json.Unmarshal(b.Input, &input); err != nil {
			return anthropic.BetaContentBlockParamUnion{}, fmt.Errorf("invalid tool_use input for %s: %w", b.Name, err)
		}
		param := anthropic.NewBetaToolUseBlock(b.ID, input, b.Name)
		if b.CacheControl && param.OfToolUse != nil {
			param.OfToolUse.CacheControl = anthropic.NewBetaCacheControlEphemeralParam()
		}
		return param, nil

	case *agent.ToolResultBlock:
		return convertToolResult(b)

	default:
		return anthropic.BetaContentBlockParamUnion{}, fmt.Errorf("unsupported content block %T", block)
	}
}

func convertToolResult(block *agent.ToolResultBlock) (anthropic.BetaContentBlockParamUnion, error) {
	param := anthropic.BetaToolResultBlockParam{
		ToolUseID: block.ToolUseID,
	}
	if block.IsError {
		param.IsError = anthropic.Bool(true)
	}
	if block.CacheControl {
		param.CacheControl = anthropic.NewBetaCacheControlEphemeralParam()
	}

	var content []anthropic.BetaToolResultBlockParamContentUnion
	for _, sub := range block.Content {
		switch s := sub.(type) {
		case *agent.TextContent:
			content = append(content, anthropic.BetaToolResultBlockParamContentUnion{
				OfText: &anthropic.BetaTextBlockParam{Text: s.Text},
			})
		case *agent.ImageContent:
			mediaType, ok := imageMediaType(s.MediaType)
			if !ok {
				return anthropic.BetaContentBlockParamUnion{}, fmt.Errorf("unsupported image media type %q", s.MediaType)
			}
			content = append(content, anthropic.BetaToolResultBlockParamContentUnion{
				OfImage: &anthropic.BetaImageBlockParam{
					Source: anthropic.BetaImageBlockParamSourceUnion{
						OfBase64: &anthropic.BetaBase64ImageSourceParam{
							Data:      s.Data,
							MediaType: mediaType,
						},
					},
				},
			})
		default:
			return anthropic.BetaContentBlockParamUnion{}, fmt.Errorf("unsupported tool_result content %T", sub)
		}
	}
	if len(content) > 0 {
		param.Content = content
	}

	return anthropic.BetaContentBlockParamUnion{OfToolResult: &param}, nil
}

func imageMediaType(mediaType string) (anthropic.BetaBase64ImageSourceMediaType, bool) {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return anthropic.BetaBase64ImageSourceMediaTypeImageJPEG, true
	case "image/png":
		return anthropic.BetaBase64ImageSourceMediaTypeImagePNG, true
	case "image/gif":
		return anthropic.BetaBase64ImageSourceMediaTypeImageGIF, true
	case "image/webp":
		return anthropic.BetaBase64ImageSourceMediaTypeImageWebP, true
	default:
		return "", false
	}
}

// convertTools translates the tool schemas. The computer tool is declared by
// display geometry; everything else carries a JSON input schema.
func convertTools(tools []agent.ToolSchema) ([]anthropic.BetaToolUnionParam, error) {
	var result []anthropic.BetaToolUnionParam

	for _, tool := range tools {
		if cfg := tool.Computer; cfg != nil {
			param, err := convertComputerTool(cfg)
			if err != nil {
				return nil, err
			}
			result = append(result, param)
			continue
		}

		var schema anthropic.BetaToolInputSchemaParam
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		param := anthropic.BetaToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		if tool.Description != "" {
			param.OfTool.Description = anthropic.String(tool.Description)
		}
		result = append(result, param)
	}

	return result, nil
}

// convertComputerTool declares the native computer tool. The declaration
// generation must match the beta flag the request carries, so the version
// stamped on the config picks the tool type.
func convertComputerTool(cfg *agent.ComputerConfig) (anthropic.BetaToolUnionParam, error) {
	height := int64(cfg.DisplayHeightPx)
	width := int64(cfg.DisplayWidthPx)

	switch cfg.Version {
	case "computer_use_20241022":
		param := anthropic.BetaToolUnionParamOfComputerUseTool20241022(height, width)
		if param.OfComputerUseTool20241022 != nil && cfg.DisplayNumber > 0 {
			param.OfComputerUseTool20241022.DisplayNumber = anthropic.Int(int64(cfg.DisplayNumber))
		}
		return param, nil

	case "", "computer_use_20250124":
		param := anthropic.BetaToolUnionParamOfComputerUseTool20250124(height, width)
		if param.OfComputerUseTool20250124 != nil && cfg.DisplayNumber > 0 {
			param.OfComputerUseTool20250124.DisplayNumber = anthropic.Int(int64(cfg.DisplayNumber))
		}
		return param, nil

	default:
		return anthropic.BetaToolUnionParam{}, fmt.Errorf("unsupported computer tool version %q", cfg.Version)
	}
}

// convertResponseContent translates reply blocks into domain blocks. Block
// types the loop has no representation for are dropped.
func convertResponseContent(content []anthropic.BetaContentBlockUnion) []agent.ContentBlock {
	result := make([]agent.ContentBlock, 0, len(content))

	for _, block := range content {
		switch block.Type {
		case "text":
			text := block.AsText()
			result = append(result, &agent.TextBlock{Text: text.Text})

		case "thinking":
			thinking := block.AsThinking()
			result = append(result, &agent.ThinkingBlock{
				Thinking:  thinking.Thinking,
				Signature: thinking.Signature,
			})

		case "tool_use":
			toolUse := block.AsToolUse()
			input, err := json.Marshal(toolUse.Input)
			if err != nil {
				input = []byte("{}")
			}
			result = append(result, &agent.ToolUseBlock{
				ID:    toolUse.ID,
				Name:  toolUse.Name,
				Input: input,
			})
		}
	}

	return result
}
