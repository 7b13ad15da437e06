package agent

import "fmt"

// ToolResult is the uniform value produced by any tool invocation.
//
// Output and Error are not mutually exclusive, but a non-empty Error marks
// the API-facing tool_result as an error. System is an out-of-band note
// that is prepended, wrapped in a <system> marker, when the result is
// rendered for the model.
type ToolResult struct {
	Output      string
	Error       string
	Base64Image string
	System      string
}

// HasImage reports whether the result carries a screenshot.
func (r *ToolResult) HasImage() bool {
	return r.Base64Image != ""
}

// resultMediaType is the media type of tool screenshots. The desktop tools
// always capture PNG.
const resultMediaType = "image/png"

// makeToolResultBlock converts a ToolResult to the tool_result block sent
// back to the model, referencing the originating tool_use id.
//
// An entirely empty result (no output, error or image) yields a single
// empty-string text sub-block rather than an empty content sequence, so the
// block shape stays constant regardless of what the tool produced.
func makeToolResultBlock(result *ToolResult, toolUseID string) *ToolResultBlock {
	block := &ToolResultBlock{ToolUseID: toolUseID}

	if result.Error != "" {
		block.IsError = true
		block.Content = []ToolResultContent{
			&TextContent{Text: prependSystem(result, result.Error)},
		}
		return block
	}

	if result.Output != "" {
		block.Content = append(block.Content, &TextContent{
			Text: prependSystem(result, result.Output),
		})
	}
	if result.Base64Image != "" {
		block.Content = append(block.Content, &ImageContent{
			MediaType: resultMediaType,
			Data:      result.Base64Image,
		})
	}
	if len(block.Content) == 0 {
		block.Content = []ToolResultContent{&TextContent{}}
	}
	return block
}

func prependSystem(result *ToolResult, text string) string {
	if result.System == "" {
		return text
	}
	return fmt.Sprintf("<system>%s</system>\n%s", result.System, text)
}
