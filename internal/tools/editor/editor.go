// Package editor exposes a file viewing and editing tool.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/deskpilot/deskpilot/internal/agent"
)

const (
	snippetContextLines = 4
	maxOutputChars      = 16000
	truncatedNotice     = "<response clipped>"
)

// Tool edits files on the local filesystem. Edits are tracked per path so
// the last one can be undone.
type Tool struct {
	mu      sync.Mutex
	history map[string][]string
}

// NewTool creates an editor tool.
func NewTool() *Tool {
	return &Tool{history: make(map[string][]string)}
}

func (t *Tool) Name() string { return "str_replace_editor" }

func (t *Tool) Description() string {
	return "View, create and edit files. Edits replace a unique existing string or insert after a line."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "command": {
      "type": "string",
      "enum": ["view", "create", "str_replace", "insert", "undo_edit"],
      "description": "Editor operation to perform."
    },
    "path": {
      "type": "string",
      "description": "Absolute path to the file or directory."
    },
    "file_text": {
      "type": "string",
      "description": "Content for the create command."
    },
    "old_str": {
      "type": "string",
      "description": "Exact string to replace (must occur exactly once)."
    },
    "new_str": {
      "type": "string",
      "description": "Replacement or inserted string."
    },
    "insert_line": {
      "type": "integer",
      "minimum": 0,
      "description": "Line after which to insert (0 = top of file)."
    },
    "view_range": {
      "type": "array",
      "items": {"type": "integer"},
      "minItems": 2,
      "maxItems": 2,
      "description": "Line range [start, end] for view; -1 end means EOF."
    }
  },
  "required": ["command", "path"]
}`)
}

type editorInput struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	FileText   string `json:"file_text"`
	OldStr     string `json:"old_str"`
	NewStr     string `json:"new_str"`
	InsertLine *int   `json:"insert_line"`
	ViewRange  []int  `json:"view_range"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input editorInput
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}

	if !filepath.IsAbs(input.Path) {
		return &agent.ToolResult{Error: fmt.Sprintf("path must be absolute, got %q", input.Path)}, nil
	}

	switch input.Command {
	case "view":
		return t.view(input)
	case "create":
		return t.create(input)
	case "str_replace":
		return t.strReplace(input)
	case "insert":
		return t.insert(input)
	case "undo_edit":
		return t.undoEdit(input)
	default:
		return &agent.ToolResult{Error: fmt.Sprintf("unknown command %q", input.Command)}, nil
	}
}

func (t *Tool) view(input editorInput) (*agent.ToolResult, error) {
	info, err := os.Stat(input.Path)
	if err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot view %s: %v", input.Path, err)}, nil
	}

	if info.IsDir() {
		listing, err := listDirectory(input.Path)
		if err != nil {
			return &agent.ToolResult{Error: err.Error()}, nil
		}
		return &agent.ToolResult{Output: truncate(listing)}, nil
	}

	content, err := os.ReadFile(input.Path)
	if err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot read %s: %v", input.Path, err)}, nil
	}

	lines := strings.Split(string(content), "\n")
	start, end := 1, len(lines)
	if len(input.ViewRange) == 2 {
		start, end = input.ViewRange[0], input.ViewRange[1]
		if start < 1 || start > len(lines) {
			return &agent.ToolResult{Error: fmt.Sprintf("view_range start %d out of bounds (1-%d)", start, len(lines))}, nil
		}
		if end == -1 || end > len(lines) {
			end = len(lines)
		}
		if end < start {
			return &agent.ToolResult{Error: fmt.Sprintf("view_range end %d precedes start %d", end, start)}, nil
		}
	}

	return &agent.ToolResult{Output: truncate(numberLines(lines[start-1:end], start))}, nil
}

func (t *Tool) create(input editorInput) (*agent.ToolResult, error) {
	if _, err := os.Stat(input.Path); err == nil {
		return &agent.ToolResult{Error: fmt.Sprintf("%s already exists", input.Path)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(input.Path), 0o755); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot create %s: %v", input.Path, err)}, nil
	}
	if err := os.WriteFile(input.Path, []byte(input.FileText), 0o644); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot create %s: %v", input.Path, err)}, nil
	}
	return &agent.ToolResult{Output: fmt.Sprintf("File created successfully at %s", input.Path)}, nil
}

func (t *Tool) strReplace(input editorInput) (*agent.ToolResult, error) {
	if input.OldStr == "" {
		return &agent.ToolResult{Error: "old_str is required for str_replace"}, nil
	}

	content, err := os.ReadFile(input.Path)
	if err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot read %s: %v", input.Path, err)}, nil
	}
	text := string(content)

	switch count := strings.Count(text, input.OldStr); count {
	case 0:
		return &agent.ToolResult{Error: fmt.Sprintf("old_str not found in %s", input.Path)}, nil
	case 1:
	default:
		return &agent.ToolResult{Error: fmt.Sprintf("old_str occurs %d times in %s; it must be unique", count, input.Path)}, nil
	}

	updated := strings.Replace(text, input.OldStr, input.NewStr, 1)
	if err := t.writeWithHistory(input.Path, text, updated); err != nil {
		return &agent.ToolResult{Error: err.Error()}, nil
	}

	replacedAt := strings.Count(text[:strings.Index(text, input.OldStr)], "\n")
	snippet := snippetAround(updated, replacedAt, strings.Count(input.NewStr, "\n"))
	return &agent.ToolResult{
		Output: truncate(fmt.Sprintf("The file %s has been edited.\n%s", input.Path, snippet)),
	}, nil
}

func (t *Tool) insert(input editorInput) (*agent.ToolResult, error) {
	if input.InsertLine == nil {
		return &agent.ToolResult{Error: "insert_line is required for insert"}, nil
	}

	content, err := os.ReadFile(input.Path)
	if err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot read %s: %v", input.Path, err)}, nil
	}
	text := string(content)
	lines := strings.Split(text, "\n")

	at := *input.InsertLine
	if at < 0 || at > len(lines) {
		return &agent.ToolResult{Error: fmt.Sprintf("insert_line %d out of bounds (0-%d)", at, len(lines))}, nil
	}

	inserted := strings.Split(input.NewStr, "\n")
	updatedLines := make([]string, 0, len(lines)+len(inserted))
	updatedLines = append(updatedLines, lines[:at]...)
	updatedLines = append(updatedLines, inserted...)
	updatedLines = append(updatedLines, lines[at:]...)
	updated := strings.Join(updatedLines, "\n")

	if err := t.writeWithHistory(input.Path, text, updated); err != nil {
		return &agent.ToolResult{Error: err.Error()}, nil
	}

	snippet := snippetAround(updated, at, len(inserted))
	return &agent.ToolResult{
		Output: truncate(fmt.Sprintf("The file %s has been edited.\n%s", input.Path, snippet)),
	}, nil
}

func (t *Tool) undoEdit(input editorInput) (*agent.ToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stack := t.history[input.Path]
	if len(stack) == 0 {
		return &agent.ToolResult{Error: fmt.Sprintf("no edit history for %s", input.Path)}, nil
	}

	previous := stack[len(stack)-1]
	t.history[input.Path] = stack[:len(stack)-1]

	if err := os.WriteFile(input.Path, []byte(previous), 0o644); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("cannot restore %s: %v", input.Path, err)}, nil
	}
	return &agent.ToolResult{Output: fmt.Sprintf("Last edit to %s undone.", input.Path)}, nil
}

func (t *Tool) writeWithHistory(path, previous, updated string) error {
	t.mu.Lock()
	t.history[path] = append(t.history[path], previous)
	t.mu.Unlock()

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %v", path, err)
	}
	return nil
}

// listDirectory lists files and directories up to two levels deep, hiding
// dotfiles.
func listDirectory(root string) (string, error) {
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		if strings.Count(rel, string(filepath.Separator)) >= 2 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot list %s: %v", root, err)
	}
	sort.Strings(entries)
	return fmt.Sprintf("Files and directories up to 2 levels deep in %s:\n%s",
		root, strings.Join(entries, "\n")), nil
}

func numberLines(lines []string, start int) string {
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%6d\t%s\n", start+i, line)
	}
	return b.String()
}

func snippetAround(text string, line, span int) string {
	lines := strings.Split(text, "\n")
	start := line - snippetContextLines
	if start < 0 {
		start = 0
	}
	end := line + span + snippetContextLines + 1
	if end > len(lines) {
		end = len(lines)
	}
	return numberLines(lines[start:end], start+1)
}

func truncate(s string) string {
	if len(s) <= maxOutputChars {
		return s
	}
	return s[:maxOutputChars] + truncatedNotice
}
