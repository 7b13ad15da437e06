package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deskpilot/deskpilot/internal/agent"
)

func run(t *testing.T, tool *Tool, format string, args ...any) *agent.ToolResult {
	t.Helper()
	result, err := tool.Execute(context.Background(), json.RawMessage(fmt.Sprintf(format, args...)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestCreateAndView(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "notes.txt")

	result := run(t, tool, `{"command":"create","path":%q,"file_text":"alpha\nbeta\ngamma"}`, path)
	if result.Error != "" {
		t.Fatalf("create failed: %q", result.Error)
	}

	result = run(t, tool, `{"command":"view","path":%q}`, path)
	if result.Error != "" {
		t.Fatalf("view failed: %q", result.Error)
	}
	if !strings.Contains(result.Output, "2\tbeta") {
		t.Errorf("expected numbered lines, got %q", result.Output)
	}
}

func TestCreateRefusesExistingFile(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "exists.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := run(t, tool, `{"command":"create","path":%q,"file_text":"y"}`, path)
	if result.Error == "" {
		t.Error("expected error when file exists")
	}
}

func TestViewRange(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "range.txt")
	run(t, tool, `{"command":"create","path":%q,"file_text":"one\ntwo\nthree\nfour"}`, path)

	result := run(t, tool, `{"command":"view","path":%q,"view_range":[2,3]}`, path)
	if strings.Contains(result.Output, "one") || !strings.Contains(result.Output, "three") {
		t.Errorf("range output = %q", result.Output)
	}

	result = run(t, tool, `{"command":"view","path":%q,"view_range":[9,10]}`, path)
	if result.Error == "" {
		t.Error("expected error for out-of-bounds range")
	}
}

func TestStrReplaceUniqueMatch(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "code.txt")
	run(t, tool, `{"command":"create","path":%q,"file_text":"aaa\nneedle\nccc"}`, path)

	result := run(t, tool, `{"command":"str_replace","path":%q,"old_str":"needle","new_str":"thread"}`, path)
	if result.Error != "" {
		t.Fatalf("str_replace failed: %q", result.Error)
	}

	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "thread") {
		t.Errorf("file content = %q", content)
	}
}

func TestStrReplaceRejectsAmbiguousAndMissing(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "dup.txt")
	run(t, tool, `{"command":"create","path":%q,"file_text":"same\nsame"}`, path)

	result := run(t, tool, `{"command":"str_replace","path":%q,"old_str":"same","new_str":"x"}`, path)
	if !strings.Contains(result.Error, "must be unique") {
		t.Errorf("ambiguous match error = %q", result.Error)
	}

	result = run(t, tool, `{"command":"str_replace","path":%q,"old_str":"absent","new_str":"x"}`, path)
	if !strings.Contains(result.Error, "not found") {
		t.Errorf("missing match error = %q", result.Error)
	}
}

func TestInsertAfterLine(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "ins.txt")
	run(t, tool, `{"command":"create","path":%q,"file_text":"first\nlast"}`, path)

	result := run(t, tool, `{"command":"insert","path":%q,"insert_line":1,"new_str":"middle"}`, path)
	if result.Error != "" {
		t.Fatalf("insert failed: %q", result.Error)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "first\nmiddle\nlast" {
		t.Errorf("file content = %q", content)
	}
}

func TestUndoEditRestoresPreviousContent(t *testing.T) {
	tool := NewTool()
	path := filepath.Join(t.TempDir(), "undo.txt")
	run(t, tool, `{"command":"create","path":%q,"file_text":"original"}`, path)
	run(t, tool, `{"command":"str_replace","path":%q,"old_str":"original","new_str":"changed"}`, path)

	result := run(t, tool, `{"command":"undo_edit","path":%q}`, path)
	if result.Error != "" {
		t.Fatalf("undo failed: %q", result.Error)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "original" {
		t.Errorf("file content = %q", content)
	}

	result = run(t, tool, `{"command":"undo_edit","path":%q}`, path)
	if result.Error == "" {
		t.Error("expected error when history is empty")
	}
}

func TestRelativePathRejected(t *testing.T) {
	tool := NewTool()
	result := run(t, tool, `{"command":"view","path":"relative/path.txt"}`)
	if !strings.Contains(result.Error, "absolute") {
		t.Errorf("error = %q", result.Error)
	}
}

func TestViewDirectoryListing(t *testing.T) {
	tool := NewTool()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.txt", ".hidden", filepath.Join("sub", "b.txt")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result := run(t, tool, `{"command":"view","path":%q}`, dir)
	if result.Error != "" {
		t.Fatalf("view dir failed: %q", result.Error)
	}
	if !strings.Contains(result.Output, "a.txt") || !strings.Contains(result.Output, filepath.Join("sub", "b.txt")) {
		t.Errorf("listing = %q", result.Output)
	}
	if strings.Contains(result.Output, ".hidden") {
		t.Error("dotfiles must be hidden")
	}
}
