package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deskpilot/deskpilot/internal/agent"
)

func TestBuildRootCmd(t *testing.T) {
	cmd := buildRootCmd()
	if cmd.Use != "deskpilot" {
		t.Errorf("use = %q", cmd.Use)
	}
	if _, _, err := cmd.Find([]string{"run"}); err != nil {
		t.Errorf("run command missing: %v", err)
	}
}

func TestResolvePromptPrefersArgs(t *testing.T) {
	prompt, err := resolvePrompt([]string{"take", "a", "screenshot"}, strings.NewReader("ignored"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "take a screenshot" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestResolvePromptReadsStdin(t *testing.T) {
	prompt, err := resolvePrompt(nil, strings.NewReader("  open the terminal \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "open the terminal" {
		t.Errorf("prompt = %q", prompt)
	}

	if _, err := resolvePrompt(nil, strings.NewReader("")); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestWriteTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	messages := []agent.Message{
		agent.UserText("go"),
		{
			Role: agent.RoleAssistant,
			Blocks: []agent.ContentBlock{
				&agent.TextBlock{Text: "done"},
				&agent.ToolUseBlock{ID: "toolu_1", Name: "bash", Input: json.RawMessage(`{"command":"ls"}`)},
			},
		},
		{
			Role: agent.RoleUser,
			Blocks: []agent.ContentBlock{
				&agent.ToolResultBlock{
					ToolUseID: "toolu_1",
					Content: []agent.ToolResultContent{
						&agent.TextContent{Text: "files"},
						&agent.ImageContent{MediaType: "image/png", Data: "aW1hZ2U="},
					},
				},
			},
		},
	}

	if err := writeTranscript(path, messages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("transcript not valid json: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(decoded))
	}
	if decoded[0]["content"] != "go" {
		t.Errorf("first message = %v", decoded[0])
	}
	blocks, ok := decoded[1]["content"].([]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("assistant content = %v", decoded[1]["content"])
	}
	toolUse, ok := blocks[1].(map[string]any)
	if !ok || toolUse["type"] != "tool_use" || toolUse["name"] != "bash" {
		t.Errorf("tool_use block = %v", blocks[1])
	}
}
