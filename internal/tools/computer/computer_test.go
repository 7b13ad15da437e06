package computer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// fakeRunner records invocations and returns scripted output per command.
type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	fail    map[string]error
}

func (r *fakeRunner) run(ctx context.Context, env []string, name string, args ...string) (string, error) {
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}
	if err, ok := r.fail[key]; ok {
		return "", err
	}
	if name == "scrot" && len(args) == 2 {
		if err := os.WriteFile(args[1], []byte("fake png bytes"), 0o644); err != nil {
			return "", err
		}
	}
	return r.outputs[key], nil
}

func newTestTool(runner *fakeRunner) *Tool {
	tool := NewTool(Config{DisplayWidthPx: 1280, DisplayHeightPx: 800, DisplayNumber: 1})
	tool.runner = runner
	tool.sleep = func(time.Duration) {}
	return tool
}

type execResult struct {
	Output, Error, Image string
}

func execute(t *testing.T, tool *Tool, input string) execResult {
	t.Helper()
	result, err := tool.Execute(context.Background(), json.RawMessage(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return execResult{result.Output, result.Error, result.Base64Image}
}

func TestExecuteKeyRunsXdotool(t *testing.T) {
	runner := &fakeRunner{}
	tool := newTestTool(runner)

	result := execute(t, tool, `{"action":"key","text":"Return"}`)
	if result.Error != "" {
		t.Fatalf("unexpected error result: %q", result.Error)
	}
	if len(runner.calls) == 0 {
		t.Fatal("expected xdotool invocation")
	}
	first := strings.Join(runner.calls[0], " ")
	if first != "xdotool key -- Return" {
		t.Errorf("first call = %q", first)
	}
}

func TestExecuteClickMovesFirst(t *testing.T) {
	runner := &fakeRunner{}
	tool := newTestTool(runner)

	execute(t, tool, `{"action":"left_click","coordinate":[100,200]}`)

	if len(runner.calls) < 2 {
		t.Fatalf("expected move then click, got %v", runner.calls)
	}
	move := strings.Join(runner.calls[0], " ")
	click := strings.Join(runner.calls[1], " ")
	if move != "xdotool mousemove --sync 100 200" {
		t.Errorf("move call = %q", move)
	}
	if click != "xdotool click 1" {
		t.Errorf("click call = %q", click)
	}
}

func TestExecuteScrollArguments(t *testing.T) {
	runner := &fakeRunner{}
	tool := newTestTool(runner)

	execute(t, tool, `{"action":"scroll","scroll_direction":"down","scroll_amount":3}`)

	var scrollCall string
	for _, call := range runner.calls {
		joined := strings.Join(call, " ")
		if strings.HasPrefix(joined, "xdotool click --repeat") {
			scrollCall = joined
		}
	}
	if scrollCall != "xdotool click --repeat 3 5" {
		t.Errorf("scroll call = %q", scrollCall)
	}
}

func TestExecuteCursorPosition(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"xdotool getmouselocation": "X=410\nY=220\nSCREEN=0\nWINDOW=123",
	}}
	tool := newTestTool(runner)

	result := execute(t, tool, `{"action":"cursor_position"}`)
	if result.Output != "X=410,Y=220" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestExecuteMissingCoordinate(t *testing.T) {
	tool := newTestTool(&fakeRunner{})
	result := execute(t, tool, `{"action":"mouse_move"}`)
	if result.Error == "" {
		t.Error("expected error for missing coordinate")
	}
}

func TestExecuteScreenshotFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{
		"scrot -p": fmt.Errorf("scrot: no display"),
	}}
	tool := newTestTool(runner)

	result := execute(t, tool, `{"action":"screenshot"}`)
	if result.Error == "" {
		t.Error("expected error when screenshot fails")
	}
	if result.Image != "" {
		t.Error("expected no image on failure")
	}
}

func TestComputerConfigGeometry(t *testing.T) {
	tool := newTestTool(&fakeRunner{})
	cfg := tool.ComputerConfig()
	if cfg == nil || cfg.DisplayWidthPx != 1280 || cfg.DisplayHeightPx != 800 || cfg.DisplayNumber != 1 {
		t.Errorf("config = %+v", cfg)
	}
}
