// Package computer drives a virtual X display with xdotool and scrot.
package computer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// Config describes the target display.
type Config struct {
	DisplayWidthPx  int
	DisplayHeightPx int
	DisplayNumber   int

	// ScreenshotDelay is the settle time between an action and the
	// screenshot taken to show its effect. Zero means 500ms.
	ScreenshotDelay time.Duration
}

// commandRunner abstracts subprocess execution so tests can intercept it.
type commandRunner interface {
	run(ctx context.Context, env []string, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, env []string, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s: %s", name, msg)
	}
	return stdout.String(), nil
}

// Tool executes desktop actions against one display.
type Tool struct {
	config Config
	runner commandRunner
	sleep  func(time.Duration)
}

// NewTool creates a computer tool for the configured display.
func NewTool(cfg Config) *Tool {
	if cfg.ScreenshotDelay <= 0 {
		cfg.ScreenshotDelay = 500 * time.Millisecond
	}
	return &Tool{
		config: cfg,
		runner: execRunner{},
		sleep:  time.Sleep,
	}
}

func (t *Tool) Name() string { return "computer" }

func (t *Tool) Description() string {
	return "Control the desktop via mouse, keyboard and screenshot actions."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(SchemaJSON)
}

// ComputerConfig reports the display geometry for the API declaration.
func (t *Tool) ComputerConfig() *agent.ComputerConfig {
	return &agent.ComputerConfig{
		DisplayWidthPx:  t.config.DisplayWidthPx,
		DisplayHeightPx: t.config.DisplayHeightPx,
		DisplayNumber:   t.config.DisplayNumber,
	}
}

type actionInput struct {
	Action          string  `json:"action"`
	Coordinate      []int   `json:"coordinate"`
	StartCoordinate []int   `json:"start_coordinate"`
	Text            string  `json:"text"`
	ScrollDirection string  `json:"scroll_direction"`
	ScrollAmount    int     `json:"scroll_amount"`
	Duration        float64 `json:"duration"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input actionInput
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}

	switch input.Action {
	case "screenshot":
		image, err := t.screenshot(ctx)
		if err != nil {
			return &agent.ToolResult{Error: err.Error()}, nil
		}
		return &agent.ToolResult{Base64Image: image}, nil

	case "cursor_position":
		return t.cursorPosition(ctx)

	case "wait":
		t.sleep(durationSeconds(input.Duration))
		return t.actionResult(ctx, "")

	default:
		output, err := t.performAction(ctx, input)
		if err != nil {
			return &agent.ToolResult{Error: err.Error()}, nil
		}
		return t.actionResult(ctx, output)
	}
}

func (t *Tool) performAction(ctx context.Context, input actionInput) (string, error) {
	switch input.Action {
	case "key":
		if input.Text == "" {
			return "", fmt.Errorf("text is required for key")
		}
		return t.xdotool(ctx, "key", "--", input.Text)

	case "hold_key":
		if input.Text == "" {
			return "", fmt.Errorf("text is required for hold_key")
		}
		if _, err := t.xdotool(ctx, "keydown", "--", input.Text); err != nil {
			return "", err
		}
		t.sleep(durationSeconds(input.Duration))
		return t.xdotool(ctx, "keyup", "--", input.Text)

	case "type":
		if input.Text == "" {
			return "", fmt.Errorf("text is required for type")
		}
		return t.xdotool(ctx, "type", "--delay", "12", "--", input.Text)

	case "mouse_move":
		x, y, err := coordinate(input.Coordinate)
		if err != nil {
			return "", err
		}
		return t.xdotool(ctx, "mousemove", "--sync", x, y)

	case "left_click", "right_click", "middle_click", "double_click", "triple_click":
		return t.click(ctx, input)

	case "left_mouse_down":
		return t.xdotool(ctx, "mousedown", "1")

	case "left_mouse_up":
		return t.xdotool(ctx, "mouseup", "1")

	case "left_click_drag":
		return t.drag(ctx, input)

	case "scroll":
		return t.scroll(ctx, input)

	default:
		return "", fmt.Errorf("unknown action %q", input.Action)
	}
}

func (t *Tool) click(ctx context.Context, input actionInput) (string, error) {
	if len(input.Coordinate) == 2 {
		x, y, err := coordinate(input.Coordinate)
		if err != nil {
			return "", err
		}
		if _, err := t.xdotool(ctx, "mousemove", "--sync", x, y); err != nil {
			return "", err
		}
	}

	button := map[string]string{
		"left_click":   "1",
		"right_click":  "3",
		"middle_click": "2",
	}[input.Action]

	switch input.Action {
	case "double_click":
		return t.xdotool(ctx, "click", "--repeat", "2", "--delay", "10", "1")
	case "triple_click":
		return t.xdotool(ctx, "click", "--repeat", "3", "--delay", "10", "1")
	default:
		return t.xdotool(ctx, "click", button)
	}
}

func (t *Tool) drag(ctx context.Context, input actionInput) (string, error) {
	sx, sy, err := coordinate(input.StartCoordinate)
	if err != nil {
		return "", fmt.Errorf("start_coordinate: %w", err)
	}
	ex, ey, err := coordinate(input.Coordinate)
	if err != nil {
		return "", fmt.Errorf("coordinate: %w", err)
	}
	if _, err := t.xdotool(ctx, "mousemove", "--sync", sx, sy); err != nil {
		return "", err
	}
	if _, err := t.xdotool(ctx, "mousedown", "1"); err != nil {
		return "", err
	}
	if _, err := t.xdotool(ctx, "mousemove", "--sync", ex, ey); err != nil {
		return "", err
	}
	return t.xdotool(ctx, "mouseup", "1")
}

func (t *Tool) scroll(ctx context.Context, input actionInput) (string, error) {
	button, ok := map[string]string{
		"up":    "4",
		"down":  "5",
		"left":  "6",
		"right": "7",
	}[input.ScrollDirection]
	if !ok {
		return "", fmt.Errorf("scroll_direction must be up, down, left or right")
	}
	amount := input.ScrollAmount
	if amount <= 0 {
		amount = 1
	}

	if len(input.Coordinate) == 2 {
		x, y, err := coordinate(input.Coordinate)
		if err != nil {
			return "", err
		}
		if _, err := t.xdotool(ctx, "mousemove", "--sync", x, y); err != nil {
			return "", err
		}
	}
	return t.xdotool(ctx, "click", "--repeat", strconv.Itoa(amount), button)
}

func (t *Tool) cursorPosition(ctx context.Context) (*agent.ToolResult, error) {
	output, err := t.xdotool(ctx, "getmouselocation", "--shell")
	if err != nil {
		return &agent.ToolResult{Error: err.Error()}, nil
	}

	var x, y string
	for _, line := range strings.Split(output, "\n") {
		if value, ok := strings.CutPrefix(line, "X="); ok {
			x = strings.TrimSpace(value)
		}
		if value, ok := strings.CutPrefix(line, "Y="); ok {
			y = strings.TrimSpace(value)
		}
	}
	if x == "" || y == "" {
		return &agent.ToolResult{Error: fmt.Sprintf("could not parse cursor position from %q", output)}, nil
	}
	return &agent.ToolResult{Output: fmt.Sprintf("X=%s,Y=%s", x, y)}, nil
}

// actionResult waits for the display to settle and attaches a screenshot.
func (t *Tool) actionResult(ctx context.Context, output string) (*agent.ToolResult, error) {
	t.sleep(t.config.ScreenshotDelay)
	image, err := t.screenshot(ctx)
	if err != nil {
		return &agent.ToolResult{Output: output, Error: err.Error()}, nil
	}
	return &agent.ToolResult{Output: output, Base64Image: image}, nil
}

func (t *Tool) screenshot(ctx context.Context) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("screenshot_%s.png", uuid.NewString()))
	defer os.Remove(path)

	if _, err := t.runner.run(ctx, t.displayEnv(), "scrot", "-p", path); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("screenshot: read %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (t *Tool) xdotool(ctx context.Context, args ...string) (string, error) {
	return t.runner.run(ctx, t.displayEnv(), "xdotool", args...)
}

func (t *Tool) displayEnv() []string {
	if t.config.DisplayNumber > 0 {
		return []string{fmt.Sprintf("DISPLAY=:%d", t.config.DisplayNumber)}
	}
	return nil
}

func coordinate(pair []int) (string, string, error) {
	if len(pair) != 2 {
		return "", "", fmt.Errorf("coordinate must be [x,y]")
	}
	if pair[0] < 0 || pair[1] < 0 {
		return "", "", fmt.Errorf("coordinate must be non-negative")
	}
	return strconv.Itoa(pair[0]), strconv.Itoa(pair[1]), nil
}

func durationSeconds(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
