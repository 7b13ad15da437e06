package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/deskpilot/deskpilot/internal/agent"
)

type echoTool struct {
	name   string
	schema string
	result *agent.ToolResult
	calls  int
}

func (t *echoTool) Name() string            { return t.name }
func (t *echoTool) Description() string     { return "echo" }
func (t *echoTool) Schema() json.RawMessage { return json.RawMessage(t.schema) }

func (t *echoTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	t.calls++
	if t.result != nil {
		return t.result, nil
	}
	return &agent.ToolResult{Output: string(params)}, nil
}

type geometryTool struct {
	echoTool
	config *agent.ComputerConfig
}

func (t *geometryTool) ComputerConfig() *agent.ComputerConfig { return t.config }

const commandSchema = `{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}`

func TestNewCollectionRejectsDuplicateNames(t *testing.T) {
	_, err := NewCollection(VersionComputerUse20250124,
		&echoTool{name: "bash", schema: commandSchema},
		&echoTool{name: "bash", schema: commandSchema},
	)
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestNewCollectionRejectsUnknownVersion(t *testing.T) {
	if _, err := NewCollection(Version("computer_use_19990101")); err == nil {
		t.Fatal("expected unknown version error")
	}
}

func TestCollectionBetaFlag(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{VersionComputerUse20241022, "computer-use-2024-10-22"},
		{VersionComputerUse20250124, "computer-use-2025-01-24"},
	}
	for _, tt := range tests {
		c, err := NewCollection(tt.version)
		if err != nil {
			t.Fatalf("%s: %v", tt.version, err)
		}
		if got := c.BetaFlag(); got != tt.want {
			t.Errorf("%s: beta flag = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestCollectionRunUnknownTool(t *testing.T) {
	c, err := NewCollection(VersionComputerUse20250124, &echoTool{name: "bash", schema: commandSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = c.Run(context.Background(), "missing", json.RawMessage(`{}`))
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestCollectionRunValidatesInput(t *testing.T) {
	tool := &echoTool{name: "bash", schema: commandSchema}
	c, err := NewCollection(VersionComputerUse20250124, tool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := c.Run(context.Background(), "bash", json.RawMessage(`{"command":123}`))
	if err != nil {
		t.Fatalf("validation failure must surface as result, got %v", err)
	}
	if result.Error == "" {
		t.Error("expected error result for schema violation")
	}
	if tool.calls != 0 {
		t.Errorf("tool executed despite invalid input (%d calls)", tool.calls)
	}

	result, err = c.Run(context.Background(), "bash", json.RawMessage(`{"command":"ls"}`))
	if err != nil || result.Error != "" {
		t.Fatalf("valid input rejected: result=%+v err=%v", result, err)
	}
	if tool.calls != 1 {
		t.Errorf("expected 1 execution, got %d", tool.calls)
	}
}

func TestCollectionSchemasPreserveOrder(t *testing.T) {
	geometry := &geometryTool{
		echoTool: echoTool{name: "computer", schema: `{"type":"object"}`},
		config:   &agent.ComputerConfig{DisplayWidthPx: 1280, DisplayHeightPx: 800},
	}
	c, err := NewCollection(VersionComputerUse20250124,
		geometry,
		&echoTool{name: "bash", schema: commandSchema},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schemas := c.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	if schemas[0].Name != "computer" || schemas[1].Name != "bash" {
		t.Errorf("order = %q, %q", schemas[0].Name, schemas[1].Name)
	}
	if schemas[0].Computer == nil || schemas[0].Computer.DisplayWidthPx != 1280 {
		t.Errorf("computer geometry missing: %+v", schemas[0].Computer)
	}
	if schemas[1].Computer != nil {
		t.Error("bash must not carry display geometry")
	}
}

func TestCollectionSchemasStampToolVersion(t *testing.T) {
	geometry := &geometryTool{
		echoTool: echoTool{name: "computer", schema: `{"type":"object"}`},
		config:   &agent.ComputerConfig{DisplayWidthPx: 800, DisplayHeightPx: 600},
	}
	c, err := NewCollection(VersionComputerUse20241022, geometry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schemas := c.Schemas()
	if got := schemas[0].Computer.Version; got != "computer_use_20241022" {
		t.Errorf("declared version = %q", got)
	}
	if geometry.config.Version != "" {
		t.Error("schema generation must not mutate the tool's config")
	}
}
