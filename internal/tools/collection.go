package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// ErrToolNotFound is returned when the model names a tool the collection
// does not hold.
var ErrToolNotFound = errors.New("tools: tool not found")

// Collection holds the tools offered to the model, in declaration order.
// It implements agent.ToolRunner.
type Collection struct {
	version Version
	order   []Tool
	byName  map[string]Tool
}

// NewCollection builds a collection for one tool version. Tool names must
// be unique.
func NewCollection(version Version, toolList ...Tool) (*Collection, error) {
	if _, ok := betaFlags[version]; !ok {
		return nil, fmt.Errorf("tools: unknown tool version %q", version)
	}

	byName := make(map[string]Tool, len(toolList))
	for _, tool := range toolList {
		if _, exists := byName[tool.Name()]; exists {
			return nil, fmt.Errorf("tools: duplicate tool name %q", tool.Name())
		}
		byName[tool.Name()] = tool
	}

	return &Collection{
		version: version,
		order:   toolList,
		byName:  byName,
	}, nil
}

// BetaFlag returns the beta opt-in this collection's declarations require.
func (c *Collection) BetaFlag() string {
	return betaFlags[c.version]
}

// Schemas returns the API declarations for every tool, in order.
func (c *Collection) Schemas() []agent.ToolSchema {
	schemas := make([]agent.ToolSchema, 0, len(c.order))
	for _, tool := range c.order {
		schema := agent.ToolSchema{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		}
		if provider, ok := tool.(ComputerConfigProvider); ok {
			if cfg := provider.ComputerConfig(); cfg != nil {
				declared := *cfg
				declared.Version = string(c.version)
				schema.Computer = &declared
			}
		}
		schemas = append(schemas, schema)
	}
	return schemas
}

// Run validates input against the tool's schema and executes it. An unknown
// name fails with ErrToolNotFound before any execution. Schema violations
// come back as an error result so the model can correct itself.
func (c *Collection) Run(ctx context.Context, name string, input json.RawMessage) (*agent.ToolResult, error) {
	tool, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	if err := validateInput(tool.Schema(), input); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("invalid input: %v", err)}, nil
	}

	return tool.Execute(ctx, input)
}

var schemaCache sync.Map

func validateInput(schema, input json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	payload := input
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	return compiled.Validate(decoded)
}

func compileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
