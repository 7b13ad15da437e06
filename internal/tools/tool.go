// Package tools defines the tool contract and the ordered collection the
// sampling loop executes against.
package tools

import (
	"context"
	"encoding/json"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// Tool is a capability the model can invoke by name.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error)
}

// ComputerConfigProvider is implemented by tools that are declared to the
// API by display geometry instead of a JSON schema.
type ComputerConfigProvider interface {
	ComputerConfig() *agent.ComputerConfig
}

// Version selects which generation of tool declarations a collection sends.
type Version string

const (
	VersionComputerUse20241022 Version = "computer_use_20241022"
	VersionComputerUse20250124 Version = "computer_use_20250124"
)

// betaFlags maps a tool version to the beta flag its declarations require.
// The 2024-10-22 group predates the flag-free general release and still
// needs an explicit opt-in.
var betaFlags = map[Version]string{
	VersionComputerUse20241022: "computer-use-2024-10-22",
	VersionComputerUse20250124: "computer-use-2025-01-24",
}
