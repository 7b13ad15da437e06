// Package config loads and validates the runtime configuration.
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deskpilot/deskpilot/internal/agent"
	"github.com/deskpilot/deskpilot/internal/tools"
)

// Config is the full runtime configuration. Environment variables in the
// file are expanded before parsing; unknown keys are rejected.
type Config struct {
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`

	MaxTokens             int    `yaml:"max_tokens"`
	ThinkingBudget        int    `yaml:"thinking_budget"`
	OnlyNMostRecentImages int    `yaml:"only_n_most_recent_images"`
	TokenEfficientTools   bool   `yaml:"token_efficient_tools"`
	ToolVersion           string `yaml:"tool_version"`
	SystemPromptSuffix    string `yaml:"system_prompt_suffix"`
	MaxIterations         int    `yaml:"max_iterations"`

	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Display DisplayConfig `yaml:"display"`
	Bash    BashConfig    `yaml:"bash"`
}

// APIConfig authenticates the backend.
type APIConfig struct {
	Key             string `yaml:"key"`
	BaseURL         string `yaml:"base_url"`
	MaxRetries      int    `yaml:"max_retries"`
	VertexRegion    string `yaml:"vertex_region"`
	VertexProjectID string `yaml:"vertex_project_id"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DisplayConfig is the virtual display the computer tool drives.
type DisplayConfig struct {
	WidthPx  int `yaml:"width_px"`
	HeightPx int `yaml:"height_px"`
	Number   int `yaml:"number"`
}

// BashConfig controls the shell tool.
type BashConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Model:                 "claude-sonnet-4-20250514",
		Provider:              string(agent.ProviderAnthropic),
		MaxTokens:             4096,
		OnlyNMostRecentImages: 3,
		ToolVersion:           string(tools.VersionComputerUse20250124),
		API: APIConfig{
			MaxRetries: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Display: DisplayConfig{
			WidthPx:  1024,
			HeightPx: 768,
			Number:   1,
		},
		Bash: BashConfig{
			TimeoutSeconds: 120,
		},
	}
}

// Load reads a config file over the defaults. An empty path returns the
// defaults with environment fallbacks applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(data))

		decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := decoder.Decode(&struct{}{}); err != io.EOF {
			return nil, fmt.Errorf("config: parse %s: expected single document", path)
		}
	}

	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvFallbacks() {
	if c.API.Key == "" {
		c.API.Key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.API.VertexRegion == "" {
		c.API.VertexRegion = os.Getenv("CLOUD_ML_REGION")
	}
	if c.API.VertexProjectID == "" {
		c.API.VertexProjectID = os.Getenv("ANTHROPIC_VERTEX_PROJECT_ID")
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("config: model is required")
	}

	switch agent.Provider(c.Provider) {
	case agent.ProviderAnthropic:
		if c.API.Key == "" {
			return fmt.Errorf("config: api key is required for provider anthropic (set api.key or ANTHROPIC_API_KEY)")
		}
	case agent.ProviderBedrock:
	case agent.ProviderVertex:
		if c.API.VertexRegion == "" || c.API.VertexProjectID == "" {
			return fmt.Errorf("config: vertex requires api.vertex_region and api.vertex_project_id")
		}
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}

	switch tools.Version(c.ToolVersion) {
	case tools.VersionComputerUse20241022, tools.VersionComputerUse20250124:
	default:
		return fmt.Errorf("config: unknown tool_version %q", c.ToolVersion)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive")
	}
	if c.OnlyNMostRecentImages < 0 {
		return fmt.Errorf("config: only_n_most_recent_images must be non-negative")
	}
	if c.Display.WidthPx <= 0 || c.Display.HeightPx <= 0 {
		return fmt.Errorf("config: display geometry must be positive")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		return fmt.Errorf("config: metrics.addr is required when metrics are enabled")
	}

	return nil
}

// LogLevel parses the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
}

// BashTimeout returns the shell timeout as a duration.
func (c *Config) BashTimeout() time.Duration {
	return time.Duration(c.Bash.TimeoutSeconds) * time.Second
}
