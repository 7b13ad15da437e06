package observe

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// InstrumentedClient decorates an agent.Client with logging and metrics.
type InstrumentedClient struct {
	next     agent.Client
	provider agent.Provider
	metrics  *Metrics
	logger   *slog.Logger
}

// NewClient wraps an API client.
func NewClient(next agent.Client, provider agent.Provider, metrics *Metrics, logger *slog.Logger) *InstrumentedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedClient{
		next:     next,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

func (c *InstrumentedClient) CreateMessage(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	start := time.Now()
	resp, err := c.next.CreateMessage(ctx, req)
	elapsed := time.Since(start)

	provider := string(c.provider)
	c.metrics.RequestDuration.WithLabelValues(provider, req.Model).Observe(elapsed.Seconds())

	if err != nil {
		c.metrics.RequestCounter.WithLabelValues(provider, req.Model, "error").Inc()
		c.logger.Error("api request failed",
			"provider", provider,
			"model", req.Model,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	c.metrics.RequestCounter.WithLabelValues(provider, req.Model, "success").Inc()
	c.metrics.TokensUsed.WithLabelValues(provider, req.Model, "input").Add(float64(resp.Usage.InputTokens))
	c.metrics.TokensUsed.WithLabelValues(provider, req.Model, "output").Add(float64(resp.Usage.OutputTokens))
	c.metrics.TokensUsed.WithLabelValues(provider, req.Model, "cache_read").Add(float64(resp.Usage.CacheReadInputTokens))
	c.metrics.TokensUsed.WithLabelValues(provider, req.Model, "cache_creation").Add(float64(resp.Usage.CacheCreationInputTokens))

	c.logger.Info("api request complete",
		"provider", provider,
		"model", req.Model,
		"duration_ms", elapsed.Milliseconds(),
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"cache_read_tokens", resp.Usage.CacheReadInputTokens,
	)

	return resp, nil
}

// InstrumentedRunner decorates an agent.ToolRunner with logging and metrics.
type InstrumentedRunner struct {
	next    agent.ToolRunner
	metrics *Metrics
	logger  *slog.Logger
}

// NewRunner wraps a tool runner.
func NewRunner(next agent.ToolRunner, metrics *Metrics, logger *slog.Logger) *InstrumentedRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedRunner{next: next, metrics: metrics, logger: logger}
}

func (r *InstrumentedRunner) Run(ctx context.Context, name string, input json.RawMessage) (*agent.ToolResult, error) {
	start := time.Now()
	result, err := r.next.Run(ctx, name, input)
	elapsed := time.Since(start)

	r.metrics.ToolExecutionDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	status := "success"
	if err != nil || (result != nil && result.Error != "") {
		status = "error"
	}
	r.metrics.ToolExecutionCounter.WithLabelValues(name, status).Inc()

	if err != nil {
		r.logger.Error("tool execution failed",
			"tool", name,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
	} else {
		r.logger.Debug("tool execution complete",
			"tool", name,
			"duration_ms", elapsed.Milliseconds(),
			"status", status,
		)
	}

	return result, err
}

func (r *InstrumentedRunner) Schemas() []agent.ToolSchema { return r.next.Schemas() }

func (r *InstrumentedRunner) BetaFlag() string { return r.next.BetaFlag() }
