// Package api implements the agent.Client contract on top of the official
// Anthropic SDK. One constructor covers the three supported backends: the
// first-party API, AWS Bedrock and Google Vertex, each authenticated the way
// its SDK adapter expects.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"

	"github.com/deskpilot/deskpilot/internal/agent"
)

// Config selects and authenticates a backend.
type Config struct {
	Provider agent.Provider

	// APIKey authenticates against the first-party API. Ignored for
	// bedrock and vertex, which use ambient cloud credentials.
	APIKey string

	// BaseURL overrides the default API base URL.
	BaseURL string

	// VertexRegion and VertexProjectID locate the Vertex deployment.
	VertexRegion    string
	VertexProjectID string

	// MaxRetries caps SDK-level retries for transient failures. Zero means 4.
	MaxRetries int
}

// Client calls the Messages API for one configured backend.
type Client struct {
	sdk      anthropic.Client
	provider agent.Provider
}

// NewClient builds an SDK client for the configured provider. The context is
// used by the cloud adapters to load ambient credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 4
	}
	opts := []option.RequestOption{option.WithMaxRetries(maxRetries)}

	switch cfg.Provider {
	case agent.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("api: api key is required")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if strings.TrimSpace(cfg.BaseURL) != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}

	case agent.ProviderBedrock:
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx))

	case agent.ProviderVertex:
		if cfg.VertexRegion == "" || cfg.VertexProjectID == "" {
			return nil, errors.New("api: vertex requires a region and project id")
		}
		opts = append(opts, vertex.WithGoogleAuth(ctx, cfg.VertexRegion, cfg.VertexProjectID))

	default:
		return nil, fmt.Errorf("api: unknown provider %q", cfg.Provider)
	}

	return &Client{
		sdk:      anthropic.NewClient(opts...),
		provider: cfg.Provider,
	}, nil
}

// Provider returns the backend this client talks to.
func (c *Client) Provider() agent.Provider {
	return c.provider
}
