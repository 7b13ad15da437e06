package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/deskpilot/deskpilot/internal/agent"
	"github.com/deskpilot/deskpilot/internal/api"
	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/deskpilot/deskpilot/internal/observe"
	"github.com/deskpilot/deskpilot/internal/tools"
	"github.com/deskpilot/deskpilot/internal/tools/bash"
	"github.com/deskpilot/deskpilot/internal/tools/computer"
	"github.com/deskpilot/deskpilot/internal/tools/editor"
)

func buildRunCmd() *cobra.Command {
	var (
		configPath     string
		debug          bool
		transcriptPath string
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one agent task",
		Long: `Run the sampling loop for a single task. The prompt is taken from the
arguments, or from stdin when piped.

The loop keeps calling the model and executing the requested tools until
the model responds without tool use, then prints the final reply.`,
		Example: `  # Run a task
  deskpilot run "take a screenshot and describe the desktop"

  # Pipe the prompt
  echo "open the file manager" | deskpilot run

  # Save the full transcript
  deskpilot run --transcript run.json "organize my downloads"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := resolvePrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runTask(cmd.Context(), configPath, prompt, transcriptPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Write the full message history to this file as JSON")

	return cmd
}

func resolvePrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("a prompt is required (argument or stdin)")
	}
	return prompt, nil
}

func runTask(ctx context.Context, configPath, prompt, transcriptPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	if debug {
		level = slog.LevelDebug
	}
	logger := buildLogger(cfg.Logging.Format, level)
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observe.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.Addr, logger)
	}

	provider := agent.Provider(cfg.Provider)
	apiClient, err := api.NewClient(ctx, api.Config{
		Provider:        provider,
		APIKey:          cfg.API.Key,
		BaseURL:         cfg.API.BaseURL,
		VertexRegion:    cfg.API.VertexRegion,
		VertexProjectID: cfg.API.VertexProjectID,
		MaxRetries:      cfg.API.MaxRetries,
	})
	if err != nil {
		return err
	}
	client := observe.NewClient(apiClient, provider, metrics, logger)

	collection, err := tools.NewCollection(tools.Version(cfg.ToolVersion),
		computer.NewTool(computer.Config{
			DisplayWidthPx:  cfg.Display.WidthPx,
			DisplayHeightPx: cfg.Display.HeightPx,
			DisplayNumber:   cfg.Display.Number,
		}),
		bash.NewTool(bash.Config{Timeout: cfg.BashTimeout()}),
		editor.NewTool(),
	)
	if err != nil {
		return err
	}
	runner := observe.NewRunner(collection, metrics, logger)

	loop := agent.New(client, runner, agent.Options{
		Model:                 cfg.Model,
		Provider:              provider,
		SystemPromptSuffix:    cfg.SystemPromptSuffix,
		OnlyNMostRecentImages: cfg.OnlyNMostRecentImages,
		MaxTokens:             cfg.MaxTokens,
		ThinkingBudget:        cfg.ThinkingBudget,
		TokenEfficientTools:   cfg.TokenEfficientTools,
		MaxIterations:         cfg.MaxIterations,
		Logger:                logger,
	}, printCallbacks(os.Stdout))

	logger.Info("starting task",
		"model", cfg.Model,
		"provider", cfg.Provider,
		"tool_version", cfg.ToolVersion,
	)

	messages, err := loop.Run(ctx, []agent.Message{agent.UserText(prompt)})
	if transcriptPath != "" {
		if writeErr := writeTranscript(transcriptPath, messages); writeErr != nil {
			logger.Error("failed to write transcript", "path", transcriptPath, "error", writeErr)
		}
	}
	if err != nil {
		return err
	}

	logger.Info("task complete", "messages", len(messages))
	return nil
}

func buildLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func startMetricsServer(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		server.Close()
	}()
}

// printCallbacks streams the conversation to the given writer.
func printCallbacks(w io.Writer) agent.Callbacks {
	return agent.Callbacks{
		OnContent: func(block agent.ContentBlock) {
			switch b := block.(type) {
			case *agent.TextBlock:
				fmt.Fprintln(w, b.Text)
			case *agent.ThinkingBlock:
				fmt.Fprintf(w, "[thinking] %s\n", b.Thinking)
			case *agent.ToolUseBlock:
				fmt.Fprintf(w, "[tool: %s] %s\n", b.Name, b.Input)
			}
		},
		OnToolResult: func(result *agent.ToolResult, toolUseID string) {
			if result.Error != "" {
				fmt.Fprintf(w, "[tool error] %s\n", result.Error)
				return
			}
			if result.Output != "" {
				fmt.Fprintln(w, result.Output)
			}
			if result.HasImage() {
				fmt.Fprintln(w, "[screenshot captured]")
			}
		},
	}
}
