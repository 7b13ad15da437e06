// Package bash exposes a shell tool backed by a persistent session.
package bash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/agent"
)

const (
	defaultTimeout = 120 * time.Second

	// sentinel marks the end of one command's output on stdout.
	sentinel = "<<exit>>"

	pollInterval = 20 * time.Millisecond
)

// Config controls the shell session.
type Config struct {
	// Timeout bounds one command. Zero means 120s.
	Timeout time.Duration

	// Shell overrides the interpreter. Empty means /bin/bash.
	Shell string
}

// Tool runs shell commands in a persistent bash session, so environment
// variables and the working directory carry across calls. The restart
// command discards the session and starts a fresh shell.
type Tool struct {
	config Config

	mu      sync.Mutex
	session *session
}

// NewTool creates a bash tool. The session starts lazily on first use.
func NewTool(cfg Config) *Tool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Shell == "" {
		cfg.Shell = "/bin/bash"
	}
	return &Tool{config: cfg}
}

func (t *Tool) Name() string { return "bash" }

func (t *Tool) Description() string {
	return "Run a shell command in a persistent bash session and return its output."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "command": {
      "type": "string",
      "description": "Shell command to execute."
    },
    "restart": {
      "type": "boolean",
      "description": "Discard the session state and start a fresh shell."
    }
  }
}`)
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Command string `json:"command"`
		Restart bool   `json:"restart"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if input.Restart {
		if t.session != nil {
			t.session.close()
			t.session = nil
		}
		s, err := startSession(t.config.Shell)
		if err != nil {
			return &agent.ToolResult{Error: fmt.Sprintf("restart failed: %v", err)}, nil
		}
		t.session = s
		return &agent.ToolResult{System: "tool has been restarted"}, nil
	}

	command := strings.TrimSpace(input.Command)
	if command == "" {
		return &agent.ToolResult{Error: "command is required"}, nil
	}

	if t.session == nil {
		s, err := startSession(t.config.Shell)
		if err != nil {
			return &agent.ToolResult{Error: fmt.Sprintf("start session: %v", err)}, nil
		}
		t.session = s
	}

	return t.session.run(ctx, command, t.config.Timeout)
}

// session is one long-lived shell process. Pipes are drained continuously
// into buffers; run polls stdout for the sentinel that ends a command.
type session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu     sync.Mutex
	stdout bytes.Buffer
	stderr bytes.Buffer

	// timedOut latches after a command overruns its deadline: the shell is
	// still busy with it, so every call fails until a restart.
	timedOut bool
}

func startSession(shell string) (*session, error) {
	cmd := exec.Command(shell)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &session{cmd: cmd, stdin: stdin}
	go s.drain(stdout, &s.stdout)
	go s.drain(stderr, &s.stderr)
	return s, nil
}

func (s *session) drain(r io.Reader, buf *bytes.Buffer) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			buf.Write(chunk[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *session) run(ctx context.Context, command string, timeout time.Duration) (*agent.ToolResult, error) {
	if s.timedOut {
		return &agent.ToolResult{Error: timeoutMessage(timeout)}, nil
	}

	s.mu.Lock()
	s.stdout.Reset()
	s.stderr.Reset()
	s.mu.Unlock()

	if _, err := io.WriteString(s.stdin, command+"; echo '"+sentinel+"'\n"); err != nil {
		return &agent.ToolResult{Error: "bash session is closed and must be restarted"}, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			s.timedOut = true
			return nil, ctx.Err()

		case <-deadline.C:
			s.timedOut = true
			return &agent.ToolResult{Error: timeoutMessage(timeout)}, nil

		case <-poll.C:
			s.mu.Lock()
			out := s.stdout.String()
			s.mu.Unlock()

			idx := strings.Index(out, sentinel)
			if idx < 0 {
				continue
			}

			s.mu.Lock()
			errOut := s.stderr.String()
			s.stdout.Reset()
			s.stderr.Reset()
			s.mu.Unlock()

			return &agent.ToolResult{
				Output: strings.TrimRight(out[:idx], "\n"),
				Error:  strings.TrimRight(errOut, "\n"),
			}, nil
		}
	}
}

func (s *session) close() {
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	go s.cmd.Wait()
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("timed out: bash has not returned in %.0f seconds and must be restarted", timeout.Seconds())
}
