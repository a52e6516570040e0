package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RunRequest carries the (possibly enriched) task text and the optional
// session token for conversational continuity.
type RunRequest struct {
	Task        string
	SessionCode string
}

// AgentRunner executes one agent invocation and returns its captured standard
// output. The supervisor owns timeout and cancellation through ctx.
type AgentRunner interface {
	Run(ctx context.Context, req RunRequest) (string, error)
}

// ProcessRunner spawns the external agent binary per job. On context
// cancellation the process receives an interrupt first and is force-killed
// after the grace period.
type ProcessRunner struct {
	binary    string
	baseArgs  []string
	killGrace time.Duration
}

func NewProcessRunner(binary string, baseArgs []string, killGrace time.Duration) *ProcessRunner {
	if killGrace <= 0 {
		killGrace = 10 * time.Second
	}
	return &ProcessRunner{binary: binary, baseArgs: baseArgs, killGrace: killGrace}
}

func (r *ProcessRunner) Run(ctx context.Context, req RunRequest) (string, error) {
	args := append([]string{}, r.baseArgs...)
	if req.SessionCode != "" {
		args = append(args, "--resume", req.SessionCode)
	}
	args = append(args, req.Task)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Graceful-then-forced shutdown: interrupt on cancellation, SIGKILL if
	// the process is still alive after the grace period.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.killGrace

	err := cmd.Run()
	output := stdout.String()
	if err != nil {
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		if detail := lastLine(stderr.String()); detail != "" {
			return output, fmt.Errorf("agent process failed: %w (stderr: %s)", err, detail)
		}
		return output, fmt.Errorf("agent process failed: %w", err)
	}
	return output, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
