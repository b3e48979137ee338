// Package clitool invokes the external read-only CLI tools that produce the
// raw inventory and tenant metrics data.
package clitool

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its stdout. Every command
// issued through a Runner is a read-only listing; nothing in this system
// mutates remote state.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a runner that shells out to the named binaries.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run executes the command and returns stdout. On failure the returned error
// carries the command line and captured stderr so the refresh status can
// surface it verbatim.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running external command", "command", name, "args", args)

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), detail)
	}

	return stdout.Bytes(), nil
}
