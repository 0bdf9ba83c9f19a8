package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes an external command
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// DirRunner can run a command inside a working directory
type DirRunner interface {
	RunIn(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands with os/exec and folds their output into errors
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a runner that logs every invocation at debug level
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes name with args and waits for it to finish
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return r.RunIn(ctx, "", name, args...)
}

// RunIn executes name with args inside dir
func (r *ExecRunner) RunIn(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	r.logger.Debug("exec", zap.String("cmd", name), zap.Strings("args", args), zap.String("dir", dir))

	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(output.String())
		if out == "" {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return fmt.Errorf("%s failed: %w\nOutput: %s", name, err, out)
	}
	return nil
}
