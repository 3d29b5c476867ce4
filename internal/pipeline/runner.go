package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// Runner executes one external tool invocation to completion.
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

// ExecRunner runs tools as subprocesses and logs their combined output.
type ExecRunner struct {
	logger *zap.Logger
}

func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args []string) error {
	if name == "" {
		return errors.New("pipeline: required command name")
	}

	cmd := exec.CommandContext(ctx, name, args...)
	out := bytes.Buffer{}
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Info("running tool",
		zap.String("name", name),
		zap.Strings("args", args),
	)

	err := cmd.Run()
	if out.Len() > 0 {
		r.logger.Info("tool output",
			zap.String("name", name),
			zap.String("output", out.String()),
		)
	}
	if err != nil {
		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			return fmt.Errorf("pipeline: %s exited with code %d", name, exitErr.ExitCode())
		}
		return fmt.Errorf("pipeline: run %s: %w", name, err)
	}
	return nil
}
