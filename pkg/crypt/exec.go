package crypt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrToolNotFound is returned when the command binary cannot be located.
var ErrToolNotFound = errors.New("command not found")

// CommandResult holds the output of a single command execution.
type CommandResult struct {
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// CommandExecutor abstracts process execution so decryption can be tested
// without the real cipher tool.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, args []string, env []string) (*CommandResult, error)
}

// DefaultWaitDelay bounds how long Execute waits for output pipes after the
// context kills the process.
const DefaultWaitDelay = 2 * time.Second

// RealExecutor runs commands via os/exec. The context bounds the run; a
// killed process is reported through a non-zero ExitCode.
type RealExecutor struct {
	// WaitDelay overrides DefaultWaitDelay. Descendants that inherited the
	// output pipes cannot hold Execute past it.
	WaitDelay time.Duration
}

// Execute runs command with args. A non-empty env replaces the child's
// environment entirely.
func (r *RealExecutor) Execute(ctx context.Context, command string, args []string, env []string) (*CommandResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	if len(env) > 0 {
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		case isExecNotFound(err):
			return nil, fmt.Errorf("execute %q: %w", command, ErrToolNotFound)
		default:
			return nil, fmt.Errorf("execute %q: %w", command, err)
		}
	}

	return &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// isExecNotFound returns true when the error indicates the executable was not found.
func isExecNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	// exec.Error wraps lookup failures for the specific binary name
	var execErr *exec.Error
	return errors.As(err, &execErr)
}
