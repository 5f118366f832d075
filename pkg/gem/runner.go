package gem

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// maxStderr bounds how much stderr is kept for error reports
const maxStderr = 4096

// Runner runs an external command and returns its standard output as lines
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]string, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]string, error)

// Run calls f(ctx, name, args...)
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]string, error) {
	return f(ctx, name, args...)
}

// ExecRunner runs commands as OS processes
type ExecRunner struct {
	Logger *zap.Logger
}

// NewExecRunner creates a new ExecRunner instance
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

// Run starts the command, reads stdout fully and waits for it to exit.
// A non-zero exit status is reported as an *ExecutionError.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]string, error) {
	command := append([]string{name}, args...)

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ExecutionError{Command: command, ExitCode: -1, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &ExecutionError{Command: command, ExitCode: -1, Err: err}
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// keep the process from blocking on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if scanErr != nil {
		return nil, &ExecutionError{Command: command, ExitCode: -1, Err: fmt.Errorf("failed to read stdout: %w", scanErr)}
	}
	if waitErr != nil {
		execErr := &ExecutionError{Command: command, ExitCode: -1, Err: waitErr}
		if ctxErr := ctx.Err(); ctxErr != nil {
			execErr.Err = fmt.Errorf("%w: %v", ctxErr, waitErr)
			return nil, execErr
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() > 0 {
			execErr.ExitCode = exitErr.ExitCode()
			execErr.Stderr = tail(stderr.String(), maxStderr)
		}
		return nil, execErr
	}

	if r.Logger != nil {
		r.Logger.Debug("command finished",
			zap.String("command", name),
			zap.Int("lines", len(lines)),
		)
	}
	return lines, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
