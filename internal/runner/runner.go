package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result carries the structured outcome of one subprocess invocation, so
// failures can be attributed to a specific pipeline step instead of relying
// on whatever the tool printed to the console.
type Result struct {
	// ExitCode is the subprocess exit status. Zero on success.
	ExitCode int
	// Stderr is the captured standard error output, trimmed.
	Stderr string
}

// Runner invokes external tools. The pipeline depends on this interface so
// tests can substitute a recording fake for the registry CLI.
type Runner interface {
	// Run executes name with args in dir and waits for completion.
	// A non-zero exit status is reported through Result, not through error;
	// error is reserved for failures to run the tool at all.
	Run(ctx context.Context, dir, name string, args ...string) (*Result, error)
}

// Exec is the production Runner backed by os/exec.
type Exec struct{}

// NewExec returns a Runner executing real subprocesses.
func NewExec() *Exec {
	return &Exec{}
}

// Run executes the tool synchronously with captured stderr.
func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		ExitCode: 0,
		Stderr:   strings.TrimSpace(stderr.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}

		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}
