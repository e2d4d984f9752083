package exec

import (
	"context"
	"errors"
	"os"
	"os/exec"

	ferrors "github.com/felixgeelhaar/ciforge/internal/errors"
)

// Runner starts a command and waits for it.
//
// Run returns a BUILD-001 error when the process exits non-zero and a
// BUILD-002 error when it cannot be started.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// OSRunner implements Runner using os/exec.
type OSRunner struct{}

// NewRunner creates a new OSRunner.
func NewRunner() *OSRunner {
	return &OSRunner{}
}

// Run executes cmd and blocks until it exits. Output copying finishes before
// Run returns, so every byte the child wrote has reached the sinks.
func (r *OSRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if err := cmd.Start(); err != nil {
		return ferrors.NewBuildSpawnError(c.Name, err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ferrors.NewBuildExitError(c.Name, exitErr.ExitCode(), err)
		}
		return ferrors.NewBuildSpawnError(c.Name, err)
	}
	return nil
}

// ExitCode extracts the child exit code from a Run error. It returns 0 for
// nil and -1 when the process never ran.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Verify OSRunner implements Runner at compile time.
var _ Runner = (*OSRunner)(nil)
