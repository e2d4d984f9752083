package exec

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

// Supervisor runs a command while persisting its output to a log file and
// mirroring it to the console.
type Supervisor struct {
	Runner Runner

	// Console sinks. Nil means the process's own stdout and stderr.
	Stdout io.Writer
	Stderr io.Writer

	// OpenLog creates or truncates the log file. Nil means os.Create.
	OpenLog func(path string) (io.WriteCloser, error)
}

// NewSupervisor returns a Supervisor using the OS runner and console.
func NewSupervisor() *Supervisor {
	return &Supervisor{Runner: NewRunner()}
}

// Run opens a fresh log at logPath, runs cmd with its streams teed to the
// console and the log, and waits for it. The log file is closed on every
// return path before Run returns.
func (s *Supervisor) Run(ctx context.Context, logPath string, cmd Command) (res *Result, err error) {
	logFile, err := s.openLog(logPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildLogFile, "open build log "+logPath, err)
	}

	capture := NewOutputCapture(logFile, s.consoleOut(), s.consoleErr())
	defer func() {
		if cerr := capture.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeBuildLogFile, "close build log "+logPath, cerr)
		}
	}()

	cmd.Stdout = capture.Stdout()
	cmd.Stderr = capture.Stderr()

	start := time.Now()
	runErr := s.runner().Run(ctx, cmd)
	res = &Result{
		ExitCode: ExitCode(runErr),
		Duration: time.Since(start),
		LogPath:  logPath,
	}
	return res, runErr
}

func (s *Supervisor) runner() Runner {
	if s.Runner == nil {
		return NewRunner()
	}
	return s.Runner
}

func (s *Supervisor) openLog(path string) (io.WriteCloser, error) {
	if s.OpenLog != nil {
		return s.OpenLog(path)
	}
	return os.Create(path)
}

func (s *Supervisor) consoleOut() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s *Supervisor) consoleErr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}
