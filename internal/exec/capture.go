package exec

import (
	"io"
	"reflect"
	"sync"
)

// OutputCapture duplicates a child's stdout and stderr to console sinks and a
// shared log file.
//
// Each stream is written through io.MultiWriter, so a write returns only after
// both the console and the log accepted it. A slow sink blocks the copy and,
// through the pipe, the child itself. Nothing is dropped or queued.
type OutputCapture struct {
	log    *lockedWriter
	closer io.Closer
	stdout io.Writer
	stderr io.Writer

	once     sync.Once
	closeErr error
}

// NewOutputCapture wraps logFile. It takes ownership of logFile and closes it
// in Close. Nil console writers are skipped. When both streams go to the same
// console writer, writes to it are serialized too.
func NewOutputCapture(logFile io.WriteCloser, console, consoleErr io.Writer) *OutputCapture {
	lw := &lockedWriter{w: logFile}
	if sameWriter(console, consoleErr) {
		shared := &lockedWriter{w: console}
		console, consoleErr = shared, shared
	}
	return &OutputCapture{
		log:    lw,
		closer: logFile,
		stdout: tee(console, lw),
		stderr: tee(consoleErr, lw),
	}
}

// Stdout is the sink for the child's standard output.
func (c *OutputCapture) Stdout() io.Writer { return c.stdout }

// Stderr is the sink for the child's standard error.
func (c *OutputCapture) Stderr() io.Writer { return c.stderr }

// Close closes the log file. Calling it more than once is safe.
func (c *OutputCapture) Close() error {
	c.once.Do(func() {
		c.closeErr = c.closer.Close()
	})
	return c.closeErr
}

func tee(console io.Writer, log io.Writer) io.Writer {
	if console == nil {
		return log
	}
	return io.MultiWriter(console, log)
}

// sameWriter reports whether a and b are the same sink. Writers whose
// dynamic type is not comparable are treated as distinct.
func sameWriter(a, b io.Writer) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// lockedWriter serializes the stdout and stderr copy goroutines onto the one
// log file so their chunks never split each other.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
