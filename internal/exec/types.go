package exec

import (
	"io"
	"time"
)

// Command describes one supervised child process
type Command struct {
	Name string   // executable, e.g. "./gradlew"
	Args []string // arguments
	Dir  string   // working directory
	Env  []string // extra KEY=VALUE pairs appended to the parent environment

	// Stdout and Stderr receive the child's output streams. Nil discards.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs
func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Result represents the outcome of a supervised command
type Result struct {
	ExitCode int
	Duration time.Duration
	LogPath  string
}
