// Package gradle drives Gradle projects through the CI task lifecycle:
// version injection, supervised build, and artifact/log publishing.
package gradle

import (
	"context"
	stderrors "errors"
	"io"
	"path/filepath"

	"github.com/felixgeelhaar/ciforge/internal/config"
	"github.com/felixgeelhaar/ciforge/internal/exec"
	"github.com/felixgeelhaar/ciforge/internal/log"
	"github.com/felixgeelhaar/ciforge/internal/store"
	"github.com/felixgeelhaar/ciforge/internal/task"
)

// BuildSystem is the contract an orchestrator drives a build-system driver
// through. Phases run strictly one after another on the same task.
type BuildSystem interface {
	SetVersion(ctx context.Context, t *task.BuildTask) error
	Build(ctx context.Context, t *task.BuildTask) error
	Publish(ctx context.Context, t *task.BuildTask) error
}

// Options are the resolved build tool settings. See config.GradleConfig for
// the defaults.
type Options struct {
	Command string
	Args    []string
	FatTask string
	LogFile string
	LibsDir string
}

// OptionsFromConfig resolves Options from loaded configuration, filling any
// empty field with its default.
func OptionsFromConfig(c config.GradleConfig) Options {
	d := config.Default().Gradle
	o := Options{
		Command: c.Command,
		Args:    c.Args,
		FatTask: c.FatTask,
		LogFile: c.LogFile,
		LibsDir: c.LibsDir,
	}
	if o.Command == "" {
		o.Command = d.Command
	}
	if o.Args == nil {
		o.Args = d.Args
	}
	if o.FatTask == "" {
		o.FatTask = d.FatTask
	}
	if o.LogFile == "" {
		o.LogFile = d.LogFile
	}
	if o.LibsDir == "" {
		o.LibsDir = d.LibsDir
	}
	return o
}

// DefaultOptions returns the built-in settings
func DefaultOptions() Options {
	return OptionsFromConfig(config.GradleConfig{})
}

// Driver implements BuildSystem for Gradle.
type Driver struct {
	Options Options

	// Store receives the artifact and the build log. Required for Publish.
	Store store.Uploader

	// Runner starts the build tool. Nil uses os/exec.
	Runner exec.Runner

	// Console sinks for the build tool's output. Nil means os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Log receives lifecycle progress. Nil uses log.DefaultLogger().
	// Failures are reported through the task's own Logger.
	Log *log.Logger
}

// New creates a Driver publishing to s with default options
func New(s store.Uploader) *Driver {
	return &Driver{Options: DefaultOptions(), Store: s}
}

// Run executes the whole lifecycle on t.
//
// A version phase failure aborts before the build. The publish phase always
// follows the build so the log is uploaded on the failure path too; t.Success
// records the build outcome. A build failure takes precedence in the returned
// error, joined with any publish failure.
func (d *Driver) Run(ctx context.Context, t *task.BuildTask) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if err := d.SetVersion(ctx, t); err != nil {
		return err
	}

	buildErr := d.Build(ctx, t)
	t.Success = buildErr == nil

	publishErr := d.Publish(ctx, t)
	if buildErr != nil {
		if publishErr != nil {
			d.logger(t, "publish").LogError("publish failed after build failure", publishErr)
			return stderrors.Join(buildErr, publishErr)
		}
		return buildErr
	}
	return publishErr
}

// LogPath is the build log location for t
func (d *Driver) LogPath(t *task.BuildTask) string {
	return filepath.Join(t.Workspace, d.Options.LogFile)
}

func (d *Driver) logger(t *task.BuildTask, phase string) *log.Logger {
	l := d.Log
	if l == nil {
		l = log.DefaultLogger()
	}
	return l.With(
		"run_id", t.RunID,
		"phase", phase,
		"project", t.Project.RemotePrefix(),
	)
}

var _ BuildSystem = (*Driver)(nil)
