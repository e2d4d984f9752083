package gradle

import (
	"context"

	"github.com/felixgeelhaar/ciforge/internal/exec"
	"github.com/felixgeelhaar/ciforge/internal/log"
	"github.com/felixgeelhaar/ciforge/internal/task"
)

// BuildArgs returns the build tool arguments for t: the base arguments plus
// the fat artifact task when the project asks for one.
func (d *Driver) BuildArgs(t *task.BuildTask) []string {
	args := append([]string(nil), d.Options.Args...)
	if t.Project.BuildOptions.GradleOrDefault().ShadowJar {
		args = append(args, d.Options.FatTask)
	}
	return args
}

// Build runs the build tool in the workspace, teeing its output to the
// console and a fresh log file. A failure is reported through t.Logger and
// returned unchanged; nothing is retried.
func (d *Driver) Build(ctx context.Context, t *task.BuildTask) error {
	l := d.logger(t, "build")

	sup := exec.NewSupervisor()
	if d.Runner != nil {
		sup.Runner = d.Runner
	}
	sup.Stdout, sup.Stderr = d.Stdout, d.Stderr

	cmd := exec.Command{
		Name: d.Options.Command,
		Args: d.BuildArgs(t),
		Dir:  t.Workspace,
	}

	l.Info("starting build", "command", cmd.String())

	res, err := sup.Run(ctx, d.LogPath(t), cmd)
	if err != nil {
		args := append(log.ErrorAttrs(err),
			"run_id", t.RunID,
			"command", cmd.String(),
			"log", d.LogPath(t),
		)
		if res != nil {
			args = append(args, "exit_code", res.ExitCode)
		}
		var reporter task.Logger = l
		if t.Logger != nil {
			reporter = t.Logger
		}
		reporter.Error("gradle build failed", args...)
		return err
	}

	l.Info("build finished", "duration", res.Duration.String())
	return nil
}
