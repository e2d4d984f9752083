package gradle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/felixgeelhaar/ciforge/internal/patch"
	"github.com/felixgeelhaar/ciforge/internal/task"
)

const (
	buildFileGroovy = "build.gradle"
	buildFileKotlin = "build.gradle.kts"
	propertiesFile  = "gradle.properties"
	settingsFile    = "settings.gradle"

	versionKey = "version"
	nameKey    = "rootProject.name"
)

// BuildFile returns the build declaration file name for the project
func BuildFile(opts task.GradleOptions) string {
	if opts.Kotlin {
		return buildFileKotlin
	}
	return buildFileGroovy
}

// SetVersion stamps t.FinalVersion and the project name into the workspace:
// version lines are stripped from the build file (which must exist), the
// properties file gets "version = <finalVersion>" and the settings file gets
// "rootProject.name = '<name>'". The latter two are created when missing.
func (d *Driver) SetVersion(_ context.Context, t *task.BuildTask) error {
	l := d.logger(t, "version")
	opts := t.Project.BuildOptions.GradleOrDefault()

	patches := []patch.LinePatch{
		{
			Path:   filepath.Join(t.Workspace, BuildFile(opts)),
			Prefix: versionKey,
		},
		{
			Path:            filepath.Join(t.Workspace, propertiesFile),
			Prefix:          versionKey,
			Replacement:     fmt.Sprintf("version = %s", t.FinalVersion),
			CreateIfMissing: true,
		},
		{
			Path:            filepath.Join(t.Workspace, settingsFile),
			Prefix:          nameKey,
			Replacement:     fmt.Sprintf("rootProject.name = '%s'", t.Project.BuildOptions.Name),
			CreateIfMissing: true,
		},
	}

	for _, p := range patches {
		res, err := p.Apply()
		if err != nil {
			return err
		}
		l.Debug("patched config file",
			"file", filepath.Base(res.Path),
			"status", string(res.Status),
			"removed", res.Removed,
			"diff", res.Diff,
		)
	}

	l.Info("version injected", "final_version", t.FinalVersion, "name", t.Project.BuildOptions.Name)
	return nil
}
