// Package task defines the per-run build task threaded through the Gradle
// driver's version, build and publish phases.
package task

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

// Logger is the structured error sink a task reports through.
// *log.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
}

// GradleOptions are the Gradle specific build options of a project.
type GradleOptions struct {
	// Kotlin selects build.gradle.kts over build.gradle. Default false.
	Kotlin bool `yaml:"kotlin,omitempty" json:"kotlin,omitempty"`

	// ShadowJar requests the fat artifact: the shadowJar task is added to the
	// build and the default artifact name gains an "-all" suffix. Default false.
	ShadowJar bool `yaml:"shadowJar,omitempty" json:"shadowJar,omitempty"`

	// Target is the on-disk artifact name template without the ".jar"
	// extension. {name} and {version} are substituted. Default "" meaning
	// "{name}-{version}-" followed by the fat artifact suffix.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
}

// BuildOptions describe what is built and how it is named.
type BuildOptions struct {
	// Name is the published artifact and root project name. Required.
	Name string `yaml:"name" json:"name"`

	// Gradle is nil for projects that never set any Gradle option; the zero
	// value applies in that case.
	Gradle *GradleOptions `yaml:"gradle,omitempty" json:"gradle,omitempty"`
}

// GradleOrDefault returns the Gradle options with defaults applied.
func (o BuildOptions) GradleOrDefault() GradleOptions {
	if o.Gradle == nil {
		return GradleOptions{}
	}
	return *o.Gradle
}

// Project identifies the repository being built.
type Project struct {
	Author       string       `yaml:"author" json:"author"`
	Repository   string       `yaml:"repository" json:"repository"`
	Branch       string       `yaml:"branch" json:"branch"`
	BuildOptions BuildOptions `yaml:"buildOptions" json:"buildOptions"`
}

// RemotePrefix is the store key prefix shared by every object of the project.
func (p Project) RemotePrefix() string {
	return fmt.Sprintf("%s/%s/%s", p.Author, p.Repository, p.Branch)
}

// BuildTask is the state of one CI run.
//
// The orchestrator fills Workspace, Project, Version and FinalVersion. The
// build phase outcome lands in Success, and the publish phase fills Target,
// SHA1 and BLAKE3. A task is owned by a single lifecycle run and is never
// shared between goroutines.
type BuildTask struct {
	RunID        string
	Workspace    string
	Project      Project
	Version      string
	FinalVersion string
	Success      bool

	Target string
	SHA1   string
	BLAKE3 string

	Logger Logger
}

// New creates a task with a fresh run ID.
func New(workspace string, project Project, version, finalVersion string, logger Logger) *BuildTask {
	return &BuildTask{
		RunID:        uuid.NewString(),
		Workspace:    workspace,
		Project:      project,
		Version:      version,
		FinalVersion: finalVersion,
		Logger:       logger,
	}
}

// Validate checks the preconditions every phase relies on.
func (t *BuildTask) Validate() error {
	if t.Workspace == "" {
		return errors.NewInvalidTaskError("workspace is not set")
	}
	info, err := os.Stat(t.Workspace)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalidTask, "workspace is not accessible", err)
	}
	if !info.IsDir() {
		return errors.NewInvalidTaskError(fmt.Sprintf("workspace %s is not a directory", t.Workspace))
	}
	if t.Project.BuildOptions.Name == "" {
		return errors.NewInvalidTaskError("buildOptions.name is required")
	}
	if t.FinalVersion == "" {
		return errors.NewInvalidTaskError("final version must be resolved before the version phase")
	}
	if t.Logger == nil {
		return errors.NewInvalidTaskError("logger is not set")
	}
	return nil
}

// LoadProject reads a project descriptor from a YAML file.
func LoadProject(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Project{}, errors.NewConfigNotFoundError(path)
		}
		return Project{}, errors.Wrap(errors.ErrCodeConfigLoad, "read project descriptor", err)
	}
	return ParseProject(data)
}

// ParseProject decodes a YAML project descriptor.
func ParseProject(data []byte) (Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Project{}, errors.Wrap(errors.ErrCodeConfigLoad, "parse project descriptor", err).
			WithSuggestion("Check the YAML syntax of the project descriptor")
	}
	if p.BuildOptions.Name == "" {
		return Project{}, errors.NewInvalidTaskError("buildOptions.name is required")
	}
	return p, nil
}
