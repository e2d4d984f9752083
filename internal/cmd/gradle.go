package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ciforge/internal/config"
	"github.com/felixgeelhaar/ciforge/internal/errors"
	"github.com/felixgeelhaar/ciforge/internal/gradle"
	"github.com/felixgeelhaar/ciforge/internal/log"
	"github.com/felixgeelhaar/ciforge/internal/store"
	"github.com/felixgeelhaar/ciforge/internal/task"
	"github.com/felixgeelhaar/ciforge/internal/version"
)

const (
	phaseRun        = "run"
	phaseSetVersion = "set-version"
	phaseBuild      = "build"
	phasePublish    = "publish"
)

// gradleOptions holds the flags shared by every gradle subcommand
type gradleOptions struct {
	workspace   string
	projectFile string
	project     task.Project
	kotlin      bool
	shadowJar   bool
	target      string

	version      string
	finalVersion string
	success      bool

	dryRun  bool
	jsonOut bool
}

// gradleEnv is everything one phase invocation needs
type gradleEnv struct {
	cfg    *config.Config
	logger *log.Logger
	driver *gradle.Driver
	task   *task.BuildTask
	memory *store.MemoryStore
}

func init() {
	rootCmd.AddCommand(newGradleCmd())
}

func newGradleCmd() *cobra.Command {
	opts := &gradleOptions{}

	cmd := &cobra.Command{
		Use:   "gradle",
		Short: "Drive a Gradle project through the CI lifecycle",
		Long: `Run the version, build and publish phases against a Gradle workspace.

Use "run" for the whole lifecycle, or a single phase when the orchestrator
sequences them itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.workspace, "workspace", "w", ".", "checked-out project directory")
	pf.StringVar(&opts.projectFile, "project", "", "project descriptor YAML (replaces the individual project flags)")
	pf.StringVar(&opts.project.Author, "author", "", "repository owner")
	pf.StringVar(&opts.project.Repository, "repository", "", "repository name")
	pf.StringVar(&opts.project.Branch, "branch", "", "branch being built")
	pf.StringVar(&opts.project.BuildOptions.Name, "name", "", "artifact and root project name")
	pf.BoolVar(&opts.kotlin, "kotlin", false, "patch build.gradle.kts instead of build.gradle")
	pf.BoolVar(&opts.shadowJar, "shadow-jar", false, "build and publish the fat jar")
	pf.StringVar(&opts.target, "target", "", "artifact name template without .jar ({name} and {version} are substituted)")
	pf.StringVar(&opts.version, "version", "", "source version of this run")
	pf.StringVar(&opts.finalVersion, "final-version", "", "release version written into the project (default --version)")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "publish into memory instead of the configured store")
	pf.BoolVar(&opts.jsonOut, "json", false, "print the run summary as JSON; build output moves to stderr")
	_ = cmd.MarkPersistentFlagRequired("version")

	cmd.AddCommand(
		newPhaseCmd(opts, phaseRun, "Inject the version, build and publish"),
		newPhaseCmd(opts, phaseSetVersion, "Write the final version and root project name into the project files"),
		newPhaseCmd(opts, phaseBuild, "Run the build, teeing its output to the console and the build log"),
	)

	publishCmd := newPhaseCmd(opts, phasePublish, "Publish the artifact and the build log")
	publishCmd.Flags().BoolVar(&opts.success, "success", false, "the build succeeded, so the artifact is published as well as the log")
	cmd.AddCommand(publishCmd)

	return cmd
}

func newPhaseCmd(opts *gradleOptions, phase, short string) *cobra.Command {
	return &cobra.Command{
		Use:   phase,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhase(cmd, opts, phase)
		},
	}
}

func runPhase(cmd *cobra.Command, opts *gradleOptions, phase string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := opts.setup(ctx, cmd, phase)
	if err != nil {
		return err
	}
	l := env.logger.With("run_id", env.task.RunID)
	l.Debug("phase starting", "phase", phase, "workspace", env.task.Workspace)

	var runErr error
	switch phase {
	case phaseRun:
		runErr = env.driver.Run(ctx, env.task)
	case phaseSetVersion:
		runErr = env.driver.SetVersion(ctx, env.task)
	case phaseBuild:
		runErr = env.driver.Build(ctx, env.task)
		env.task.Success = runErr == nil
	case phasePublish:
		env.task.Success = opts.success
		runErr = env.driver.Publish(ctx, env.task)
	default:
		return fmt.Errorf("unknown phase %q", phase)
	}

	if phase == phaseRun || phase == phasePublish {
		var uploaded []string
		if env.memory != nil {
			uploaded = env.memory.SortedKeys()
		}
		if err := writeSummary(cmd.OutOrStdout(), newRunSummary(env.task, uploaded), opts.jsonOut); err != nil {
			l.Warn("could not write summary", "error", err)
		}
	}
	return runErr
}

func (o *gradleOptions) setup(ctx context.Context, cmd *cobra.Command, phase string) (*gradleEnv, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	log.SetDefaultLogger(logger)
	logger.Debug("driver started", "build", version.GetInfo().String())

	project, err := o.resolveProject()
	if err != nil {
		return nil, err
	}

	workspace, err := filepath.Abs(o.workspace)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalidTask, "resolve workspace", err)
	}

	finalVersion := o.finalVersion
	if finalVersion == "" {
		finalVersion = o.version
	}

	env := &gradleEnv{
		cfg:    cfg,
		logger: logger,
		task:   task.New(workspace, project, o.version, finalVersion, logger),
	}
	if err := env.task.Validate(); err != nil {
		return nil, err
	}

	var s store.Uploader
	if phase == phaseRun || phase == phasePublish {
		if s, env.memory, err = o.openStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	d := gradle.New(s)
	d.Options = gradle.OptionsFromConfig(cfg.Gradle)
	d.Log = logger
	d.Stdout = cmd.OutOrStdout()
	if o.jsonOut {
		d.Stdout = cmd.ErrOrStderr()
	}
	d.Stderr = cmd.ErrOrStderr()
	env.driver = d

	return env, nil
}

func (o *gradleOptions) openStore(ctx context.Context, cfg *config.Config) (store.Uploader, *store.MemoryStore, error) {
	if o.dryRun {
		mem := store.NewMemoryStore()
		return mem, mem, nil
	}

	sc := cfg.StoreOptions()
	sc.OCI.UserAgent = version.GetInfo().UserAgent()
	s, err := store.New(ctx, sc)
	if err != nil {
		return nil, nil, err
	}
	if mem, ok := s.(*store.MemoryStore); ok {
		return s, mem, nil
	}
	return s, nil, nil
}

// resolveProject reads the descriptor file when given, else assembles the
// project from flags.
func (o *gradleOptions) resolveProject() (task.Project, error) {
	if o.projectFile != "" {
		return task.LoadProject(o.projectFile)
	}

	p := o.project
	if o.kotlin || o.shadowJar || o.target != "" {
		p.BuildOptions.Gradle = &task.GradleOptions{
			Kotlin:    o.kotlin,
			ShadowJar: o.shadowJar,
			Target:    o.target,
		}
	}
	if p.BuildOptions.Name == "" {
		return task.Project{}, errors.NewInvalidTaskError("no artifact name").
			WithSuggestion("Pass --name, or --project with a descriptor that sets buildOptions.name")
	}
	return p, nil
}

// newLogger applies --log-level and --log-format over the config file
func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}

	lc := log.DefaultConfig()
	if log.ParseLevel(level) == log.LevelDebug {
		lc = log.DevelopmentConfig()
	}
	lc.Level = log.ParseLevel(level)
	lc.Format = log.ParseFormat(format)
	lc.Output = w
	return log.New(lc)
}
