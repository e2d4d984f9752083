// Package config loads ciforge settings.
//
// Precedence (highest to lowest):
//  1. Environment variables (CIFORGE_STORE_BACKEND, CIFORGE_GRADLE_COMMAND, ...)
//  2. The file given with --config, else .ciforge.yaml in the working
//     directory or a parent
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/felixgeelhaar/ciforge/internal/errors"
	"github.com/felixgeelhaar/ciforge/internal/store"
)

// ProjectConfigName is searched for when no config file is given
const ProjectConfigName = ".ciforge.yaml"

// Config holds all configuration for ciforge.
type Config struct {
	Gradle GradleConfig `mapstructure:"gradle"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

// GradleConfig controls how the build tool is invoked and where its outputs
// are found.
type GradleConfig struct {
	// Command is the build tool, relative to the workspace. Default "./gradlew".
	Command string `mapstructure:"command"`
	// Args are always passed. Default ["clean", "build"].
	Args []string `mapstructure:"args"`
	// FatTask is appended when the project wants a fat artifact. Default "shadowJar".
	FatTask string `mapstructure:"fat_task"`
	// LogFile is the build log, relative to the workspace. Default "gradle.log".
	LogFile string `mapstructure:"log_file"`
	// LibsDir holds the built jars, relative to the workspace. Default "build/libs".
	LibsDir string `mapstructure:"libs_dir"`
}

// StoreConfig selects the remote store
type StoreConfig struct {
	// Backend is fs, oci, s3 or memory. Default "fs".
	Backend string        `mapstructure:"backend"`
	FS      FSStoreConfig `mapstructure:"fs"`
	OCI     OCIConfig     `mapstructure:"oci"`
	S3      S3Config      `mapstructure:"s3"`
}

// FSStoreConfig configures the directory backend
type FSStoreConfig struct {
	// Root defaults to "./artifacts"
	Root string `mapstructure:"root"`
}

// OCIConfig configures the registry backend
type OCIConfig struct {
	Registry string `mapstructure:"registry"`
	Insecure bool   `mapstructure:"insecure"`
}

// S3Config configures the S3/R2 backend
type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Endpoint string `mapstructure:"endpoint"`
	// Region defaults to "auto"
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// LogConfig configures driver logging
type LogConfig struct {
	// Level defaults to "info"
	Level string `mapstructure:"level"`
	// Format is text or json. Default "text".
	Format string `mapstructure:"format"`
}

// Load resolves configuration. An empty path searches for ProjectConfigName
// starting at the working directory; finding none is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CIFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findProjectConfig()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, fmt.Sprintf("reading config from %s", path), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "unmarshaling config", err)
	}

	cfg.Store.S3.Endpoint = os.ExpandEnv(cfg.Store.S3.Endpoint)
	return cfg, nil
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Gradle: GradleConfig{
			Command: "./gradlew",
			Args:    []string{"clean", "build"},
			FatTask: "shadowJar",
			LogFile: "gradle.log",
			LibsDir: "build/libs",
		},
		Store: StoreConfig{
			Backend: store.BackendFS,
			FS:      FSStoreConfig{Root: "./artifacts"},
			S3:      S3Config{Region: "auto"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StoreOptions converts the store section for store.New
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Backend: c.Store.Backend,
		FS:      store.FSOptions{Root: c.Store.FS.Root},
		OCI: store.OCIOptions{
			Registry: c.Store.OCI.Registry,
			Insecure: c.Store.OCI.Insecure,
		},
		S3: store.S3Options{
			Bucket:   c.Store.S3.Bucket,
			Prefix:   c.Store.S3.Prefix,
			Endpoint: c.Store.S3.Endpoint,
			Region:   c.Store.S3.Region,
			Profile:  c.Store.S3.Profile,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("gradle.command", d.Gradle.Command)
	v.SetDefault("gradle.args", d.Gradle.Args)
	v.SetDefault("gradle.fat_task", d.Gradle.FatTask)
	v.SetDefault("gradle.log_file", d.Gradle.LogFile)
	v.SetDefault("gradle.libs_dir", d.Gradle.LibsDir)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.fs.root", d.Store.FS.Root)
	v.SetDefault("store.oci.registry", "")
	v.SetDefault("store.oci.insecure", false)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.region", d.Store.S3.Region)
	v.SetDefault("store.s3.profile", "")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// findProjectConfig searches for .ciforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
