package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/ciforge/internal/errors"
	"github.com/felixgeelhaar/ciforge/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ciforge.yaml")
	content := `gradle:
  command: gradle
  args: [assemble]
  libs_dir: out/libs
store:
  backend: s3
  s3:
    bucket: builds
    endpoint: https://acct.r2.cloudflarestorage.com
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gradle", cfg.Gradle.Command)
	assert.Equal(t, []string{"assemble"}, cfg.Gradle.Args)
	assert.Equal(t, "out/libs", cfg.Gradle.LibsDir)
	assert.Equal(t, "shadowJar", cfg.Gradle.FatTask, "unset keys keep defaults")
	assert.Equal(t, "gradle.log", cfg.Gradle.LogFile)
	assert.Equal(t, "s3", cfg.Store.Backend)
	assert.Equal(t, "builds", cfg.Store.S3.Bucket)
	assert.Equal(t, "auto", cfg.Store.S3.Region)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFindsProjectConfigInParent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectConfigName), []byte("store:\n  backend: memory\n"), 0600))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CIFORGE_STORE_BACKEND", "oci")
	t.Setenv("CIFORGE_STORE_OCI_REGISTRY", "ghcr.io/acme")
	t.Setenv("CIFORGE_GRADLE_COMMAND", "/opt/gradle/bin/gradle")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "oci", cfg.Store.Backend)
	assert.Equal(t, "ghcr.io/acme", cfg.Store.OCI.Registry)
	assert.Equal(t, "/opt/gradle/bin/gradle", cfg.Gradle.Command)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gradle: [unterminated"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigLoad))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigLoad))
}

func TestStoreOptions(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = store.BackendOCI
	cfg.Store.OCI.Registry = "localhost:5000/ci"
	cfg.Store.OCI.Insecure = true

	opts := cfg.StoreOptions()
	assert.Equal(t, store.BackendOCI, opts.Backend)
	assert.Equal(t, "localhost:5000/ci", opts.OCI.Registry)
	assert.True(t, opts.OCI.Insecure)
	assert.Equal(t, "./artifacts", opts.FS.Root)
	assert.Equal(t, "auto", opts.S3.Region)
}
