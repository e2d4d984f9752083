package gradle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/ciforge/internal/checksum"
	"github.com/felixgeelhaar/ciforge/internal/errors"
	"github.com/felixgeelhaar/ciforge/internal/store"
	"github.com/felixgeelhaar/ciforge/internal/task"
)

const fatSuffix = "-all"

// ArtifactName returns the on-disk jar name the build is expected to produce.
//
// The template is gradle.target, or "{name}-{version}-" followed by "-all"
// for fat artifacts. {name} and {version} are replaced by the build name and
// the final version and ".jar" is appended.
func ArtifactName(t *task.BuildTask) string {
	opts := t.Project.BuildOptions.GradleOrDefault()

	tmpl := opts.Target
	if tmpl == "" {
		suffix := ""
		if opts.ShadowJar {
			suffix = fatSuffix
		}
		tmpl = "{name}-{version}-" + suffix
	}

	name := strings.ReplaceAll(tmpl, "{name}", t.Project.BuildOptions.Name)
	name = strings.ReplaceAll(name, "{version}", t.FinalVersion)
	return name + ".jar"
}

// PublishedName is the canonical remote artifact name, independent of the
// on-disk template.
func PublishedName(t *task.BuildTask) string {
	return fmt.Sprintf("%s-%s.jar", t.Project.BuildOptions.Name, t.FinalVersion)
}

// LogKey is the remote key of the build log. It uses the source version so
// repeated attempts at one final version keep separate logs.
func LogKey(t *task.BuildTask) string {
	return fmt.Sprintf("%s/Build-%s.log", t.Project.RemotePrefix(), t.Version)
}

// ArtifactKey is the remote key of the published artifact
func ArtifactKey(t *task.BuildTask) string {
	return t.Project.RemotePrefix() + "/" + PublishedName(t)
}

// ArtifactPath is where the built jar is looked up
func (d *Driver) ArtifactPath(t *task.BuildTask) string {
	return filepath.Join(t.Workspace, d.Options.LibsDir, ArtifactName(t))
}

// Publish uploads the artifact when t.Success is set, filling t.Target,
// t.SHA1 and t.BLAKE3, then uploads the build log if one exists.
func (d *Driver) Publish(ctx context.Context, t *task.BuildTask) error {
	l := d.logger(t, "publish")

	if d.Store == nil {
		return errors.New(errors.ErrCodePublishStoreConfig, "no artifact store configured")
	}

	if t.Success {
		if err := d.publishArtifact(ctx, t); err != nil {
			return err
		}
		l.Info("artifact published", "target", t.Target, "sha1", t.SHA1)
	}

	logPath := d.LogPath(t)
	if _, err := os.Stat(logPath); err != nil {
		if os.IsNotExist(err) {
			l.WithError(err).Warn("no build log to publish", "log", logPath)
			return nil
		}
		return errors.Wrap(errors.ErrCodePublishUploadFailed, "stat build log", err)
	}

	key := LogKey(t)
	if err := store.UploadFile(ctx, d.Store, key, logPath, store.ContentTypeText); err != nil {
		return errors.NewUploadError(key, err)
	}
	l.Info("build log published", "key", key)
	return nil
}

// publishArtifact reads the jar once; the digests and the upload both use
// that same buffer.
func (d *Driver) publishArtifact(ctx context.Context, t *task.BuildTask) error {
	path := d.ArtifactPath(t)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewArtifactMissingError(path, err)
	}

	digests, err := checksum.Sum(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.ErrCodePublishChecksumFailed, "checksum "+path, err)
	}

	key := ArtifactKey(t)
	if err := d.Store.Upload(ctx, key, data, store.ContentTypeJar); err != nil {
		return errors.NewUploadError(key, err)
	}

	t.Target = PublishedName(t)
	t.SHA1 = digests.SHA1
	t.BLAKE3 = digests.BLAKE3
	return nil
}
