package store

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/felixgeelhaar/ciforge/internal/errors"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	body := []byte("jar")
	require.NoError(t, m.Upload(ctx, "a/b/c/lib-1.0.jar", body, ContentTypeJar))
	require.NoError(t, m.Upload(ctx, "a/b/c/Build-1.0.log", []byte("log"), ""))
	body[0] = 'X'

	obj, ok := m.Get("a/b/c/lib-1.0.jar")
	require.True(t, ok)
	assert.Equal(t, "jar", string(obj.Body), "store must keep its own copy")
	assert.Equal(t, ContentTypeJar, obj.ContentType)

	logObj, _ := m.Get("a/b/c/Build-1.0.log")
	assert.Equal(t, ContentTypeDefault, logObj.ContentType)

	assert.Equal(t, []string{"a/b/c/lib-1.0.jar", "a/b/c/Build-1.0.log"}, m.Keys())
	assert.Equal(t, []string{"a/b/c/Build-1.0.log", "a/b/c/lib-1.0.jar"}, m.SortedKeys())
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gradle.log")
	require.NoError(t, os.WriteFile(path, []byte("BUILD SUCCESSFUL\n"), 0644))

	m := NewMemoryStore()
	require.NoError(t, UploadFile(context.Background(), m, "k/Build-1.log", path, ContentTypeText))

	obj, ok := m.Get("k/Build-1.log")
	require.True(t, ok)
	assert.Equal(t, "BUILD SUCCESSFUL\n", string(obj.Body))
	assert.Equal(t, ContentTypeText, obj.ContentType)

	err := UploadFile(context.Background(), m, "k/x", filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)
}

func TestFSStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(FSOptions{Root: root})
	require.NoError(t, err)

	require.NoError(t, s.Upload(context.Background(), "acme/widgets/feature/x/lib-1.2.0.jar", []byte("v1"), ContentTypeJar))
	require.NoError(t, s.Upload(context.Background(), "acme/widgets/feature/x/lib-1.2.0.jar", []byte("v2"), ContentTypeJar))

	data, err := os.ReadFile(filepath.Join(root, "acme", "widgets", "feature", "x", "lib-1.2.0.jar"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "acme", "widgets", "feature", "x"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary upload files must be cleaned up")
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(FSOptions{Root: t.TempDir()})
	require.NoError(t, err)

	for _, key := range []string{"../outside.jar", "a/../../outside.jar", ".."} {
		assert.Error(t, s.Upload(context.Background(), key, []byte("x"), ""), key)
	}
}

func TestNewBackendSelection(t *testing.T) {
	ctx := context.Background()

	u, err := New(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, u)

	u, err = New(ctx, Config{FS: FSOptions{Root: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, u)

	_, err = New(ctx, Config{Backend: "ftp"})
	assert.True(t, ferrors.HasCode(err, ferrors.ErrCodePublishStoreConfig))

	_, err = New(ctx, Config{Backend: BackendFS})
	assert.True(t, ferrors.HasCode(err, ferrors.ErrCodePublishStoreConfig))

	_, err = New(ctx, Config{Backend: BackendOCI})
	assert.True(t, ferrors.HasCode(err, ferrors.ErrCodePublishStoreConfig))

	_, err = New(ctx, Config{Backend: BackendS3})
	assert.True(t, ferrors.HasCode(err, ferrors.ErrCodePublishStoreConfig))
}

func TestOCIReference(t *testing.T) {
	s, err := NewOCIStore(OCIOptions{Registry: "ghcr.io/acme-ci/"})
	require.NoError(t, err)

	tests := map[string]string{
		"Acme/Widgets/main/lib-1.2.0.jar":                 "ghcr.io/acme-ci/acme/widgets/main:lib-1.2.0.jar",
		"acme/widgets/feature/x/Build-1.2.0-SNAPSHOT.log": "ghcr.io/acme-ci/acme/widgets/feature/x:Build-1.2.0-SNAPSHOT.log",
		"acme/my widgets/main/lib+meta.jar":               "ghcr.io/acme-ci/acme/my-widgets/main:lib-meta.jar",
		"lib.jar":                                         "ghcr.io/acme-ci/ciforge:lib.jar",
	}
	for key, want := range tests {
		got, err := s.Reference(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	// A trailing slash names a directory, never an object.
	for _, key := range []string{"acme/widgets/", "/acme/widgets/main/", "/"} {
		_, err = s.Reference(key)
		assert.Error(t, err, key)
	}

	got, err := s.Reference("/acme/widgets/main/lib.jar")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/acme-ci/acme/widgets/main:lib.jar", got)
}

func TestOCIStorePushesSingleLayerArtifact(t *testing.T) {
	server := httptest.NewServer(registry.New())
	t.Cleanup(server.Close)
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	s, err := NewOCIStore(OCIOptions{Registry: u.Host + "/builds", Keychain: authn.NewMultiKeychain()})
	require.NoError(t, err)

	body := []byte("PK\x03\x04 jar bytes")
	key := "acme/widgets/main/lib-1.2.0.jar"
	require.NoError(t, s.Upload(context.Background(), key, body, ContentTypeJar))

	refStr, err := s.Reference(key)
	require.NoError(t, err)
	ref, err := name.ParseReference(refStr)
	require.NoError(t, err)

	img, err := remote.Image(ref)
	require.NoError(t, err)

	manifest, err := img.Manifest()
	require.NoError(t, err)
	assert.Equal(t, ArtifactType, manifest.Annotations[annotationArtifactType])
	assert.Equal(t, key, manifest.Annotations[annotationKey])
	require.Len(t, manifest.Layers, 1)
	assert.Equal(t, ContentTypeJar, string(manifest.Layers[0].MediaType))
	assert.Equal(t, "lib-1.2.0.jar", manifest.Layers[0].Annotations[annotationTitle])

	layers, err := img.Layers()
	require.NoError(t, err)
	rc, err := layers[0].Compressed()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestOCIStoreUnreachableRegistry(t *testing.T) {
	server := httptest.NewServer(registry.New())
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	server.Close()

	s, err := NewOCIStore(OCIOptions{Registry: u.Host, Keychain: authn.NewMultiKeychain()})
	require.NoError(t, err)

	err = s.Upload(context.Background(), "acme/widgets/main/lib.jar", []byte("x"), ContentTypeJar)
	require.Error(t, err)
	assert.True(t, ferrors.HasCode(err, ferrors.ErrCodePublishUploadFailed))
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreUpload(t *testing.T) {
	client := &fakeS3{}
	s := NewS3StoreWithClient(client, "artifacts", "/ci/")

	require.NoError(t, s.Upload(context.Background(), "acme/widgets/main/lib-1.2.0.jar", []byte("jar"), ContentTypeJar))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "artifacts", aws.ToString(in.Bucket))
	assert.Equal(t, "ci/acme/widgets/main/lib-1.2.0.jar", aws.ToString(in.Key))
	assert.Equal(t, ContentTypeJar, aws.ToString(in.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "jar", string(client.bodies[0]))
}

func TestS3StoreUploadError(t *testing.T) {
	client := &fakeS3{err: errors.New("AccessDenied")}
	s := NewS3StoreWithClient(client, "artifacts", "")

	err := s.Upload(context.Background(), "k/Build-1.log", []byte("log"), ContentTypeText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://artifacts/k/Build-1.log")
	assert.Contains(t, err.Error(), "AccessDenied")
}
