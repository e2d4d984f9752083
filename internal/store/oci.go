package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"path"
	"regexp"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

const (
	// ArtifactType marks manifests pushed by ciforge
	ArtifactType = "application/vnd.ciforge.build.v1"

	annotationTitle        = "org.opencontainers.image.title"
	annotationArtifactType = "org.opencontainers.image.artifactType"
	annotationKey          = "dev.ciforge.key"
)

// OCIOptions configures the OCI registry backend
type OCIOptions struct {
	// Registry is the registry host plus optional namespace, e.g.
	// "ghcr.io/acme-ci". Required.
	Registry string

	// Insecure allows plain HTTP registries
	Insecure bool

	// Keychain provides authentication credentials. Defaults to the Docker
	// config keychain.
	Keychain authn.Keychain

	// UserAgent for registry requests
	UserAgent string
}

// OCIStore pushes each object as a single-layer OCI artifact.
//
// A key "acme/widgets/main/lib-1.2.0.jar" becomes the reference
// "<registry>/acme/widgets/main:lib-1.2.0.jar" whose only layer holds the
// object bytes with the object's content type as media type.
type OCIStore struct {
	opts OCIOptions
}

// NewOCIStore creates a new OCI store
func NewOCIStore(opts OCIOptions) (*OCIStore, error) {
	if opts.Registry == "" {
		return nil, errors.New(errors.ErrCodePublishStoreConfig, "oci store registry is not set").
			WithSuggestion("Set store.oci.registry, e.g. ghcr.io/my-org")
	}
	if opts.Keychain == nil {
		opts.Keychain = authn.DefaultKeychain
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ciforge/1.0"
	}
	opts.Registry = strings.TrimSuffix(opts.Registry, "/")
	return &OCIStore{opts: opts}, nil
}

var (
	invalidRepoChars = regexp.MustCompile(`[^a-z0-9._-]+`)
	invalidTagChars  = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// Reference maps an object key onto an OCI reference string
func (s *OCIStore) Reference(key string) (string, error) {
	dir, file := path.Split(strings.TrimPrefix(key, "/"))
	if file == "" {
		return "", fmt.Errorf("key %q has no object name", key)
	}

	var parts []string
	for _, p := range strings.Split(strings.Trim(dir, "/"), "/") {
		p = strings.Trim(invalidRepoChars.ReplaceAllString(strings.ToLower(p), "-"), "-._")
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{"ciforge"}
	}

	tag := invalidTagChars.ReplaceAllString(file, "-")
	if tag[0] == '.' || tag[0] == '-' {
		tag = "_" + tag
	}
	if len(tag) > 128 {
		tag = tag[:128]
	}

	return fmt.Sprintf("%s/%s:%s", s.opts.Registry, strings.Join(parts, "/"), tag), nil
}

// Upload implements Uploader
func (s *OCIStore) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	refStr, err := s.Reference(key)
	if err != nil {
		return err
	}

	var nameOpts []name.Option
	if s.opts.Insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	ref, err := name.ParseReference(refStr, nameOpts...)
	if err != nil {
		return classifyRegistryError(err, refStr)
	}

	layer := static.NewLayer(body, types.MediaType(contentTypeOrDefault(contentType)))
	img, err := mutate.Append(empty.Image, mutate.Addendum{
		Layer: layer,
		Annotations: map[string]string{
			annotationTitle: path.Base(key),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to append layer: %w", err)
	}

	img = mutate.MediaType(img, types.OCIManifestSchema1)
	img = mutate.ConfigMediaType(img, types.OCIConfigJSON)
	img = mutate.Annotations(img, map[string]string{
		annotationArtifactType: ArtifactType,
		annotationKey:          key,
	}).(v1.Image)

	remoteOpts := []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(s.opts.Keychain),
		remote.WithUserAgent(s.opts.UserAgent),
	}

	if err := remote.Write(ref, img, remoteOpts...); err != nil {
		return classifyRegistryError(err, refStr)
	}
	return nil
}

// classifyRegistryError attaches registry specific suggestions to err
func classifyRegistryError(err error, ref string) error {
	wrapped := errors.Wrap(errors.ErrCodePublishUploadFailed, fmt.Sprintf("push %s", ref), err)

	var nameErr *name.ErrBadName
	if stderrors.As(err, &nameErr) {
		return wrapped.WithSuggestion("Registry references must look like registry.com/org/repo:tag; check store.oci.registry")
	}

	var transportErr *transport.Error
	if stderrors.As(err, &transportErr) {
		switch transportErr.StatusCode {
		case 401:
			return wrapped.WithSuggestion("Log in to the registry (docker login <registry>); credentials are read from ~/.docker/config.json")
		case 403:
			return wrapped.WithSuggestion("Verify the credentials have push access (GitHub needs the write:packages scope)")
		case 429:
			return wrapped.WithSuggestion("Registry rate limit exceeded; authenticate or retry the task later")
		case 500, 502, 503, 504:
			return wrapped.WithSuggestion("The registry reported a server error; check its status page")
		}
		return wrapped
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return wrapped.WithSuggestion("Check network access to the registry; use store.oci.insecure for plain HTTP registries")
	}

	return wrapped
}
