// Package store publishes build outputs to remote storage.
//
// Keys are slash separated, e.g. "acme/widgets/main/lib-1.2.0.jar". Each
// backend maps a key onto its own namespace.
package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

const (
	// ContentTypeJar is used for published jar artifacts
	ContentTypeJar = "application/java-archive"
	// ContentTypeText is used for build logs
	ContentTypeText = "text/plain"
	// ContentTypeDefault applies when the caller gives none
	ContentTypeDefault = "application/octet-stream"
)

// Uploader stores one object under key.
//
// Backends upload exactly the given bytes, so a digest computed over body
// describes the stored object.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// UploadFile reads localPath and uploads its content under key.
func UploadFile(ctx context.Context, u Uploader, key, localPath, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return u.Upload(ctx, key, data, contentType)
}

// Backend names accepted by New
const (
	BackendFS     = "fs"
	BackendOCI    = "oci"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config selects and configures a backend
type Config struct {
	Backend string
	FS      FSOptions
	OCI     OCIOptions
	S3      S3Options
}

// New builds the Uploader described by cfg.
func New(ctx context.Context, cfg Config) (Uploader, error) {
	switch cfg.Backend {
	case BackendFS, "":
		return NewFSStore(cfg.FS)
	case BackendOCI:
		return NewOCIStore(cfg.OCI)
	case BackendS3:
		return NewS3Store(ctx, cfg.S3)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.New(errors.ErrCodePublishStoreConfig, fmt.Sprintf("unknown store backend %q", cfg.Backend)).
			WithSuggestion("Use one of: fs, oci, s3, memory")
	}
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return ContentTypeDefault
	}
	return ct
}

// Object is an uploaded object held by MemoryStore
type Object struct {
	Key         string
	Body        []byte
	ContentType string
}

// MemoryStore keeps uploads in memory. Dry runs and tests use it.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
	order   []string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

// Upload implements Uploader
func (m *MemoryStore) Upload(_ context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		m.order = append(m.order, key)
	}
	m.objects[key] = Object{
		Key:         key,
		Body:        append([]byte(nil), body...),
		ContentType: contentTypeOrDefault(contentType),
	}
	return nil
}

// Get returns the object stored under key
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys returns the stored keys in first-upload order
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// SortedKeys returns the stored keys sorted
func (m *MemoryStore) SortedKeys() []string {
	keys := m.Keys()
	sort.Strings(keys)
	return keys
}

var (
	_ Uploader = (*MemoryStore)(nil)
	_ Uploader = (*FSStore)(nil)
	_ Uploader = (*OCIStore)(nil)
	_ Uploader = (*S3Store)(nil)
)
