// Package storage persists finished deliverables outside the job's working area.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"storyreel/config"
	"storyreel/types"
)

// Meta identifies and describes the deliverable being persisted
type Meta struct {
	JobID   string
	Publish types.PublishMeta
}

type Store interface {
	// Persist copies the deliverable to durable storage and returns its location
	Persist(ctx context.Context, localPath string, meta Meta) (string, error)
}

// New selects the configured backend
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStore(cfg.DurableDir), nil
	case "youtube":
		return NewYouTubeStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// LocalStore keeps deliverables in a durable directory
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Persist copies localPath to <dir>/<slug>_<job id><ext> through a temp file
// and a hard link, so a partial copy never appears under the final name and
// a replayed job cannot overwrite an earlier deliverable.
func (s *LocalStore) Persist(ctx context.Context, localPath string, meta Meta) (string, error) {
	if meta.JobID == "" {
		return "", fmt.Errorf("persist: job id is required")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create durable dir: %w", err)
	}

	name := meta.JobID + filepath.Ext(localPath)
	if slug := Slug(meta.Publish.Title); slug != "" {
		name = slug + "_" + name
	}
	dest, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open deliverable: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.dir, ".persist-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	_, err = io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("copy deliverable: %w", err)
	}
	// link rather than rename so an existing deliverable is never replaced
	err = os.Link(tmpName, dest)
	os.Remove(tmpName)
	if os.IsExist(err) {
		return "", fmt.Errorf("deliverable %s already exists", dest)
	}
	if err != nil {
		return "", fmt.Errorf("link deliverable: %w", err)
	}

	log.Printf("[storage] ✅ Persisted %s", dest)
	return dest, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a short file-name-safe string
func Slug(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "-")
	}
	return s
}
