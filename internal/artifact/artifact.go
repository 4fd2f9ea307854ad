// Package artifact stores binary outputs (audio, image, video) under a public
// directory and hands back relative URLs. Writes go to a temp file first and
// are renamed into place, so a partially written file is never referenced.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	dir     string
	urlBase string
}

// NewStore creates the output directory if needed. urlBase is the public
// prefix returned in artifact URLs, e.g. "/outputs".
func NewStore(dir, urlBase string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create dir %s: %w", dir, err)
	}
	return &Store{dir: dir, urlBase: urlBase}, nil
}

// Dir returns the on-disk root of the store.
func (s *Store) Dir() string { return s.dir }

// Save writes data atomically and returns its public relative URL.
func (s *Store) Save(prefix, ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%s-%d-%s.%s", prefix, time.Now().UnixMilli(), uuid.New().String()[:8], ext)

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("artifact: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("artifact: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("artifact: close: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("artifact: rename: %w", err)
	}
	return s.urlBase + "/" + name, nil
}

// Resolve maps a URL returned by Save back to its on-disk path.
func (s *Store) Resolve(url string) string {
	return filepath.Join(s.dir, filepath.Base(url))
}
