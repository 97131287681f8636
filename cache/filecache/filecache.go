// Package filecache stores cache entries as JSON files in a directory, one file per key.
// It is suitable for sharing a token between short-lived processes on one host.
package filecache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/cache"
)

// DefaultDirName is the directory created under os.TempDir when no directory is configured.
const DefaultDirName = "authorizer-token"

type record struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is a filesystem backed cache.Cache.
type Store struct {
	dir string
	now func() time.Time
}

var _ cache.Cache = (*Store)(nil)

// New returns a Store rooted at dir, creating it if needed. An empty dir selects
// os.TempDir()/authorizer-token.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), DefaultDirName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("filecache: creating %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the directory holding the cache files.
func (s *Store) Dir() string {
	return s.dir
}

// SetClock overrides the time source; intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Fetch implements cache.Cache. Expired files are removed on read.
func (s *Store) Fetch(_ context.Context, key string) (string, bool, error) {
	path := s.path(key)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filecache: reading entry: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("filecache: decoding entry: %w", err)
	}

	if !s.now().Before(rec.ExpiresAt) {
		_ = os.Remove(path)
		return "", false, nil
	}
	return rec.Value, true, nil
}

// Save implements cache.Cache. The file is written to a temporary name and renamed into place
// so concurrent readers never observe a partial entry.
func (s *Store) Save(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}

	data, err := json.Marshal(record{Value: value, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("filecache: encoding entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("filecache: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filecache: writing entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filecache: closing entry: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("filecache: committing entry: %w", err)
	}
	return nil
}

func (s *Store) path(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
