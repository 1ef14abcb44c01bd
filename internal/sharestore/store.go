// Package sharestore persists a guardian's key material to disk.
//
// One JSON file per share index lives under
// <cache-root>/freenet/guardian-<k>/frost-dkg.json, written via
// write-to-temp-then-rename so a concurrent reader never observes a
// truncated file.
package sharestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frostfed/guardian/internal/frost"
)

// Persisted is the on-disk unit: a guardian's KeyPackage alongside the
// PublicKeyPackage it was issued with. The two always travel together.
type Persisted struct {
	KeyPackage       frost.KeyPackage       `json:"key_package"`
	PublicKeyPackage frost.PublicKeyPackage `json:"public_key_package"`
}

// Store persists and loads Persisted key material for one guardian
// process. It is safe for concurrent use; callers typically only call
// Save from a single ceremony-finalize goroutine at a time, but Load
// may run concurrently with a Save in flight (e.g. a health check
// racing a DKG finalize) — that's fine, since Save never mutates the
// final path in place.
type Store struct {
	cacheRoot string
}

// New returns a Store rooted at cacheRoot. If cacheRoot is empty, it
// falls back to os.UserCacheDir(), or /tmp if that's unavailable.
func New(cacheRoot string) *Store {
	if cacheRoot == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cacheRoot = dir
		} else {
			cacheRoot = os.TempDir()
		}
	}
	return &Store{cacheRoot: cacheRoot}
}

// Path returns the file this guardian's share material lives at.
func (s *Store) Path(shareIndex uint16) string {
	return filepath.Join(s.cacheRoot, "freenet", fmt.Sprintf("guardian-%d", shareIndex), "frost-dkg.json")
}

// Load returns the persisted keys for shareIndex, or (Persisted{},
// false) if absent or unparseable. A corrupt file is treated
// identically to an absent one — the next successful ceremony will
// overwrite it.
func (s *Store) Load(shareIndex uint16) (Persisted, bool) {
	data, err := os.ReadFile(s.Path(shareIndex))
	if err != nil {
		return Persisted{}, false
	}
	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return Persisted{}, false
	}
	return p, true
}

// Save atomically persists keys for shareIndex: the parent directory
// is created if needed, the encoded bytes are written to a sibling
// temp file, and that temp file is renamed over the final path. A
// reader calling Load concurrently always sees either the old
// contents or the fully-written new ones, never a partial write.
func (s *Store) Save(shareIndex uint16, keys Persisted) error {
	path := s.Path(shareIndex)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("sharestore: create parent directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("sharestore: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("sharestore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("sharestore: publish: %w", err)
	}
	return nil
}
