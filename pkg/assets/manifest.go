// Package assets fingerprints static files by content so pages can
// reference them with long-lived cache headers.
//
//	m, _ := assets.Fingerprint(static)
//	res := assets.NewResolver(m, "/static/")
//	res.Asset("portal.js") // "/static/portal.3f2a9c1d.js"
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// hashLen is the number of hex digits kept from the content hash.
const hashLen = 8

// Manifest maps source asset names to their fingerprinted names.
// It is safe for concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
	sources map[string]string
}

func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
		sources: make(map[string]string),
	}
}

// Fingerprint hashes every regular file in fsys. portal.js becomes
// portal.<hash>.js, keeping the directory.
func Fingerprint(fsys fs.FS) (*Manifest, error) {
	m := NewManifest()
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		m.Set(name, hashedName(name, hex.EncodeToString(sum[:])[:hashLen]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func hashedName(name, hash string) string {
	dir, file := path.Split(name)
	ext := path.Ext(file)
	return dir + strings.TrimSuffix(file, ext) + "." + hash + ext
}

// Resolve returns the fingerprinted name of source, or source itself when
// it is unknown.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

// Source maps a fingerprinted name back to the file it was made from.
func (m *Manifest) Source(resolved string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[resolved]
	return src, ok
}

func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[source]; ok {
		delete(m.sources, old)
	}
	m.entries[source] = resolved
	m.sources[resolved] = source
}

func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
