// Package assets resolves custom element tags to their module scripts.
//
// A bundler writes a manifest mapping module file names to fingerprinted
// names:
//
//	{
//	  "blog-post.js": "blog-post.3f2a1b9c0d.js"
//	}
//
// Prerendering and the client router look modules up through a Resolver,
// so module preload hints point at files the server may cache forever:
//
//	manifest, _ := assets.Load(os.DirFS("dist"), "build/manifest.json")
//	resolver := assets.NewResolver(manifest, "/build/")
//	resolver.ComponentURL("blog-post") // "/build/blog-post.3f2a1b9c0d.js"
package assets

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"
)

// ModuleExt is the file extension of component modules.
const ModuleExt = ".js"

// Manifest maps module file names to fingerprinted file names. It is safe
// for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Load reads a JSON manifest from fsys.
func Load(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted name for source, or source itself when
// the manifest has no entry.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

// Has reports whether the manifest has an entry for source.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[source]
	return ok
}

// Set adds or updates an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
