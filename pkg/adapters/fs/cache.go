package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ld/ainote/pkg/core"
)

// indexEntry is the parsed form of one note file.
type indexEntry struct {
	Note         core.Note `json:"note"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
}

// index is the persistent cache state.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // relative path, e.g. "users/u1/notes/x.md"
	dirty   bool
	mu      sync.RWMutex
}

// cache keeps parsed notes keyed by path so scans only decode files that
// changed since the last scan.
type cache struct {
	Path  string // {root}/{systemDir}/index.json
	index *index
}

func newCache(root, systemDir string) *cache {
	return &cache{
		Path: filepath.Join(root, systemDir, "index.json"),
		index: &index{
			Version: 1,
			Entries: make(map[string]*indexEntry),
		},
	}
}

// Load reads the cache from disk. A missing or corrupt file yields an empty
// cache.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(data, c.index); err != nil || c.index.Entries == nil {
		c.index.Entries = make(map[string]*indexEntry)
	}
	c.index.dirty = false
	return nil
}

// Save persists the cache if it changed since the last Load or Save.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.Marshal(c.index)
	c.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(c.Path, data); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()
	return nil
}

// Get returns the cached note for relPath if the file is unchanged.
func (c *cache) Get(relPath string, info os.FileInfo) (core.Note, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok || !entry.LastModified.Equal(info.ModTime()) || entry.Size != info.Size() {
		return core.Note{}, false
	}
	return entry.Note.Clone(), true
}

// Set records the parsed note for relPath.
func (c *cache) Set(relPath string, info os.FileInfo, n core.Note) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	c.index.Entries[relPath] = &indexEntry{
		Note:         n.Clone(),
		LastModified: info.ModTime(),
		Size:         info.Size(),
	}
	c.index.dirty = true
}

// Prune drops every entry under prefix that is not in keep.
func (c *cache) Prune(prefix string, keep map[string]bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	for p := range c.index.Entries {
		if len(p) >= len(prefix) && p[:len(prefix)] == prefix && !keep[p] {
			delete(c.index.Entries, p)
			c.index.dirty = true
		}
	}
}

// Delete removes a single entry.
func (c *cache) Delete(relPath string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if _, ok := c.index.Entries[relPath]; ok {
		delete(c.index.Entries, relPath)
		c.index.dirty = true
	}
}

// Len returns the number of cached notes.
func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}
