package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// cacheVersion changes whenever emitted code for the same input changes, so
// outputs from older compilers are rebuilt.
const cacheVersion = Version + "/1"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("driver: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// cacheEntry records what one source file produced.
type cacheEntry struct {
	Hash   string `cbor:"1,keyasint"`
	Output string `cbor:"2,keyasint"`
}

// buildCache maps source paths, relative to the project root, to the hash
// of the source and options they were last compiled from. It is safe for
// concurrent use.
type buildCache struct {
	Version string                 `cbor:"1,keyasint"`
	Entries map[string]*cacheEntry `cbor:"2,keyasint"`

	mu    sync.Mutex
	dirty bool
}

func newBuildCache() *buildCache {
	return &buildCache{Version: cacheVersion, Entries: make(map[string]*cacheEntry)}
}

// loadBuildCache reads the cache at path. A missing, unreadable or outdated
// cache yields an empty one.
func loadBuildCache(path string) *buildCache {
	data, err := os.ReadFile(path)
	if err != nil {
		return newBuildCache()
	}
	var c buildCache
	if err := cbor.Unmarshal(data, &c); err != nil {
		log.Warningf("ignoring unreadable build cache %s: %s", path, err)
		return newBuildCache()
	}
	if c.Version != cacheVersion || c.Entries == nil {
		log.Infof("build cache %s is from another compiler version", path)
		return newBuildCache()
	}
	return &c
}

// fresh reports whether rel was compiled from a source with hash into an
// output that still exists.
func (c *buildCache) fresh(rel, hash string) bool {
	c.mu.Lock()
	entry, ok := c.Entries[rel]
	c.mu.Unlock()
	if !ok || entry.Hash != hash {
		return false
	}
	_, err := os.Stat(entry.Output)
	return err == nil
}

func (c *buildCache) record(rel, hash, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[rel] = &cacheEntry{Hash: hash, Output: output}
	c.dirty = true
}

func (c *buildCache) forget(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Entries[rel]; ok {
		delete(c.Entries, rel)
		c.dirty = true
	}
}

// save writes the cache to path if it changed.
func (c *buildCache) save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	data, err := cborEncMode.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding build cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing build cache: %w", err)
	}
	c.dirty = false
	return nil
}

// sourceHash identifies a compilation: the source text and the options that
// change the output.
func sourceHash(content []byte, opts Options) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(opts.RuntimeModule))
	h.Write([]byte{0})
	h.Write([]byte(opts.Header))
	return hex.EncodeToString(h.Sum(nil))
}
