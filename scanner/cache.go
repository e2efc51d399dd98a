package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"dupfinder/logger"

	"github.com/cespare/xxhash/v2"
)

const cacheVersion = 1

type cacheEntry struct {
	Size         uint64 `json:"size"`
	ModifiedDate uint64 `json:"modified_date"`
	Hash         string `json:"hash"`
}

type cacheEnvelope struct {
	Version  int             `json:"version"`
	HashType string          `json:"hash_type"`
	Checksum string          `json:"checksum"`
	Entries  json.RawMessage `json:"entries"`
}

var errCacheChecksum = errors.New("cache checksum mismatch")

// hashCache maps a path to the digest computed for a given size and
// modification time. A nil *hashCache misses every lookup and ignores stores.
type hashCache struct {
	path     string
	hashType string

	mu      sync.Mutex
	entries map[string]cacheEntry
	dirty   bool
}

type hashCaches struct {
	prehash *hashCache
	full    *hashCache
}

func (c hashCaches) save() {
	for _, cache := range []*hashCache{c.prehash, c.full} {
		if err := cache.save(); err != nil {
			logger.Warnf("Failed to save hash cache: %v", err)
		}
	}
}

func (f *Finder) openCaches() hashCaches {
	if !f.params.UseCache {
		return hashCaches{}
	}
	dir := f.cacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logger.Warnf("Hash cache disabled: %v", err)
			return hashCaches{}
		}
		dir = filepath.Join(base, "dupfinder")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warnf("Hash cache disabled: %v", err)
		return hashCaches{}
	}
	hashType := f.params.HashType.String()
	return hashCaches{
		prehash: loadHashCache(cacheFileName(dir, "prehash", hashType), hashType),
		full:    loadHashCache(cacheFileName(dir, "full", hashType), hashType),
	}
}

func cacheFileName(dir, kind, hashType string) string {
	return filepath.Join(dir, fmt.Sprintf("cache_duplicates_%s_%s.json", kind, hashType))
}

func loadHashCache(path, hashType string) *hashCache {
	cache := &hashCache{path: path, hashType: hashType, entries: map[string]cacheEntry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Failed to read hash cache %s: %v", path, err)
		}
		return cache
	}
	entries, err := decodeCache(data, hashType)
	if err != nil {
		logger.Warnf("Ignoring hash cache %s: %v", path, err)
		return cache
	}
	cache.entries = entries
	logger.Debugf("Loaded %d hash cache entries from %s", len(entries), path)
	return cache
}

func decodeCache(data []byte, hashType string) (map[string]cacheEntry, error) {
	var envelope cacheEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid cache format: %w", err)
	}
	if envelope.Version != cacheVersion {
		return nil, fmt.Errorf("unsupported cache version %d", envelope.Version)
	}
	if envelope.HashType != hashType {
		return nil, fmt.Errorf("cache hash type %q does not match %q", envelope.HashType, hashType)
	}
	if envelope.Checksum != checksum(envelope.Entries) {
		return nil, errCacheChecksum
	}
	entries := map[string]cacheEntry{}
	if err := json.Unmarshal(envelope.Entries, &entries); err != nil {
		return nil, fmt.Errorf("invalid cache entries: %w", err)
	}
	return entries, nil
}

func checksum(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

func (c *hashCache) lookup(entry FileEntry) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[entry.Path]
	if !ok || cached.Size != entry.Size || cached.ModifiedDate != entry.ModifiedDate || cached.Hash == "" {
		return "", false
	}
	return cached.Hash, true
}

func (c *hashCache) store(entry FileEntry, hash string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Path] = cacheEntry{Size: entry.Size, ModifiedDate: entry.ModifiedDate, Hash: hash}
	c.dirty = true
}

func (c *hashCache) save() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	entries, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cacheEnvelope{
		Version:  cacheVersion,
		HashType: c.hashType,
		Checksum: checksum(entries),
		Entries:  entries,
	})
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	c.dirty = false
	return nil
}
