package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFilePermissions = 0o640
	cacheDirPermissions  = 0o750

	// snapshotVersion changes whenever the file layout does; older files are discarded.
	snapshotVersion = 1
)

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

// FileStorage persists a MemoryBlockCache between runs. Heights are only
// meaningful on one chain, so a snapshot written for another chain ID loads empty.
type FileStorage struct {
	path    string
	chainID int
}

type snapshot struct {
	Version int                   `json:"version"`
	ChainID int                   `json:"chain_id"`
	SavedAt time.Time             `json:"saved_at"`
	Entries map[string]BlockEntry `json:"entries"`
}

// NewFileStorage stores the block cache of chainID at path.
func NewFileStorage(path string, chainID int) *FileStorage {
	return &FileStorage{path: path, chainID: chainID}
}

// Save replaces the file with the contents of cache. The data goes to a
// sibling temp file first, so an interrupted save leaves the old file intact.
func (s *FileStorage) Save(cache *MemoryBlockCache) error {
	if err := os.MkdirAll(filepath.Dir(s.path), cacheDirPermissions); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	cache.mu.RLock()
	data, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		ChainID: s.chainID,
		SavedAt: time.Now().UTC(),
		Entries: cache.Entries,
	})
	cache.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding block cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Load reads the cache back. A missing file, an older layout or another
// chain's snapshot all yield an empty cache. A corrupt file is moved aside and
// an empty cache is returned along with ErrCorruptCache.
func (s *FileStorage) Load() (*MemoryBlockCache, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewMemoryBlockCache(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		aside := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			return NewMemoryBlockCache(), fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptCache, err, renameErr)
		}
		return NewMemoryBlockCache(), fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, aside)
	}

	cache := NewMemoryBlockCache()
	if snap.Version == snapshotVersion && snap.ChainID == s.chainID {
		for k, e := range snap.Entries {
			cache.Entries[k] = e
		}
	}
	return cache, nil
}

// Delete removes the cache file.
func (s *FileStorage) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Path returns the cache file path.
func (s *FileStorage) Path() string {
	return s.path
}
