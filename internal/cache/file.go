package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/deusflow/trafficwatch/internal/fileutil"
	"github.com/deusflow/trafficwatch/internal/logger"
)

// FileStore keeps the whole cache in memory and writes it back as a single
// JSON object on Flush.
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	items    map[string]Entry
	dirty    bool
}

func NewFileStore(filePath string) *FileStore {
	return &FileStore{
		filePath: filePath,
		items:    make(map[string]Entry),
	}
}

// Load reads the cache file. A missing file is an empty cache; an unreadable
// or corrupt file is logged and also treated as empty.
func (fs *FileStore) Load() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("cache file not found, starting empty", "path", fs.filePath)
		return
	}
	if err != nil {
		logger.Warn("cache file unreadable, starting empty", "path", fs.filePath, "error", err)
		return
	}

	items := make(map[string]Entry)
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("cache file corrupt, starting empty", "path", fs.filePath, "error", err)
		return
	}
	fs.items = items
	logger.Info("cache loaded", "path", fs.filePath, "entries", len(items))
}

func (fs *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	e, ok := fs.items[key]
	return e, ok, nil
}

func (fs *FileStore) Put(_ context.Context, key string, e Entry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.items[key] = e
	fs.dirty = true
	return nil
}

// Flush rewrites the cache file atomically when something changed.
func (fs *FileStore) Flush(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.dirty {
		return nil
	}
	data, err := json.MarshalIndent(fs.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := fileutil.WriteAtomic(fs.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", fs.filePath, err)
	}
	fs.dirty = false
	return nil
}

// Len reports the number of cached verdicts.
func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.items)
}
