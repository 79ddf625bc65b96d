package client

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// AnswerCache is local, non-authoritative storage for a player's answers.
type AnswerCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

type MemoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]string)}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok
}

func (c *MemoryCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// FileCache keeps answers in a YAML file so they survive restarts.
type FileCache struct {
	path string
	mu   sync.Mutex
	data map[string]string
}

func OpenFileCache(path string) (*FileCache, error) {
	cache := &FileCache{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &cache.data); err != nil {
		return nil, err
	}
	if cache.data == nil {
		cache.data = make(map[string]string)
	}
	return cache, nil
}

func (c *FileCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	return value, ok
}

func (c *FileCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	if err := c.flush(); err != nil {
		log.Warn().Err(err).Str("path", c.path).Msg("answer cache write failed")
	}
}

func (c *FileCache) flush() error {
	raw, err := yaml.Marshal(c.data)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
