package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"matchain-gc/models"
)

// CachedSession is the on-disk shape of the session cache. The submission
// token is intentionally absent: it is single-use and re-read from the
// portal at startup.
type CachedSession struct {
	Cookies   []models.Cookie `json:"cookies"`
	CSRFToken string          `json:"csrf_token"`
}

// FileCache persists cookies and CSRF token between runs.
type FileCache struct {
	Path string
}

// Load returns nil, nil when no cache exists.
func (c *FileCache) Load() (*CachedSession, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session cache: read %q: %w", c.Path, err)
	}
	var cs CachedSession
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("session cache: decode %q: %w", c.Path, err)
	}
	return &cs, nil
}

// Save writes the cache atomically (temp file + rename).
func (c *FileCache) Save(m models.SessionMaterial) error {
	data, err := json.Marshal(CachedSession{Cookies: m.Cookies, CSRFToken: m.CSRFToken})
	if err != nil {
		return fmt.Errorf("session cache: encode: %w", err)
	}
	dir := filepath.Dir(c.Path)
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("session cache: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session cache: close: %w", err)
	}
	if err := os.Rename(tmpName, c.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session cache: rename: %w", err)
	}
	return nil
}

// Remove deletes the cache file if present.
func (c *FileCache) Remove() error {
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session cache: remove %q: %w", c.Path, err)
	}
	return nil
}
