package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the durable form of one cached value. Each entry is written as
// an independent JSON file so a crash mid-write never touches neighbours.
type Entry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// DiskCache persists entries under a directory, one file per key, named
// <key>.json. Keys are expected to be filename-safe fingerprints from a
// Keyer; anything else is rejected. Entries survive process restart.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed and returns the cache.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get retrieves a cached value. Expired and unreadable entries are removed
// as a side effect and reported as misses.
func (c *DiskCache) Get(_ context.Context, key string) ([]byte, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry: self-clean.
		_ = os.Remove(c.path(key))
		return nil, false
	}

	if entry.expired(time.Now()) {
		_ = os.Remove(c.path(key))
		return nil, false
	}

	return entry.Value, true
}

// GetEntry is like Get but returns the full entry with its timestamps.
// Callers use it to surface cache age to users.
func (c *DiskCache) GetEntry(ctx context.Context, key string) (*Entry, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	if entry.expired(time.Now()) {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return &entry, true
}

// Set stores a value with the given TTL, overwriting any existing entry.
// TTL<=0 means don't cache. The entry is written to a temp file and renamed
// into place so readers never observe a partial write.
func (c *DiskCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	now := time.Now()
	entry := Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("cache: create temp entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache: write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache: close entry: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache: chmod entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache: store entry: %w", err)
	}
	return nil
}

// Delete removes a cached value. Idempotent - no error on miss.
func (c *DiskCache) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: delete entry: %w", err)
	}
	return nil
}

// Clear removes entries in bulk and returns how many were removed. With
// expiredOnly it keeps live entries; unreadable files count as expired.
func (c *DiskCache) Clear(ctx context.Context, expiredOnly bool) (int, error) {
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("cache: list entries: %w", err)
	}

	now := time.Now()
	removed := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if expiredOnly {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			var entry Entry
			if err := json.Unmarshal(data, &entry); err == nil && !entry.expired(now) {
				continue
			}
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Len counts the entries currently on disk, including any whose TTL has
// lapsed but which have not been swept yet.
func (c *DiskCache) Len() (int, error) {
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("cache: list entries: %w", err)
	}
	return len(paths), nil
}

// Ensure DiskCache implements Cache
var _ Cache = (*DiskCache)(nil)
