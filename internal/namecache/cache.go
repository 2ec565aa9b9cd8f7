package namecache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"flashbulb/internal/logging"
)

// Status records whether an entry carries a usable name.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusPending  Status = "pending"
)

// Entry is one cached author identity.
type Entry struct {
	NSID      string    `json:"nsid"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolved reports whether the entry carries a display name.
func (e Entry) Resolved() bool {
	return e.Status == StatusResolved && strings.TrimSpace(e.Name) != ""
}

// Cache provides thread-safe access to the author name cache.
type Cache struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
}

// Load reads the cache at path. A missing file yields an empty cache. A file
// that cannot be parsed is moved aside to path+".corrupt" and an empty cache is
// returned so the next save does not destroy it. An empty path produces an
// in-memory cache whose Save is a no-op.
func Load(path string, logger *slog.Logger) (*Cache, error) {
	c := New(path, logger)
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read name cache: %w", err)
	}

	entries, err := decode(data)
	if err != nil {
		aside := path + ".corrupt"
		if renameErr := os.Rename(path, aside); renameErr != nil {
			return nil, fmt.Errorf("parse name cache: %w (move aside: %v)", err, renameErr)
		}
		logging.WarnWithContext(c.logger, "name cache unreadable; starting empty", "namecache_corrupt",
			logging.String("path", path),
			logging.String("moved_to", aside),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the moved file and merge it back with flashbulb names set"),
			logging.String(logging.FieldImpact, "previously resolved authors will be looked up again"),
		)
		return c, nil
	}

	for _, entry := range entries {
		c.entries[entry.NSID] = entry
	}
	c.logger.Debug("loaded name cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", path))
	return c, nil
}

// New creates an empty cache that will persist to path.
func New(path string, logger *slog.Logger) *Cache {
	return &Cache{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "namecache"),
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// Path returns the file the cache persists to.
func (c *Cache) Path() string {
	return c.path
}

// Lookup returns the entry for nsid if present, resolved or pending.
func (c *Cache) Lookup(nsid string) (Entry, bool) {
	nsid = strings.TrimSpace(nsid)
	if nsid == "" {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[nsid]
	return entry, ok
}

// Name returns the resolved display name for nsid.
func (c *Cache) Name(nsid string) (string, bool) {
	entry, ok := c.Lookup(nsid)
	if !ok || !entry.Resolved() {
		return "", false
	}
	return entry.Name, true
}

// SetName records a resolved display name for nsid.
func (c *Cache) SetName(nsid, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("display name cannot be empty")
	}
	return c.put(Entry{NSID: nsid, Name: name, Status: StatusResolved})
}

// MarkPending records that nsid could not be resolved. An existing resolved
// name is never downgraded.
func (c *Cache) MarkPending(nsid string) error {
	if entry, ok := c.Lookup(nsid); ok && entry.Resolved() {
		return nil
	}
	return c.put(Entry{NSID: nsid, Status: StatusPending})
}

func (c *Cache) put(entry Entry) error {
	entry.NSID = strings.TrimSpace(entry.NSID)
	if entry.NSID == "" {
		return errors.New("nsid cannot be empty")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = c.now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.NSID] = entry
	c.dirty = true
	return nil
}

// Remove deletes the entry for nsid.
func (c *Cache) Remove(nsid string) error {
	nsid = strings.TrimSpace(nsid)
	if nsid == "" {
		return errors.New("nsid cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[nsid]; !ok {
		return fmt.Errorf("nsid %q not found in name cache", nsid)
	}
	delete(c.entries, nsid)
	c.dirty = true
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		c.dirty = true
	}
	c.entries = make(map[string]Entry)
}

// List returns all entries sorted by NSID.
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

// Count returns the number of entries and how many of them are pending.
func (c *Cache) Count() (total, pending int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.entries {
		if !entry.Resolved() {
			pending++
		}
	}
	return len(c.entries), pending
}

// Names returns the resolved NSID to name mapping.
func (c *Cache) Names() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for nsid, entry := range c.entries {
		if entry.Resolved() {
			out[nsid] = entry.Name
		}
	}
	return out
}

// Import merges a legacy flat {"nsid": "name"} file into the cache without
// overwriting names already resolved. It returns the number of names added.
func (c *Cache) Import(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read legacy names: %w", err)
	}
	entries, err := decode(data)
	if err != nil {
		return 0, fmt.Errorf("parse legacy names %s: %w", path, err)
	}
	added := 0
	for _, entry := range entries {
		if !entry.Resolved() {
			continue
		}
		if _, ok := c.Name(entry.NSID); ok {
			continue
		}
		if err := c.SetName(entry.NSID, entry.Name); err != nil {
			continue
		}
		added++
	}
	return added, nil
}

// Dirty reports whether the cache changed since it was loaded or last saved.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Save writes the cache to disk atomically via a temp file and rename.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal name cache: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create name cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	c.dirty = false
	c.logger.Debug("saved name cache", logging.Int("entry_count", len(c.entries)), logging.String("path", c.path))
	return nil
}

func (c *Cache) sortedLocked() []Entry {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].NSID < entries[j].NSID })
	return entries
}

// decode accepts either the list form or the legacy flat object.
func decode(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var flat map[string]string
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(flat))
		for nsid, name := range flat {
			nsid = strings.TrimSpace(nsid)
			if nsid == "" {
				continue
			}
			entry := Entry{NSID: nsid, Name: strings.TrimSpace(name), Status: StatusResolved}
			if entry.Name == "" {
				entry.Status = StatusPending
			}
			entries = append(entries, entry)
		}
		return entries, nil
	}

	var list []Entry
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	entries := list[:0]
	for _, entry := range list {
		entry.NSID = strings.TrimSpace(entry.NSID)
		if entry.NSID == "" {
			continue
		}
		if entry.Status == "" {
			entry.Status = StatusResolved
		}
		if entry.Status == StatusResolved && strings.TrimSpace(entry.Name) == "" {
			entry.Status = StatusPending
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
