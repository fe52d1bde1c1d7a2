package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrInvalidTTL is returned when a cache is constructed or an entry is stored
// with a TTL that is not strictly positive.
var ErrInvalidTTL = errors.New("ttl must be a positive duration")

// Stats is a read-only snapshot of a cache's state.
type Stats struct {
	Name        string        `json:"name"`
	Size        int           `json:"size"`
	DefaultTTL  time.Duration `json:"default_ttl"`
	LastSweepAt time.Time     `json:"last_sweep_at"`
}

// Store is the type-erased view of a Cache used by the sweeper and the
// admin surface, which manage a heterogeneous set of named instances.
type Store interface {
	Name() string
	Sweep() int
	Clear()
	Stats() Stats
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe key/value store with per-entry expiry. All
// operations take a single mutex for their full duration; no I/O happens
// while the lock is held.
type Cache[V any] struct {
	mu         sync.Mutex
	name       string
	defaultTTL time.Duration
	entries    map[string]entry[V]
	lastSweep  time.Time
	logger     *slog.Logger

	// now is injectable for deterministic expiry tests.
	now func() time.Time
}

// New creates a named cache whose Set calls default to defaultTTL.
// A non-positive default TTL is a configuration error.
func New[V any](name string, defaultTTL time.Duration, logger *slog.Logger) (*Cache[V], error) {
	if defaultTTL <= 0 {
		return nil, fmt.Errorf("%w: cache %q configured with default ttl %v", ErrInvalidTTL, name, defaultTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[V]{
		name:       name,
		defaultTTL: defaultTTL,
		entries:    make(map[string]entry[V]),
		logger:     logger.With("cache", name),
		now:        time.Now,
	}, nil
}

// Name returns the cache's configured name.
func (c *Cache[V]) Name() string {
	return c.name
}

// Get returns the value stored under key and true on a hit. An entry whose
// expiry has passed is deleted and reported as a miss; expired or missing
// keys are never an error.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's default TTL, overwriting any
// existing entry.
func (c *Cache[V]) Set(key string, value V) {
	// The default TTL is validated at construction, so this cannot fail.
	_ = c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL. The TTL must be
// strictly positive.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: got %v for key %q", ErrInvalidTTL, ttl, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes the entry for key if present. Deleting an absent key is
// not an error.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of entries currently stored, including any that
// have expired but not yet been swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns the number removed. It runs
// on the sweeper's schedule, independent of Get.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.lastSweep = now
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Info("swept expired cache entries", "removed", removed)
	}
	return removed
}

// Stats returns a snapshot of the cache's current state.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:        c.name,
		Size:        len(c.entries),
		DefaultTTL:  c.defaultTTL,
		LastSweepAt: c.lastSweep,
	}
}
