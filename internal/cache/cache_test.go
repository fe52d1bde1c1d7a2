package cache

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestCache(t *testing.T, defaultTTL time.Duration) *Cache[string] {
	t.Helper()
	c, err := New[string]("test", defaultTTL, setupTestLogger())
	require.NoError(t, err)
	return c
}

func TestNewRejectsNonPositiveTTL(t *testing.T) {
	logger := setupTestLogger()

	_, err := New[string]("bad", 0, logger)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = New[string]("bad", -time.Second, logger)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestGetReturnsStoredValueBeforeExpiry(t *testing.T) {
	c := newTestCache(t, time.Hour)

	require.NoError(t, c.SetTTL("k", "v", time.Second))

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestGetMissesAfterExpiry(t *testing.T) {
	c := newTestCache(t, time.Hour)

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.SetTTL("k", "v", time.Second))

	// Advance past the TTL; the entry must be reported as a miss and
	// deleted on read.
	c.now = func() time.Time { return now.Add(2 * time.Second) }

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestGetMissesAfterSleepingPastTTL(t *testing.T) {
	c := newTestCache(t, time.Hour)

	require.NoError(t, c.SetTTL("k", "v", 20*time.Millisecond))

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestSetOverwritesValueAndTTL(t *testing.T) {
	c := newTestCache(t, time.Hour)

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.SetTTL("k", "old", time.Second))

	// The overwrite carries a longer TTL; the entry must survive past the
	// original expiry with the new value.
	require.NoError(t, c.SetTTL("k", "new", time.Minute))
	c.now = func() time.Time { return now.Add(30 * time.Second) }

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestSetTTLRejectsNonPositiveTTL(t *testing.T) {
	c := newTestCache(t, time.Hour)

	err := c.SetTTL("k", "v", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	err = c.SetTTL("k", "v", -time.Minute)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := newTestCache(t, time.Hour)

	c.Set("k", "v")
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)

	// Deleting an absent key is a no-op, not an error.
	c.Delete("k")
	c.Delete("never-existed")
}

func TestClearRemovesAllEntries(t *testing.T) {
	c := newTestCache(t, time.Hour)

	c.Set("a", "1")
	c.Set("b", "2")
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestSweepRemovesOnlyExpiredEntries(t *testing.T) {
	c := newTestCache(t, time.Hour)

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.SetTTL("stale", "v", time.Second))
	require.NoError(t, c.SetTTL("fresh", "v", time.Hour))

	c.now = func() time.Time { return now.Add(time.Minute) }
	removed := c.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestStatsSnapshot(t *testing.T) {
	c := newTestCache(t, 30*time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	stats := c.Stats()
	assert.Equal(t, "test", stats.Name)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 30*time.Minute, stats.DefaultTTL)
	assert.True(t, stats.LastSweepAt.IsZero(), "no sweep has run yet")

	c.Sweep()
	stats = c.Stats()
	assert.False(t, stats.LastSweepAt.IsZero())
}
