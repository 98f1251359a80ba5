package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, ttl), mr
}

func TestStoreGetReturnsDefaultsWhenEmpty(t *testing.T) {
	store, _ := newTestStore(t, 14*24*time.Hour)

	cfg, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestStorePutGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, 14*24*time.Hour)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.ClinicName = "Riverside Family Medicine"
	cfg.ClinicPhone = "555-0100"
	cfg.ReminderIntervalsMinutes = []int{1440, 60}

	require.NoError(t, store.Put(ctx, cfg))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestStorePutRejectsInvalidConfig(t *testing.T) {
	store, _ := newTestStore(t, 14*24*time.Hour)

	cfg := DefaultConfig()
	cfg.ReminderIntervalsMinutes = nil

	err := store.Put(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStoreRevertsToDefaultsAfterTTL(t *testing.T) {
	store, mr := newTestStore(t, 14*24*time.Hour)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.ClinicName = "Northgate Clinic"
	require.NoError(t, store.Put(ctx, cfg))

	// Without keepalive the config silently expires back to defaults.
	mr.FastForward(14*24*time.Hour + time.Minute)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)
}

func TestKeepAliveOutlivesTTL(t *testing.T) {
	store, mr := newTestStore(t, 14*24*time.Hour)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.ClinicName = "Northgate Clinic"
	require.NoError(t, store.Put(ctx, cfg))

	// A config written 20 days ago with a 14-day TTL survives as long as
	// the 12-hour keepalive keeps firing.
	for i := 0; i < 40; i++ {
		mr.FastForward(12 * time.Hour)
		require.NoError(t, store.KeepAlive(ctx))
	}

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Northgate Clinic", got.ClinicName)
}

func TestKeepAliveDoesNotResurrectOrWrite(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	// Keepalive against an absent key is a no-op, not an error.
	require.NoError(t, store.KeepAlive(ctx))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)

	// Keepalive never alters stored content, only the TTL.
	cfg := DefaultConfig()
	cfg.ClinicPhone = "555-0199"
	require.NoError(t, store.Put(ctx, cfg))
	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.KeepAlive(ctx))

	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "555-0199", got.ClinicPhone)
}
