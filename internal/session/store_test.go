package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFixtures builds every Store implementation so the behavior suite runs
// against all of them.
func storeFixtures(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  NewRedisStore(NewRedisClient(mr.Addr(), "", 0), time.Hour),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "sid", "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "sid", "k1", "v1"))
			require.NoError(t, store.Put(ctx, "sid", "k2", "v2"))

			got, err := store.Get(ctx, "sid", "k1")
			require.NoError(t, err)
			assert.Equal(t, "v1", got)

			keys, err := store.Keys(ctx, "sid")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"k1", "k2"}, keys)

			// Sessions are isolated.
			_, err = store.Get(ctx, "other", "k1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "sid", "k1", "v1"))
			require.NoError(t, store.Put(ctx, "sid", "k2", "v2"))

			require.NoError(t, store.Delete(ctx, "sid", "k1", "never-existed"))

			_, err := store.Get(ctx, "sid", "k1")
			assert.ErrorIs(t, err, ErrNotFound)
			got, err := store.Get(ctx, "sid", "k2")
			require.NoError(t, err)
			assert.Equal(t, "v2", got)

			// Deleting nothing is a no-op.
			require.NoError(t, store.Delete(ctx, "sid"))
		})
	}
}

func TestStoreClear(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "sid", "k1", "v1"))

			require.NoError(t, store.Clear(ctx, "sid"))

			_, err := store.Get(ctx, "sid", "k1")
			assert.ErrorIs(t, err, ErrNotFound)
			keys, err := store.Keys(ctx, "sid")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(NewRedisClient(mr.Addr(), "", 0), time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sid", "k1", "v1"))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sid", "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreSlidingTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(NewRedisClient(mr.Addr(), "", 0), time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sid", "k1", "v1"))
	mr.FastForward(30 * time.Second)
	// Any write refreshes the whole session's TTL.
	require.NoError(t, store.Put(ctx, "sid", "k2", "v2"))
	mr.FastForward(45 * time.Second)

	got, err := store.Get(ctx, "sid", "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
}

func TestJSONHelpers(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, PutJSON(ctx, store, "sid", "obj", payload{Name: "ann", Count: 3}))

	var got payload
	require.NoError(t, GetJSON(ctx, store, "sid", "obj", &got))
	assert.Equal(t, payload{Name: "ann", Count: 3}, got)

	err := GetJSON(ctx, store, "sid", "missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sid", "k1", "v1"))
	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(ctx, "sid", "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}
