package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func TestGetSetJSON(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	t.Run("Miss returns found=false", func(t *testing.T) {
		var out cachedUser
		found, err := GetJSON(ctx, "user:1", &out)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Round trip", func(t *testing.T) {
		in := cachedUser{ID: 1, Name: "alice"}
		require.NoError(t, SetJSON(ctx, "user:1", in, time.Minute))

		var out cachedUser
		found, err := GetJSON(ctx, "user:1", &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, in, out)
	})
}

func TestAside(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	fetchCalls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			fetchCalls++
			*dest = cachedUser{ID: 2, Name: "bob"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey(2), &first, UserTTL, fetch(&first)))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, "bob", first.Name)

	// Second call is served from the cache.
	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey(2), &second, UserTTL, fetch(&second)))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, "bob", second.Name)

	t.Run("Fetch errors propagate and are not cached", func(t *testing.T) {
		sentinel := errors.New("db down")
		var out cachedUser
		err := Aside(ctx, "user:3", &out, UserTTL, func() error { return sentinel })
		assert.ErrorIs(t, err, sentinel)

		found, err := GetJSON(ctx, "user:3", &out)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Invalidate drops the key", func(t *testing.T) {
		InvalidateUser(ctx, 2)
		var out cachedUser
		found, err := GetJSON(ctx, UserKey(2), &out)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestNilClientDegradation(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	var out cachedUser
	found, err := GetJSON(ctx, "user:1", &out)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, SetJSON(ctx, "user:1", cachedUser{ID: 1}, time.Minute))

	// Aside always falls through to fetch.
	calls := 0
	require.NoError(t, Aside(ctx, "user:1", &out, time.Minute, func() error {
		calls++
		out = cachedUser{ID: 1, Name: "alice"}
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "alice", out.Name)
}
