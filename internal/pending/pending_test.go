package pending

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}

// ==================== STORE CONTRACT ====================

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("save then take", func(t *testing.T) {
		reg := Registration{Code: "111111", Name: "Ada", Email: "Ada@Example.com", PasswordHash: "h"}
		require.NoError(t, store.Save(ctx, reg))

		got, err := store.Take(ctx, " 111111 ")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "Ada", got.Name)
		assert.Equal(t, "h", got.PasswordHash)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := store.Take(ctx, "000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("take is single use", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, Registration{Code: "444444", Email: "cy@x.io"}))

		_, err := store.Take(ctx, "444444")
		require.NoError(t, err)
		_, err = store.Take(ctx, "444444")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("re-register replaces code", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, Registration{Code: "222222", Email: "bob@x.io"}))
		require.NoError(t, store.Save(ctx, Registration{Code: "333333", Email: "bob@x.io"}))

		_, err := store.Take(ctx, "222222")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.Take(ctx, "333333")
		assert.NoError(t, err)
	})

	t.Run("take then register again", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, Registration{Code: "666666", Email: "dee@x.io"}))
		_, err := store.Take(ctx, "666666")
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, Registration{Code: "777777", Email: "dee@x.io"}))
		got, err := store.Take(ctx, "777777")
		require.NoError(t, err)
		assert.Equal(t, "dee@x.io", got.Email)
	})

	t.Run("racing takes have one winner", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, Registration{Code: "888888", Email: "eve@x.io"}))

		const racers = 10
		var wins, misses atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Take(ctx, "888888")
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, ErrNotFound):
					misses.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(racers-1), misses.Load())
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(DefaultTTL))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Registration{Code: "555555", Email: "d@x.io"}))

	now = now.Add(59 * time.Second)
	_, err := store.Take(ctx, "555555")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, Registration{Code: "565656", Email: "d@x.io"}))
	now = now.Add(time.Minute)
	_, err = store.Take(ctx, "565656")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.byEmail, "expired entries are dropped")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	store, err := NewRedisStore(context.Background(), addr, "", 0, DefaultTTL)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runStoreContract(t, store)
}
