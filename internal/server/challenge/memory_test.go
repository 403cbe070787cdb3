package challenge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

func TestMemoryRegistry_PutGetRemove(t *testing.T) {
	r := NewMemoryRegistry(time.Minute)
	defer r.Close()
	ctx := context.Background()

	_, err := r.Get(ctx, 555)
	assert.ErrorIs(t, err, shared.ErrorNotFound)

	require.NoError(t, r.Put(ctx, 555, "challenge-1"))

	got, err := r.Get(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "challenge-1", got)

	// repeated Put replaces, latest challenge wins
	require.NoError(t, r.Put(ctx, 555, "challenge-2"))
	got, err = r.Get(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "challenge-2", got)

	require.NoError(t, r.Remove(ctx, 555))
	_, err = r.Get(ctx, 555)
	assert.ErrorIs(t, err, shared.ErrorNotFound)
}

func TestMemoryRegistry_Expiry(t *testing.T) {
	r := NewMemoryRegistry(20 * time.Millisecond)
	defer r.Close()
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 555, "challenge"))
	time.Sleep(40 * time.Millisecond)

	_, err := r.Get(ctx, 555)
	assert.ErrorIs(t, err, shared.ErrorNotFound)

	ok, err := r.CompareAndRemove(ctx, 555, "challenge")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be consumable")
}

func TestMemoryRegistry_CompareAndRemove(t *testing.T) {
	r := NewMemoryRegistry(time.Minute)
	defer r.Close()
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 555, "challenge"))

	ok, err := r.CompareAndRemove(ctx, 555, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.CompareAndRemove(ctx, 555, "challenge")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CompareAndRemove(ctx, 555, "challenge")
	require.NoError(t, err)
	assert.False(t, ok, "a challenge can be consumed only once")
}

func TestMemoryRegistry_SingleConsumer(t *testing.T) {
	r := NewMemoryRegistry(time.Minute)
	defer r.Close()
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 555, "challenge"))

	const attempts = 32
	var wg sync.WaitGroup
	var wins int32
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.CompareAndRemove(ctx, 555, "challenge")
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, int32(1), wins, "exactly one concurrent caller may consume the challenge")
}
