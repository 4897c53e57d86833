package gojabind

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleStoreBasics(t *testing.T) {
	hs := newHandleStore()
	require.Zero(t, hs.count())

	h := &Handle{payload: "data"}
	id := hs.store(h)
	require.Equal(t, id, h.ID())
	require.Greater(t, id, int32(0))
	require.Equal(t, 1, hs.count())

	loaded, ok := hs.load(id)
	require.True(t, ok)
	require.Same(t, h, loaded)
	require.Equal(t, "data", loaded.Payload())

	_, ok = hs.load(id + 1)
	require.False(t, ok)
}

func TestHandleStoreUniqueIDs(t *testing.T) {
	hs := newHandleStore()
	seen := make(map[int32]bool)
	for i := 0; i < 1000; i++ {
		id := hs.store(&Handle{})
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Equal(t, 1000, hs.count())
}

func TestHandleStoreReleaseRunsFinalizerOnce(t *testing.T) {
	finalized := 0
	cls := &Class{
		name:      "Tracked",
		finalizer: func(payload interface{}) { finalized++ },
	}
	hs := newHandleStore()
	h := &Handle{class: cls, payload: "resource"}
	id := hs.store(h)

	require.True(t, hs.release(id))
	require.Equal(t, 1, finalized)
	require.Nil(t, h.Payload())

	require.False(t, hs.release(id))
	require.Equal(t, 1, finalized)
	require.Zero(t, hs.count())
}

func TestHandleStoreClear(t *testing.T) {
	finalized := 0
	cls := &Class{
		name:      "Tracked",
		finalizer: func(payload interface{}) { finalized++ },
	}
	hs := newHandleStore()
	for i := 0; i < 5; i++ {
		hs.store(&Handle{class: cls})
	}

	hs.clear()
	require.Equal(t, 5, finalized)
	require.Zero(t, hs.count())

	// Clearing again touches nothing.
	hs.clear()
	require.Equal(t, 5, finalized)
}

func TestHandleStoreConcurrentAccess(t *testing.T) {
	hs := newHandleStore()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := hs.store(&Handle{})
				_, ok := hs.load(id)
				require.True(t, ok)
				require.True(t, hs.release(id))
			}
		}()
	}
	wg.Wait()
	require.Zero(t, hs.count())
}
