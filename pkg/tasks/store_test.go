package tasks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateLookupRemove(t *testing.T) {
	store := newTestStore()

	task := store.Create("alice")
	snap, err := store.Lookup(task.ID())
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Username)
	assert.Equal(t, Pending, snap.Status)
	assert.Equal(t, Counts{}, snap.Counts)
	assert.Equal(t, 1, store.Len())

	live, ok := store.Get(task.ID())
	require.True(t, ok)
	assert.Same(t, task, live)

	assert.True(t, store.Remove(task.ID()))
	assert.False(t, store.Remove(task.ID()))

	_, err = store.Lookup(task.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestStoreIDsAreDistinct(t *testing.T) {
	store := newTestStore()

	var (
		mu  sync.Mutex
		ids = make(map[string]bool)
		wg  sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := store.Create("same-user").ID()
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 100)
	assert.Equal(t, 100, store.Len())
}

func TestCountByStatus(t *testing.T) {
	store := newTestStore()

	store.Create("a")
	running := store.Create("b")
	require.NoError(t, running.Start("Task started."))
	failed := store.Create("c")
	require.NoError(t, failed.Fail("Failed to fetch user data."))

	counts := store.CountByStatus()
	assert.Equal(t, 1, counts[Pending])
	assert.Equal(t, 1, counts[InProgress])
	assert.Equal(t, 1, counts[Failed])
}
