package snapshot

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPushPopLIFO(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Push("b1", []byte("one"), 10))
	require.NoError(t, store.Push("b1", []byte("two"), 10))
	require.NoError(t, store.Push("b1", []byte("three"), 10))

	for _, want := range []string{"three", "two", "one"} {
		payload, ok, err := store.Pop("b1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(payload))
	}

	_, ok, err := store.Pop("b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPushEvictsOldest(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 7; i++ {
		require.NoError(t, store.Push("b1", []byte(fmt.Sprintf("p%d", i)), 5))
	}

	n, err := store.Len("b1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Oldest two were evicted; the newest five remain in LIFO order.
	for want := 6; want >= 2; want-- {
		payload, ok, err := store.Pop("b1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("p%d", want), string(payload))
	}
}

func TestBoardsAreIsolated(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Push("b1", []byte("alpha"), 10))
	require.NoError(t, store.Push("b2", []byte("beta"), 10))

	payload, ok, err := store.Pop("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", string(payload))

	n, err := store.Len("b2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSizeCountsAllBoards(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Push("b1", []byte("a"), 10))
	require.NoError(t, store.Push("b1", []byte("b"), 10))
	require.NoError(t, store.Push("b2", []byte("c"), 10))

	total, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestPopOnUnknownBoard(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Pop("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Len("missing")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
