package blockingqueue_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	bq "github.com/chronicleq/blockingqueue"
)

func TestIteratorHasNextIsIdempotent(t *testing.T) {
	q := openQueue(t)
	_, err := q.Offer("only")
	require.NoError(t, err)

	it, err := q.Iterator()
	require.NoError(t, err)
	defer it.Close()

	ok1, err := it.HasNext()
	require.NoError(t, err)
	require.True(t, ok1)

	ok2, err := it.HasNext()
	require.NoError(t, err)
	require.True(t, ok2, "calling HasNext twice must not consume the pending element")

	v, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "only", v)

	ok3, err := it.HasNext()
	require.NoError(t, err)
	require.False(t, ok3)
}

func TestIteratorNextWithoutHasNextReturnsEmptyQueue(t *testing.T) {
	q := openQueue(t)

	it, err := q.Iterator()
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	require.ErrorIs(t, err, bq.ErrEmptyQueue)
}

// TestIteratorSurvivesConcurrentSlabDeletion exercises spec.md's weak
// consistency guarantee: an iterator opened on a slab the consumer later
// drains and deletes must keep working, because POSIX keeps an unlinked
// file's contents reachable through file descriptors opened before the
// unlink.
func TestIteratorSurvivesConcurrentSlabDeletion(t *testing.T) {
	dir := t.TempDir()
	q, err := bq.Open[string](dir,
		bq.WithName[string]("q"),
		bq.WithSlabBlockSize[string](128),
		bq.WithMessageCapacity[string](32),
	)
	require.NoError(t, err)
	defer q.Close()

	for i := 0; i < 20; i++ {
		_, err := q.Offer(fmt.Sprintf("x%02d", i))
		require.NoError(t, err)
	}

	it, err := q.Iterator()
	require.NoError(t, err)
	defer it.Close()

	// Drain the whole queue through the cursor, forcing at least one
	// rollover-and-delete while the independent iterator above is still
	// holding file descriptors open on the earliest slab.
	for i := 0; i < 20; i++ {
		_, ok, err := q.Poll()
		require.NoError(t, err)
		require.True(t, ok)
	}

	var seen int
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		_, err = it.Next()
		require.NoError(t, err)
		seen++
	}
	require.Equal(t, 20, seen)
}
