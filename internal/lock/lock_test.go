package lock_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronicleq/blockingqueue/internal/lock"
)

func TestAcquireIsExclusive(t *testing.T) {
	dir := t.TempDir()

	l1, err := lock.Acquire(dir, "q")
	require.NoError(t, err)
	defer l1.Release()

	_, err = lock.Acquire(dir, "q")
	require.ErrorIs(t, err, lock.ErrAlreadyLocked)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	l1, err := lock.Acquire(dir, "q")
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := lock.Acquire(dir, "q")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestDistinctNamesDoNotContend(t *testing.T) {
	dir := t.TempDir()

	l1, err := lock.Acquire(dir, "a")
	require.NoError(t, err)
	defer l1.Release()

	l2, err := lock.Acquire(dir, "b")
	require.NoError(t, err)
	defer l2.Release()
}
