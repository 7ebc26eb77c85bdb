package slabfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronicleq/blockingqueue/internal/slabfile"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestAllSlabIDsSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	touch(t, slabfile.IndexPath(dir, "q", 3))
	touch(t, slabfile.IndexPath(dir, "q", 1))
	touch(t, slabfile.IndexPath(dir, "q", 2))
	touch(t, slabfile.IndexPath(dir, "other", 9))
	touch(t, filepath.Join(dir, "q.meta"))

	ids, err := slabfile.AllSlabIDs(dir, "q")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids)
}

func TestHeadAndTailSlabID(t *testing.T) {
	_, ok := slabfile.HeadSlabID(nil)
	require.False(t, ok)
	require.EqualValues(t, 0, slabfile.TailSlabID(nil))

	ids := []int64{2, 5, 9}
	head, ok := slabfile.HeadSlabID(ids)
	require.True(t, ok)
	require.EqualValues(t, 2, head)
	require.EqualValues(t, 9, slabfile.TailSlabID(ids))
}

func TestParseSlabIDRejectsOtherNames(t *testing.T) {
	id, ok := slabfile.ParseSlabID("q-12.index", "q")
	require.True(t, ok)
	require.EqualValues(t, 12, id)

	_, ok = slabfile.ParseSlabID("other-12.index", "q")
	require.False(t, ok)

	_, ok = slabfile.ParseSlabID("q-12.data", "q")
	require.False(t, ok, "data files are not matched by the index pattern")
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	touch(t, slabfile.IndexPath(dir, "q", 1))
	touch(t, slabfile.DataPath(dir, "q", 1))

	require.NoError(t, slabfile.Remove(dir, "q", 1))
	require.NoError(t, slabfile.Remove(dir, "q", 1), "removing an already-removed slab must not error")

	_, err := os.Stat(slabfile.IndexPath(dir, "q", 1))
	require.True(t, os.IsNotExist(err))
}
