package cursor_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronicleq/blockingqueue/internal/cursor"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	slab, index := cursor.Unpack(cursor.Pack(7, -1))
	require.EqualValues(t, 7, slab)
	require.EqualValues(t, -1, index)

	slab, index = cursor.Unpack(cursor.Pack(0, 0))
	require.EqualValues(t, 0, slab)
	require.EqualValues(t, 0, index)
}

func TestFreshFileReadsAsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.position")
	f, err := cursor.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.EqualValues(t, 0, f.Load())
}

func TestSetSlabAndSetIndexPreserveTheOtherField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.position")
	f, err := cursor.Open(path)
	require.NoError(t, err)
	defer f.Close()

	f.Store(cursor.Pack(3, 5))
	f.SetIndex(9)
	require.EqualValues(t, 3, f.Slab())
	require.EqualValues(t, 9, f.Index())

	f.SetSlab(4)
	require.EqualValues(t, 4, f.Slab())
	require.EqualValues(t, 9, f.Index())
}

func TestIncrementSlabAndResetIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.position")
	f, err := cursor.Open(path)
	require.NoError(t, err)
	defer f.Close()

	f.Store(cursor.Pack(1, 41))
	newSlab := f.IncrementSlabAndResetIndex()
	require.EqualValues(t, 2, newSlab)
	require.EqualValues(t, 2, f.Slab())
	require.EqualValues(t, -1, f.Index())
}

func TestMappingIsSharedAcrossTwoHandlesToSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.position")
	a, err := cursor.Open(path)
	require.NoError(t, err)
	defer a.Close()

	b, err := cursor.Open(path)
	require.NoError(t, err)
	defer b.Close()

	a.Store(cursor.Pack(9, 2))
	require.EqualValues(t, cursor.Pack(9, 2), b.Load(), "two mappings of the same file must observe the same shared memory")
}

func TestSetIndexIsRaceSafeUnderConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.position")
	f, err := cursor.Open(path)
	require.NoError(t, err)
	defer f.Close()

	f.Store(cursor.Pack(1, -1))

	var wg sync.WaitGroup
	for i := int32(0); i < 100; i++ {
		wg.Add(1)
		go func(idx int32) {
			defer wg.Done()
			f.SetIndex(idx)
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, f.Slab(), "concurrent SetIndex calls must never perturb the slab half of the word")
}
