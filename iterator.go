package blockingqueue

import (
	"github.com/chronicleq/blockingqueue/internal/cursor"
	"github.com/chronicleq/blockingqueue/internal/segment"
	"github.com/chronicleq/blockingqueue/internal/slabfile"
)

// Iterator is a read-only, independent traversal of the queue from the
// cursor's position at construction time forward, crossing slab boundaries.
// It never mutates the persisted cursor and never deletes slabs. See
// spec.md §4.5 for its weak-consistency contract.
type Iterator[T any] struct {
	q       *Queue[T]
	slab    int64
	reader  *segment.Reader
	closed  bool
	pending bool // Current() has an unreturned value ready
	curIdx  int32
	curVal  T
}

// newIterator captures the current cursor position and opens the first
// reader.
func newIterator[T any](q *Queue[T]) (*Iterator[T], error) {
	slab, index := cursor.Unpack(q.cursorFile.Load())
	r, err := segment.OpenReader(slabfile.DataPath(q.cfg.storageDirectory, q.cfg.name, slab), slabfile.IndexPath(q.cfg.storageDirectory, q.cfg.name, slab))
	if err != nil {
		return nil, &IOError{Op: "iterator: open reader", Err: err}
	}
	r.SeekToIndex(index)
	return &Iterator[T]{q: q, slab: slab, reader: r}, nil
}

// HasNext reports whether Next would return an element. It may advance the
// iterator across a slab boundary as a side effect of checking.
func (it *Iterator[T]) HasNext() (bool, error) {
	if it.closed {
		return false, nil
	}
	if it.pending {
		return true, nil
	}

	for {
		advanced, err := it.reader.Advance()
		if err != nil {
			return false, &IOError{Op: "iterator: advance", Err: err}
		}
		if advanced {
			idx, data, err := it.reader.Current()
			if err != nil {
				return false, &IOError{Op: "iterator: read current", Err: err}
			}
			value, err := it.q.cfg.deserializer(data)
			if err != nil {
				return false, &CorruptStateError{Slab: it.slab, Index: idx, Err: err}
			}
			it.curIdx, it.curVal, it.pending = idx, value, true
			return true, nil
		}

		state := it.q.loadState()
		if it.slab == state.activeSlabID {
			return false, nil
		}

		// Cross into the next slab; the spec requires this even if that
		// slab does not yet exist on disk at call time, in which case we
		// simply report no further elements rather than erroring.
		if err := it.reader.Close(); err != nil {
			return false, &IOError{Op: "iterator: close reader", Err: err}
		}
		nextSlab := it.slab + 1
		r, err := segment.OpenReader(slabfile.DataPath(it.q.cfg.storageDirectory, it.q.cfg.name, nextSlab), slabfile.IndexPath(it.q.cfg.storageDirectory, it.q.cfg.name, nextSlab))
		if err != nil {
			it.closed = true
			return false, nil
		}
		r.SeekToStart()
		it.reader = r
		it.slab = nextSlab
	}
}

// Next returns the next element, advancing the iterator. Callers must check
// HasNext first; Next returns ErrEmptyQueue if there is nothing left.
func (it *Iterator[T]) Next() (T, error) {
	var zero T
	if !it.pending {
		ok, err := it.HasNext()
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, ErrEmptyQueue
		}
	}
	v := it.curVal
	it.pending = false
	return v, nil
}

// Remove is unsupported: the append-only slab model cannot delete an
// arbitrary element out of order.
func (it *Iterator[T]) Remove() error { return ErrUnsupported }

// Close releases the iterator's reader.
func (it *Iterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.reader.Close()
}
