// Package blockingqueue implements a persistent, file-backed blocking FIFO
// queue for inter-process or durable producer/consumer handoff on a single
// host. Elements are serialized to disk in append-only segment files
// ("slabs"); a consumer's read position is maintained atomically in a
// memory-mapped cursor file so progress survives process restarts.
//
// A single producer and a single consumer may operate concurrently without
// additional synchronization; multiple producers or multiple consumers
// require external serialization by the caller. See the package's
// accompanying design notes for the full contract.
package blockingqueue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/chronicleq/blockingqueue/internal/cursor"
	"github.com/chronicleq/blockingqueue/internal/lock"
	"github.com/chronicleq/blockingqueue/internal/metadb"
	"github.com/chronicleq/blockingqueue/internal/segment"
	"github.com/chronicleq/blockingqueue/internal/slabfile"
)

// Queue is a persistent blocking FIFO queue of values of type T.
type Queue[T any] struct {
	cfg config[T]

	cursorFile *cursor.File
	metaDB     *metadb.DB
	dirLock    *lock.Lock
	metrics    *queueMetrics
	logger     log.Logger

	stateVal atomic.Value // *queueState

	// rolloverMu guards everything spec.md §5 requires serialized: the
	// live-slab-count mutation, slab creation/deletion, and the cached
	// appender/tailer pointer swaps that accompany them.
	rolloverMu sync.Mutex

	appender *segment.Writer

	tailer     *segment.Reader
	tailerSlab int64

	closed uint32

	wakeMu sync.Mutex
	wakeCh chan struct{}
}

// Open opens (or creates) a queue rooted at dir. dir must already exist.
func Open[T any](dir string, opts ...Option[T]) (*Queue[T], error) {
	cfg := defaultConfig[T]()
	cfg.storageDirectory = dir
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		return nil, ErrInvalidConfiguration
	}

	dirLock, err := lock.Acquire(dir, cfg.name)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyLocked) {
			return nil, ErrAlreadyOpen
		}
		return nil, &IOError{Op: "open: acquire lock", Err: err}
	}

	q, err := openLocked(dir, cfg, dirLock)
	if err != nil {
		dirLock.Release()
		return nil, err
	}
	return q, nil
}

func openLocked[T any](dir string, cfg config[T], dirLock *lock.Lock) (*Queue[T], error) {
	cursorFile, err := cursor.Open(positionPath(dir, cfg.name))
	if err != nil {
		return nil, &IOError{Op: "open: cursor file", Err: err}
	}

	mdb, err := metadb.Open(metaPath(dir, cfg.name))
	if err != nil {
		cursorFile.Close()
		return nil, &IOError{Op: "open: metadb", Err: err}
	}

	ids, err := slabfile.AllSlabIDs(dir, cfg.name)
	if err != nil {
		cursorFile.Close()
		mdb.Close()
		return nil, &IOError{Op: "open: list slabs", Err: err}
	}

	var appender *segment.Writer
	if len(ids) == 0 {
		appender, err = segment.CreateWriter(slabfile.DataPath(dir, cfg.name, 1), slabfile.IndexPath(dir, cfg.name, 1), cfg.slabBlockSize, cfg.messageCapacity)
		if err != nil {
			cursorFile.Close()
			mdb.Close()
			return nil, &IOError{Op: "open: create initial slab", Err: err}
		}
		ids = []int64{1}
	}

	headID, _ := slabfile.HeadSlabID(ids)
	tailID := slabfile.TailSlabID(ids)

	if cursorFile.Load() == 0 {
		cursorFile.Store(cursor.Pack(headID, -1))
	}
	cursorSlab, _ := cursor.Unpack(cursorFile.Load())

	logger := cfg.logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	// Orphan sweep (spec.md §9): any slab strictly older than the
	// consumer's cursor was left behind by a crash between the cursor
	// update and the file deletion in a previous run.
	live := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id < cursorSlab {
			if err := slabfile.Remove(dir, cfg.name, id); err != nil {
				level.Error(logger).Log("msg", "failed to sweep orphan slab", "slab", id, "err", err)
				continue
			}
			if err := mdb.RecordOrphan(id); err != nil {
				level.Error(logger).Log("msg", "failed to record swept orphan", "slab", id, "err", err)
			}
			level.Debug(logger).Log("msg", "swept orphan slab", "slab", id)
			continue
		}
		live = append(live, id)
	}

	if appender == nil {
		appender, err = segment.OpenWriter(slabfile.DataPath(dir, cfg.name, tailID), slabfile.IndexPath(dir, cfg.name, tailID), cfg.slabBlockSize, cfg.messageCapacity)
		if err != nil {
			cursorFile.Close()
			mdb.Close()
			return nil, &IOError{Op: "open: open active slab for append", Err: err}
		}
	}

	tailer, err := segment.OpenReader(slabfile.DataPath(dir, cfg.name, cursorSlab), slabfile.IndexPath(dir, cfg.name, cursorSlab))
	if err != nil {
		appender.Close()
		cursorFile.Close()
		mdb.Close()
		return nil, &IOError{Op: "open: open tailer", Err: err}
	}
	_, cursorIndex := cursor.Unpack(cursorFile.Load())
	tailer.SeekToIndex(cursorIndex)

	q := &Queue[T]{
		cfg:        cfg,
		cursorFile: cursorFile,
		metaDB:     mdb,
		dirLock:    dirLock,
		metrics:    newQueueMetrics(cfg.registry),
		logger:     logger,
		appender:   appender,
		tailer:     tailer,
		tailerSlab: cursorSlab,
		wakeCh:     make(chan struct{}),
	}
	q.storeState(newQueueState(live))
	q.metrics.liveSlabs.Set(float64(len(live)))
	return q, nil
}

func positionPath(dir, name string) string { return dir + string(os.PathSeparator) + name + ".position" }
func metaPath(dir, name string) string      { return dir + string(os.PathSeparator) + name + ".meta" }

func (q *Queue[T]) loadState() *queueState { return q.stateVal.Load().(*queueState) }
func (q *Queue[T]) storeState(s *queueState) {
	q.stateVal.Store(s)
}

// subscribe returns a channel that is closed the next time state changes.
func (q *Queue[T]) subscribe() <-chan struct{} {
	q.wakeMu.Lock()
	defer q.wakeMu.Unlock()
	return q.wakeCh
}

func (q *Queue[T]) broadcast() {
	q.wakeMu.Lock()
	defer q.wakeMu.Unlock()
	close(q.wakeCh)
	q.wakeCh = make(chan struct{})
}

func (q *Queue[T]) checkClosed() error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrClosed
	}
	return nil
}

func isNilValue[T any](v T) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// ensureTailer returns the cached reader for slab, opening a new one (and
// closing the previous) if the cached reader is for a different slab.
func (q *Queue[T]) ensureTailer(slab int64) (*segment.Reader, error) {
	if q.tailer != nil && q.tailerSlab == slab {
		return q.tailer, nil
	}
	r, err := segment.OpenReader(slabfile.DataPath(q.cfg.storageDirectory, q.cfg.name, slab), slabfile.IndexPath(q.cfg.storageDirectory, q.cfg.name, slab))
	if err != nil {
		return nil, &IOError{Op: "ensure tailer", Err: err}
	}
	if q.tailer != nil {
		if cerr := q.tailer.Close(); cerr != nil {
			level.Error(q.logger).Log("msg", "failed to close previous tailer", "err", cerr)
		}
	}
	q.tailer = r
	q.tailerSlab = slab
	return r, nil
}

// ---- Producer side -------------------------------------------------------

// Offer attempts to append value without blocking. It returns false if the
// active slab is full and max_number_of_slabs has already been reached.
func (q *Queue[T]) Offer(value T) (bool, error) {
	if err := q.checkClosed(); err != nil {
		return false, err
	}
	return q.offerOnce(value)
}

// Add behaves like Offer but reports a full queue as ErrQueueFull.
func (q *Queue[T]) Add(value T) error {
	ok, err := q.Offer(value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQueueFull
	}
	return nil
}

// Put blocks until value is accepted or ctx is done.
func (q *Queue[T]) Put(ctx context.Context, value T) error {
	_, err := q.waitFor(ctx, nil, func() (bool, error) { return q.offerOnce(value) })
	return err
}

// OfferTimeout blocks until value is accepted or timeout elapses, returning
// false (with a nil error) if the deadline passes first.
func (q *Queue[T]) OfferTimeout(ctx context.Context, value T, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	return q.waitFor(ctx, &deadline, func() (bool, error) { return q.offerOnce(value) })
}

func (q *Queue[T]) offerOnce(value T) (bool, error) {
	if isNilValue(value) {
		return false, ErrNullElement
	}

	buf, err := q.appender.StartExcerpt()
	if errors.Is(err, segment.ErrSegmentFull) {
		accepted, rerr := q.rolloverAppender()
		if rerr != nil {
			return false, rerr
		}
		if !accepted {
			return false, nil
		}
		buf, err = q.appender.StartExcerpt()
		if err != nil {
			return false, &IOError{Op: "offer: start excerpt after rollover", Err: err}
		}
	} else if err != nil {
		return false, &IOError{Op: "offer: start excerpt", Err: err}
	}

	if err := q.cfg.serializer(value, buf); err != nil {
		return false, fmt.Errorf("blockingqueue: serialize: %w", err)
	}

	if _, err := q.appender.CommitExcerpt(buf); err != nil {
		if errors.Is(err, segment.ErrMessageTooLarge) {
			return false, err
		}
		return false, &IOError{Op: "offer: commit excerpt", Err: err}
	}

	q.metrics.offersAccepted.Inc()
	q.metrics.bytesAppended.Add(float64(buf.Len()))
	if err := q.metaDB.IncrAppended(); err != nil {
		level.Error(q.logger).Log("msg", "failed to persist append counter", "err", err)
	}
	q.broadcast()
	return true, nil
}

// rolloverAppender allocates a new active slab and switches the cached
// appender to it, unless max_number_of_slabs has already been reached.
func (q *Queue[T]) rolloverAppender() (bool, error) {
	q.rolloverMu.Lock()
	defer q.rolloverMu.Unlock()

	state := q.loadState()
	if q.cfg.maxNumberOfSlabs > 0 && state.liveSlabCount() >= q.cfg.maxNumberOfSlabs {
		q.metrics.offersRejected.Inc()
		return false, nil
	}

	newID := state.activeSlabID + 1
	writer, err := segment.CreateWriter(
		slabfile.DataPath(q.cfg.storageDirectory, q.cfg.name, newID),
		slabfile.IndexPath(q.cfg.storageDirectory, q.cfg.name, newID),
		q.cfg.slabBlockSize, q.cfg.messageCapacity,
	)
	if err != nil {
		return false, &IOError{Op: "rollover: create slab", Err: err}
	}
	if err := q.appender.Close(); err != nil {
		level.Error(q.logger).Log("msg", "failed to close previous appender", "err", err)
	}
	q.appender = writer

	newState := state.withNewActiveSlab(newID)
	q.storeState(newState)
	q.metrics.rollovers.Inc()
	q.metrics.liveSlabs.Set(float64(newState.liveSlabCount()))
	if err := q.metaDB.IncrRollovers(); err != nil {
		level.Error(q.logger).Log("msg", "failed to persist rollover counter", "err", err)
	}
	level.Debug(q.logger).Log("msg", "slab created", "slab", newID)
	return true, nil
}

// ---- Consumer side --------------------------------------------------------

// Poll removes and returns the head element without blocking, reporting ok
// as false if the queue is currently empty.
func (q *Queue[T]) Poll() (value T, ok bool, err error) {
	if err := q.checkClosed(); err != nil {
		var zero T
		return zero, false, err
	}
	return q.pollOnce()
}

// Take blocks until an element is available or ctx is done.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	var result T
	_, err := q.waitFor(ctx, nil, func() (bool, error) {
		v, ok, err := q.pollOnce()
		if ok {
			result = v
		}
		return ok, err
	})
	return result, err
}

// PollTimeout blocks until an element is available or timeout elapses.
func (q *Queue[T]) PollTimeout(ctx context.Context, timeout time.Duration) (value T, ok bool, err error) {
	deadline := time.Now().Add(timeout)
	var result T
	gotIt, err := q.waitFor(ctx, &deadline, func() (bool, error) {
		v, ok, err := q.pollOnce()
		if ok {
			result = v
		}
		return ok, err
	})
	return result, gotIt, err
}

// Peek returns the head element without removing it.
func (q *Queue[T]) Peek() (value T, ok bool, err error) {
	if err := q.checkClosed(); err != nil {
		var zero T
		return zero, false, err
	}
	return q.peekOnce()
}

// Element returns the head element like Peek, but reports ErrEmptyQueue
// instead of ok == false.
func (q *Queue[T]) Element() (T, error) {
	v, ok, err := q.Peek()
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrEmptyQueue
	}
	return v, nil
}

// Remove removes and returns the head element like Poll, but reports
// ErrEmptyQueue instead of ok == false.
func (q *Queue[T]) Remove() (T, error) {
	v, ok, err := q.Poll()
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrEmptyQueue
	}
	return v, nil
}

func (q *Queue[T]) pollOnce() (T, bool, error) {
	var zero T

	cur := q.cursorFile.Load()
	slab, idx := cursor.Unpack(cur)

	reader, err := q.ensureTailer(slab)
	if err != nil {
		return zero, false, err
	}
	reader.SeekToIndex(idx)

	advanced, err := reader.Advance()
	if err != nil {
		return zero, false, &IOError{Op: "poll: advance", Err: err}
	}
	if advanced {
		newIdx, data, err := reader.Current()
		if err != nil {
			return zero, false, &IOError{Op: "poll: read current", Err: err}
		}
		value, derr := q.cfg.deserializer(data)
		if derr != nil {
			return zero, false, &CorruptStateError{Slab: slab, Index: newIdx, Err: derr}
		}
		q.cursorFile.SetIndex(newIdx)
		q.metrics.polls.Inc()
		if err := q.metaDB.IncrPolled(); err != nil {
			level.Error(q.logger).Log("msg", "failed to persist poll counter", "err", err)
		}
		q.broadcast()
		return value, true, nil
	}

	if slab == q.loadState().activeSlabID {
		return zero, false, nil
	}
	return q.pollRollover(slab, reader)
}

// pollRollover implements spec.md §4.3's deletion policy: advance the
// cursor to the successor slab, open a tailer on it, delete the drained
// predecessor's files, then attempt one read from the successor.
func (q *Queue[T]) pollRollover(oldSlab int64, oldReader *segment.Reader) (T, bool, error) {
	var zero T

	q.rolloverMu.Lock()
	// Reload the state snapshot now that rolloverMu is held: the producer's
	// rolloverAppender may have published a newer snapshot (e.g. a new
	// active slab) between the caller's pre-lock check and this point, and
	// withoutSlab must be applied on top of that, not a stale pre-lock
	// snapshot, or the producer's update is silently clobbered.
	state := q.loadState()
	newSlab := q.cursorFile.IncrementSlabAndResetIndex()

	newReader, err := segment.OpenReader(
		slabfile.DataPath(q.cfg.storageDirectory, q.cfg.name, newSlab),
		slabfile.IndexPath(q.cfg.storageDirectory, q.cfg.name, newSlab),
	)
	if err != nil {
		q.rolloverMu.Unlock()
		return zero, false, &IOError{Op: "poll: open successor tailer", Err: err}
	}
	newReader.SeekToStart()
	q.tailer = newReader
	q.tailerSlab = newSlab

	if err := oldReader.Close(); err != nil {
		level.Error(q.logger).Log("msg", "failed to close drained tailer", "err", err)
	}
	if err := slabfile.Remove(q.cfg.storageDirectory, q.cfg.name, oldSlab); err != nil {
		q.rolloverMu.Unlock()
		return zero, false, &IOError{Op: "poll: remove drained slab", Err: err}
	}

	newState := state.withoutSlab(oldSlab)
	q.storeState(newState)
	q.metrics.slabDeletions.Inc()
	q.metrics.liveSlabs.Set(float64(newState.liveSlabCount()))
	if err := q.metaDB.IncrDeletions(); err != nil {
		level.Error(q.logger).Log("msg", "failed to persist deletion counter", "err", err)
	}
	q.rolloverMu.Unlock()

	level.Debug(q.logger).Log("msg", "slab deleted", "slab", oldSlab)
	q.broadcast()

	advanced, err := newReader.Advance()
	if err != nil {
		return zero, false, &IOError{Op: "poll: advance successor", Err: err}
	}
	if !advanced {
		return zero, false, nil
	}
	newIdx, data, err := newReader.Current()
	if err != nil {
		return zero, false, &IOError{Op: "poll: read successor current", Err: err}
	}
	value, derr := q.cfg.deserializer(data)
	if derr != nil {
		return zero, false, &CorruptStateError{Slab: newSlab, Index: newIdx, Err: derr}
	}
	q.cursorFile.SetIndex(newIdx)
	q.metrics.polls.Inc()
	if err := q.metaDB.IncrPolled(); err != nil {
		level.Error(q.logger).Log("msg", "failed to persist poll counter", "err", err)
	}
	return value, true, nil
}

func (q *Queue[T]) peekOnce() (T, bool, error) {
	var zero T

	cur := q.cursorFile.Load()
	slab, idx := cursor.Unpack(cur)

	reader, err := q.ensureTailer(slab)
	if err != nil {
		return zero, false, err
	}
	reader.SeekToIndex(idx)

	advanced, err := reader.Advance()
	if err != nil {
		return zero, false, &IOError{Op: "peek: advance", Err: err}
	}
	if advanced {
		newIdx, data, err := reader.Current()
		if err != nil {
			return zero, false, &IOError{Op: "peek: read current", Err: err}
		}
		value, derr := q.cfg.deserializer(data)
		if derr != nil {
			return zero, false, &CorruptStateError{Slab: slab, Index: newIdx, Err: derr}
		}
		q.metrics.peeks.Inc()
		return value, true, nil
	}

	state := q.loadState()
	if slab == state.activeSlabID {
		return zero, false, nil
	}

	nextSlab := slab + 1
	tmp, err := segment.OpenReader(
		slabfile.DataPath(q.cfg.storageDirectory, q.cfg.name, nextSlab),
		slabfile.IndexPath(q.cfg.storageDirectory, q.cfg.name, nextSlab),
	)
	if err != nil {
		return zero, false, &IOError{Op: "peek: open successor", Err: err}
	}
	defer tmp.Close()
	tmp.SeekToStart()

	advanced2, err := tmp.Advance()
	if err != nil {
		return zero, false, &IOError{Op: "peek: advance successor", Err: err}
	}
	if !advanced2 {
		return zero, false, nil
	}
	_, data, err := tmp.Current()
	if err != nil {
		return zero, false, &IOError{Op: "peek: read successor current", Err: err}
	}
	value, derr := q.cfg.deserializer(data)
	if derr != nil {
		return zero, false, &CorruptStateError{Slab: nextSlab, Index: 0, Err: derr}
	}
	q.metrics.peeks.Inc()
	return value, true, nil
}

// waitFor retries attempt until it reports true, ctx is done, or deadline
// (if non-nil) elapses. It favors waking on q.broadcast over busy-spinning,
// per spec.md §5's preference, while still bounding cancellation latency.
func (q *Queue[T]) waitFor(ctx context.Context, deadline *time.Time, attempt func() (bool, error)) (bool, error) {
	start := time.Now()
	waited := false
	defer func() {
		if waited {
			q.metrics.blockedWait.Observe(time.Since(start).Seconds())
		}
	}()

	for {
		if err := q.checkClosed(); err != nil {
			return false, err
		}

		// Subscribe before attempting: any broadcast that lands between
		// this point and the select below still wakes us, even if it
		// races with (or immediately follows) attempt() observing a
		// not-yet-ready state.
		ch := q.subscribe()

		ok, err := attempt()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		waited = true

		var timerC <-chan time.Time
		var timer *time.Timer
		if deadline != nil {
			remaining := time.Until(*deadline)
			if remaining <= 0 {
				return false, nil
			}
			timer = time.NewTimer(remaining)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return false, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case <-ch:
			if timer != nil {
				timer.Stop()
			}
			continue
		case <-timerC:
			return false, nil
		}
	}
}

// ---- Bulk / inspection operations -----------------------------------------

// DrainTo polls up to maxElements elements (or until the queue is observed
// empty) and hands each to dst, returning the number transferred. dst must
// not be q itself.
func (q *Queue[T]) DrainTo(dst *Queue[T], maxElements int) (int, error) {
	if dst == q {
		return 0, fmt.Errorf("blockingqueue: drainTo: sink must not be the source queue")
	}
	n := 0
	for n < maxElements {
		v, ok, err := q.Poll()
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		if err := dst.Add(v); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Size counts the elements currently in the queue by constructing an
// iterator and counting. O(N); spec.md §4.3 documents this as expensive by
// design since slab-level counts are not persisted.
func (q *Queue[T]) Size() (int, error) {
	it, err := q.Iterator()
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for {
		ok, err := it.HasNext()
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		if _, err := it.Next(); err != nil {
			return n, err
		}
		n++
	}
}

// Contains reports whether value is present, using eq for equality.
func (q *Queue[T]) Contains(value T, eq func(a, b T) bool) (bool, error) {
	it, err := q.Iterator()
	if err != nil {
		return false, err
	}
	defer it.Close()

	for {
		ok, err := it.HasNext()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		v, err := it.Next()
		if err != nil {
			return false, err
		}
		if eq(v, value) {
			return true, nil
		}
	}
}

// ContainsAll reports whether every value in values is present.
func (q *Queue[T]) ContainsAll(values []T, eq func(a, b T) bool) (bool, error) {
	for _, v := range values {
		ok, err := q.Contains(v, eq)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// RemainingCapacity reports math.MaxInt: the implementation is bounded by
// slab count, not element count, so there is no meaningful finite capacity
// to report.
func (q *Queue[T]) RemainingCapacity() int { return math.MaxInt }

// ToSlice returns a snapshot of every currently queued element, in order.
func (q *Queue[T]) ToSlice() ([]T, error) {
	it, err := q.Iterator()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []T
	for {
		ok, err := it.HasNext()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		v, err := it.Next()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// Iterator returns a read-only traversal from the current cursor position
// forward. See the Iterator type for its weak-consistency contract.
func (q *Queue[T]) Iterator() (*Iterator[T], error) {
	if err := q.checkClosed(); err != nil {
		return nil, err
	}
	return newIterator(q)
}

// Stats returns the lifetime counters persisted in the metadata sidecar.
func (q *Queue[T]) Stats() (metadb.Stats, error) {
	return q.metaDB.Load()
}

// ---- Unsupported Collection mutators ---------------------------------------

// RemoveValue, RemoveAll, RetainAll, and Clear all report ErrUnsupported:
// the append-only slab model has no way to delete an element out of order.
func (q *Queue[T]) RemoveValue(T) error { return ErrUnsupported }
func (q *Queue[T]) RemoveAll([]T) error { return ErrUnsupported }
func (q *Queue[T]) RetainAll([]T) error { return ErrUnsupported }
func (q *Queue[T]) Clear() error        { return ErrUnsupported }

// Close releases the cached tailer, cached appender, cursor mapping,
// metadata database, and directory lock. Close is idempotent; behavior of
// other methods after Close is undefined beyond returning ErrClosed.
func (q *Queue[T]) Close() error {
	if !atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		return nil
	}

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	note(q.tailer.Close())
	note(q.appender.Close())
	note(q.cursorFile.Close())
	note(q.metaDB.Close())
	note(q.dirLock.Release())

	// Wake any Put/Take/OfferTimeout/PollTimeout blocked in waitFor's select
	// so they observe checkClosed on their next loop iteration instead of
	// hanging until their context or deadline fires.
	q.broadcast()
	return firstErr
}
