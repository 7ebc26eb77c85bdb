package blockingqueue

import "github.com/benbjohnson/immutable"

// queueState is an immutable snapshot of the set of live slab ids and the
// current active-slab id. A reader who observes a new snapshot also
// observes every write that preceded its publication — the same
// release/acquire discipline the teacher's own *state snapshot gives WAL
// readers via atomic.Value, used here for the "active_slab_id" publication
// spec.md §5 calls out explicitly.
type queueState struct {
	activeSlabID int64
	liveSlabIDs  *immutable.SortedMap[int64, struct{}]
}

func newQueueState(ids []int64) *queueState {
	m := &immutable.SortedMap[int64, struct{}]{}
	active := int64(0)
	for _, id := range ids {
		m = m.Set(id, struct{}{})
		if id > active {
			active = id
		}
	}
	return &queueState{activeSlabID: active, liveSlabIDs: m}
}

// withNewActiveSlab returns a new snapshot with id added as the live active
// slab, used on rollover.
func (s *queueState) withNewActiveSlab(id int64) *queueState {
	return &queueState{
		activeSlabID: id,
		liveSlabIDs:  s.liveSlabIDs.Set(id, struct{}{}),
	}
}

// withoutSlab returns a new snapshot with id no longer counted live, used
// once its files have been deleted. The active slab id is unchanged.
func (s *queueState) withoutSlab(id int64) *queueState {
	return &queueState{
		activeSlabID: s.activeSlabID,
		liveSlabIDs:  s.liveSlabIDs.Delete(id),
	}
}

func (s *queueState) liveSlabCount() int {
	return s.liveSlabIDs.Len()
}
