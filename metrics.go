package blockingqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// queueMetrics mirrors the shape of the teacher's walMetrics: a handful of
// counters plus a gauge, registered once per queue against whatever
// registerer the caller configured.
type queueMetrics struct {
	offersAccepted prometheus.Counter
	offersRejected prometheus.Counter
	polls          prometheus.Counter
	peeks          prometheus.Counter
	rollovers      prometheus.Counter
	slabDeletions  prometheus.Counter
	bytesAppended  prometheus.Counter
	liveSlabs      prometheus.Gauge
	blockedWait    prometheus.Histogram
}

func newQueueMetrics(reg prometheus.Registerer) *queueMetrics {
	return &queueMetrics{
		offersAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "offers_accepted",
			Help: "offers_accepted counts successful Offer/Put calls.",
		}),
		offersRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "offers_rejected",
			Help: "offers_rejected counts Offer calls that returned false because max_number_of_slabs was reached.",
		}),
		polls: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "polls",
			Help: "polls counts successful Poll/Take calls that returned an element.",
		}),
		peeks: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "peeks",
			Help: "peeks counts Peek calls that returned an element.",
		}),
		rollovers: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rollovers",
			Help: "rollovers counts how many times a new active slab was created.",
		}),
		slabDeletions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "slab_deletions",
			Help: "slab_deletions counts how many drained slabs were removed from disk.",
		}),
		bytesAppended: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "entry_bytes_appended",
			Help: "entry_bytes_appended counts the serialized bytes of every committed excerpt.",
		}),
		liveSlabs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "live_slabs",
			Help: "live_slabs is the current number of slabs present on disk.",
		}),
		blockedWait: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "blocked_wait_seconds",
			Help:    "blocked_wait_seconds observes how long Put/Take/OfferTimeout/PollTimeout spent waiting before succeeding or giving up.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
