package blockingqueue

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultName            = "chronicleblockingqueue"
	defaultSlabBlockSize   = 64 * 1024 * 1024
	defaultMessageCapacity = 128 * 1024
	unboundedNumberOfSlabs = 0
)

// config collects the recognized options from spec.md §6. It is built up by
// Option funcs exactly as the teacher's walOpt funcs mutate a *WAL.
type config[T any] struct {
	storageDirectory string
	name             string
	maxNumberOfSlabs int
	slabBlockSize    int64
	messageCapacity  int64

	serializer   Serializer[T]
	deserializer Deserializer[T]

	logger   log.Logger
	registry prometheus.Registerer
}

func defaultConfig[T any]() config[T] {
	return config[T]{
		name:             defaultName,
		maxNumberOfSlabs: unboundedNumberOfSlabs,
		slabBlockSize:    defaultSlabBlockSize,
		messageCapacity:  defaultMessageCapacity,
		serializer:       gobSerializer[T],
		deserializer:     gobDeserializer[T],
		logger:           log.NewNopLogger(),
		registry:         prometheus.NewRegistry(),
	}
}

// Option configures a queue at Open time.
type Option[T any] func(*config[T])

// WithName sets the filename prefix for all files of this queue.
func WithName[T any](name string) Option[T] {
	return func(c *config[T]) { c.name = name }
}

// WithMaxNumberOfSlabs bounds the number of concurrently live slabs,
// back-pressuring producers once reached. 0 (the default) means unbounded.
func WithMaxNumberOfSlabs[T any](n int) Option[T] {
	return func(c *config[T]) { c.maxNumberOfSlabs = n }
}

// WithSlabBlockSize sets the data-region byte budget per slab that drives
// rollover.
func WithSlabBlockSize[T any](bytes int64) Option[T] {
	return func(c *config[T]) { c.slabBlockSize = bytes }
}

// WithMessageCapacity sets the maximum byte size of a single excerpt.
func WithMessageCapacity[T any](bytes int64) Option[T] {
	return func(c *config[T]) { c.messageCapacity = bytes }
}

// WithSerializer installs a custom value-to-bytes serializer. If
// WithDeserializer is not also supplied, the default deserializer is used,
// which spec.md §4.4 documents as a condition that surfaces as
// CorruptStateError on read rather than silently misinterpreting bytes.
func WithSerializer[T any](s Serializer[T]) Option[T] {
	return func(c *config[T]) { c.serializer = s }
}

// WithDeserializer installs a custom bytes-to-value deserializer.
func WithDeserializer[T any](d Deserializer[T]) Option[T] {
	return func(c *config[T]) { c.deserializer = d }
}

// WithLogger installs a go-kit logger for lifecycle and error events.
func WithLogger[T any](l log.Logger) Option[T] {
	return func(c *config[T]) { c.logger = l }
}

// WithMetricsRegisterer installs the prometheus registerer metrics are
// registered against. Defaults to a private registry so embedding a queue
// never risks a duplicate-collector panic against the global registry.
func WithMetricsRegisterer[T any](reg prometheus.Registerer) Option[T] {
	return func(c *config[T]) { c.registry = reg }
}

func (c *config[T]) validate() error {
	if c.storageDirectory == "" {
		return ErrInvalidConfiguration
	}
	if c.name == "" {
		return ErrInvalidConfiguration
	}
	if c.maxNumberOfSlabs < 0 {
		return ErrInvalidConfiguration
	}
	if c.slabBlockSize <= 0 || c.messageCapacity <= 0 {
		return ErrInvalidConfiguration
	}
	return nil
}
