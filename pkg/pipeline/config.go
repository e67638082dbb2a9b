package pipeline

import (
	"time"
)

const (
	DefaultQueueCapacity = 1024
	DefaultBatchSize     = 128
	DefaultFlushInterval = time.Second

	MinQueueCapacity = 16
	MinBatchSize     = 1
	MinFlushInterval = 10 * time.Millisecond
)

// Config controls buffering and batching behavior of a pipeline.
//
// Construction never fails on bad values: anything below the documented
// minimum is clamped up and zero values take the defaults, so a pipeline
// built from a partially filled config is always usable.
type Config struct {
	// QueueCapacity is the maximum number of records that can be buffered
	// between producers and the delivery goroutine before new records are
	// dropped.
	QueueCapacity int
	// BatchSize is the number of records sent to the sink in a single batch.
	BatchSize int
	// FlushInterval is the maximum time the pipeline waits before flushing a
	// non-empty batch that has not reached BatchSize.
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueCapacity: DefaultQueueCapacity,
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
	}
}

// normalized returns a copy of c with defaults applied and minimums enforced.
func (c Config) normalized() Config {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.QueueCapacity < MinQueueCapacity {
		c.QueueCapacity = MinQueueCapacity
	}
	if c.BatchSize < MinBatchSize {
		c.BatchSize = MinBatchSize
	}
	if c.FlushInterval < MinFlushInterval {
		c.FlushInterval = MinFlushInterval
	}
	return c
}
