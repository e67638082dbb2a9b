package pipeline

import (
	"sync/atomic"
)

// Counters is a point-in-time snapshot of a pipeline's record accounting.
// All values increase monotonically for the lifetime of the pipeline and are
// never reset. Seen == Enqueued + Dropped holds for every snapshot.
type Counters struct {
	// Seen counts every call to Offer.
	Seen uint64
	// Enqueued counts records accepted onto the ingestion queue.
	Enqueued uint64
	// Dropped counts records rejected because the queue was at capacity.
	Dropped uint64
}

// counters is the live, atomically updated backing for Counters. Producers
// increment it from many goroutines concurrently; reads tear-free per field,
// which is sufficient for monitoring.
type counters struct {
	seen     uint64
	enqueued uint64
	dropped  uint64
}

func (c *counters) snapshot() Counters {
	return Counters{
		Seen:     atomic.LoadUint64(&c.seen),
		Enqueued: atomic.LoadUint64(&c.enqueued),
		Dropped:  atomic.LoadUint64(&c.dropped),
	}
}
