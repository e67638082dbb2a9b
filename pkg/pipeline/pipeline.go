// Package pipeline implements the buffered, batched shipping of log records
// to a sink.
//
// Many producer goroutines offer records concurrently; exactly one background
// goroutine drains the queue, groups records into batches by size or time,
// and delivers them with retries. The queue is the only state shared between
// producers and the consumer, so the batch itself needs no locking.
//
// Producers never block and never see an error: when the queue is full the
// record is dropped and counted. While a batch is being retried the consumer
// does not drain the queue, so a sustained backend outage eventually fills
// the queue and new records are dropped. That trade (at-least-once delivery
// of accepted batches over liveness) is deliberate.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/logsink-io/logsink/pkg/record"
	"github.com/logsink-io/logsink/pkg/sink"
)

// dropLogInterval rate-limits the "queue full" diagnostic so a sustained
// overload does not flood the process's own logs.
const dropLogInterval = time.Second

// Pipeline owns the ingestion queue and the single delivery goroutine.
type Pipeline struct {
	cfg   Config
	sink  sink.Sink
	queue chan record.Record
	clock clock.Clock

	counters counters
	metrics  *Metrics

	startOnce   sync.Once
	lastDropLog int64 // unix nanos of the last queue-full log line
}

// New creates a pipeline for the given sink. The config is normalized
// (defaults applied, minimums enforced); construction cannot fail. The
// pipeline does not consume anything until Start or Run is called.
func New(s sink.Sink, cfg Config) *Pipeline {
	cfg = cfg.normalized()
	return &Pipeline{
		cfg:     cfg,
		sink:    s,
		queue:   make(chan record.Record, cfg.QueueCapacity),
		clock:   clock.RealClock{},
		metrics: GetMetrics(),
	}
}

// Start launches the background delivery goroutine. It is safe to call more
// than once; only the first call has an effect. The goroutine runs for the
// remainder of the process lifetime: there is no drain on exit, and records
// still buffered when the process terminates are lost.
func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		go p.Run(context.Background())
	})
}

// Offer submits a record for delivery. It never blocks: the record is either
// accepted onto the queue or dropped immediately, with the outcome reflected
// in the counters. Offer is safe for unlimited concurrent callers.
func (p *Pipeline) Offer(rec record.Record) bool {
	atomic.AddUint64(&p.counters.seen, 1)
	p.metrics.RecordSeen()
	select {
	case p.queue <- rec:
		atomic.AddUint64(&p.counters.enqueued, 1)
		p.metrics.RecordEnqueued()
		return true
	default:
		atomic.AddUint64(&p.counters.dropped, 1)
		p.metrics.RecordDropped()
		p.logDrop()
		return false
	}
}

// Counters returns a snapshot of the pipeline's record accounting.
func (p *Pipeline) Counters() Counters {
	return p.counters.snapshot()
}

// Run drains the queue, batches and delivers until ctx is done. Most callers
// want Start; Run exists for hosts that manage their own shutdown context.
// Records buffered but not delivered when ctx ends are lost.
func (p *Pipeline) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"queueCapacity": p.cfg.QueueCapacity,
		"batchSize":     p.cfg.BatchSize,
		"flushInterval": p.cfg.FlushInterval,
	}).Info("log pipeline started")

	batch := make([]record.Record, 0, p.cfg.BatchSize)
	expire := p.clock.After(p.cfg.FlushInterval)
	for {
		select {
		case <-ctx.Done():
			log.Info("log pipeline stopped")
			return
		case rec := <-p.queue:
			batch = append(batch, rec)
			if len(batch) >= p.cfg.BatchSize {
				batch = p.flush(ctx, batch)
				expire = p.clock.After(p.cfg.FlushInterval)
			}
		case <-expire:
			if len(batch) > 0 {
				batch = p.flush(ctx, batch)
			}
			expire = p.clock.After(p.cfg.FlushInterval)
		}
	}
}

// flush attempts delivery of the current batch and returns the cleared batch
// slice for reuse. Delivery only gives up when ctx is cancelled, in which
// case the batch is abandoned (documented process-exit behavior).
func (p *Pipeline) flush(ctx context.Context, batch []record.Record) []record.Record {
	p.metrics.ObserveBatchSize(len(batch))
	if err := p.deliver(ctx, batch); err != nil {
		log.WithError(err).Warnf("abandoning batch of %d records", len(batch))
	}
	return batch[:0]
}

func (p *Pipeline) logDrop() {
	now := p.clock.Now().UnixNano()
	last := atomic.LoadInt64(&p.lastDropLog)
	if now-last < int64(dropLogInterval) {
		return
	}
	if atomic.CompareAndSwapInt64(&p.lastDropLog, last, now) {
		log.Warnf("log queue full, dropping records (%d dropped so far)",
			atomic.LoadUint64(&p.counters.dropped))
	}
}
