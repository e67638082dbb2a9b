package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/logsink-io/logsink/pkg/record"
	"github.com/logsink-io/logsink/pkg/sink"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// deliver sends the batch to the sink, retrying failed passes with doubling
// backoff until the whole batch succeeds. There is no attempt cap and no
// circuit breaker: a batch is cleared only on confirmed full success, or
// abandoned when ctx is cancelled.
//
// A pass sends records in order and stops at the first failure. The next
// pass resends the entire batch from the start, so records accepted before
// the failure are sent again; sinks must tolerate those duplicates.
func (p *Pipeline) deliver(ctx context.Context, batch []record.Record) error {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := p.sendBatch(ctx, batch)
		if err == nil {
			p.metrics.RecordDelivered(len(batch))
			return nil
		}
		p.metrics.RecordDeliveryError()
		log.WithError(err).Warnf("delivery of %d records failed (attempt %d), retrying in %s",
			len(batch), attempt, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// sendBatch performs a single delivery pass: every record in order, then the
// sink's optional flush. Any error fails the pass.
func (p *Pipeline) sendBatch(ctx context.Context, batch []record.Record) error {
	for i := range batch {
		if err := p.sink.Send(ctx, batch[i]); err != nil {
			return errors.WithMessagef(err, "record %d of %d", i+1, len(batch))
		}
	}
	if err := sink.Flush(ctx, p.sink); err != nil {
		return errors.WithMessage(err, "flushing sink")
	}
	return nil
}
