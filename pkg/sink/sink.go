// Package sink defines the delivery contract between the pipeline and the
// concrete backends. Implementations translate a normalized record into a
// single vendor protocol call; buffering, batching and retry all live in the
// pipeline, never here.
package sink

import (
	"context"

	"github.com/logsink-io/logsink/pkg/record"
)

// Sink receives normalized records from the delivery engine. Send must be
// safe to invoke repeatedly with the same record: the pipeline retries whole
// batches, so a sink sees duplicates after partial failures and must either
// deduplicate or tolerate duplicate rows. Implementations are expected to
// bound their own I/O so a stuck backend call cannot stall delivery beyond
// the client's network timeout.
type Sink interface {
	Send(ctx context.Context, rec record.Record) error
}

// Flusher is optionally implemented by sinks that buffer internally. The
// delivery engine invokes Flush after each fully successful batch pass;
// sinks that do not implement it are treated as always flushed.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Flush flushes s if it implements Flusher, and succeeds otherwise.
func Flush(ctx context.Context, s Sink) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}
