package sink

import (
	"context"

	"github.com/logsink-io/logsink/pkg/record"
)

// NoopSink discards every record. Useful for measuring the overhead of the
// pipeline itself without any external I/O, and for tests that don't care
// about persistence.
type NoopSink struct{}

func (NoopSink) Send(_ context.Context, _ record.Record) error {
	return nil
}
