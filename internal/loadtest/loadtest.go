package loadtest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/logsink-io/logsink/internal/common"
	"github.com/logsink-io/logsink/internal/common/app"
	"github.com/logsink-io/logsink/internal/loadtest/configuration"
	"github.com/logsink-io/logsink/pkg/backend"
	"github.com/logsink-io/logsink/pkg/pipeline"
	"github.com/logsink-io/logsink/pkg/record"
)

// Run generates records against the configured backend until the requested
// count is reached or a SIGTERM is received, then reports the pipeline
// counters. This is the tool used to size queue capacity and batch settings
// for a deployment.
func Run(config *configuration.LoadTestConfiguration) {
	runID := uuid.New().String()
	log.Infof("Starting load run %s against %s", runID, config.DSN)

	ctx := app.CreateContextWithShutdown()

	s, err := backend.FromDSN(ctx, config.DSN)
	if err != nil {
		log.Fatalf("Could not build sink from DSN: %v", err)
	}
	if closer, ok := s.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.WithError(err).Error("failed to close sink")
			}
		}()
	}

	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	p := pipeline.New(s, config.Pipeline)
	p.Start()

	produce(ctx, p, config, runID)

	// Give the consumer a chance to flush what the producers enqueued.
	// There is no drain on shutdown, so records still queued after the
	// grace period are reported, not delivered.
	grace := 2 * config.Pipeline.FlushInterval
	if grace < time.Second {
		grace = time.Second
	}
	select {
	case <-time.After(grace):
	case <-ctx.Done():
	}

	c := p.Counters()
	log.WithFields(log.Fields{
		"run":      runID,
		"seen":     c.Seen,
		"enqueued": c.Enqueued,
		"dropped":  c.Dropped,
	}).Info("Load run complete")
}

func produce(ctx context.Context, p *pipeline.Pipeline, config *configuration.LoadTestConfiguration, runID string) {
	load := config.Load
	producers := load.Producers
	if producers < 1 {
		producers = 1
	}
	perProducer := load.Records / producers

	wg := sync.WaitGroup{}
	start := time.Now()
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for seq := 0; seq < perProducer; seq++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				p.Offer(makeRecord(load, config.ServiceName, runID, producer, seq))
			}
		}(i)
	}
	wg.Wait()
	log.Infof("Produced %d records in %s", perProducer*producers, time.Since(start))
}

func makeRecord(load configuration.LoadConfig, serviceName, runID string, producer, seq int) record.Record {
	level := load.Level
	if level == "" {
		level = "ERROR"
	}
	target := load.Target
	if target == "" {
		target = "logsink/load"
	}

	rec := record.New(level, target)
	rec.Message = fmt.Sprintf("load record %d from producer %d", seq, producer)
	rec.ServiceName = serviceName
	rec.Fields = map[string]record.Value{
		"run":      record.String(runID),
		"producer": record.Int(int64(producer)),
		"seq":      record.Int(int64(seq)),
	}
	for f := 0; f < load.FieldsPerRecord; f++ {
		rec.Fields[fmt.Sprintf("field_%d", f)] = record.String("payload")
	}
	return rec
}
