package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsPrefix = "logsink_pipeline_"

// Metrics are the prometheus-facing view of the pipeline. They are process
// global: all pipelines in a process share one set of series, which keeps
// registration safe when several pipelines are constructed (tests do this a
// lot). Per-pipeline numbers come from Counters instead.
type Metrics struct {
	recordsSeen      prometheus.Counter
	recordsEnqueued  prometheus.Counter
	recordsDropped   prometheus.Counter
	recordsDelivered prometheus.Counter
	deliveryErrors   prometheus.Counter
	batchSize        prometheus.Histogram
}

var m = newMetrics(metricsPrefix)

func GetMetrics() *Metrics {
	return m
}

func newMetrics(prefix string) *Metrics {
	return &Metrics{
		recordsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "records_seen",
			Help: "Number of records offered to the pipeline",
		}),
		recordsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "records_enqueued",
			Help: "Number of records accepted onto the ingestion queue",
		}),
		recordsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "records_dropped",
			Help: "Number of records dropped because the ingestion queue was full",
		}),
		recordsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "records_delivered",
			Help: "Number of records confirmed delivered to the sink",
		}),
		deliveryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "delivery_errors",
			Help: "Number of failed batch delivery passes",
		}),
		batchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "batch_size",
			Help:    "Size of batches at flush time",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (m *Metrics) RecordSeen()     { m.recordsSeen.Inc() }
func (m *Metrics) RecordEnqueued() { m.recordsEnqueued.Inc() }
func (m *Metrics) RecordDropped()  { m.recordsDropped.Inc() }

func (m *Metrics) RecordDelivered(n int) {
	m.recordsDelivered.Add(float64(n))
}

func (m *Metrics) RecordDeliveryError() {
	m.deliveryErrors.Inc()
}

func (m *Metrics) ObserveBatchSize(n int) {
	m.batchSize.Observe(float64(n))
}
