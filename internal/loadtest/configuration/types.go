package configuration

import (
	"github.com/logsink-io/logsink/pkg/pipeline"
)

type LoadTestConfiguration struct {
	// DSN of the backend generated records are delivered to.
	// noop:// measures pipeline overhead without a real backend.
	DSN string
	// Stamped on every generated record, for shared-table deployments
	ServiceName string
	// Metrics configuration
	MetricsPort uint16
	// Pipeline tuning
	Pipeline pipeline.Config
	// Shape of the generated load
	Load LoadConfig
}

type LoadConfig struct {
	// Total number of records generated across all producers
	Records int
	// Number of concurrent producer goroutines
	Producers int
	// Number of structured fields attached to each record
	FieldsPerRecord int
	// Level stamped on generated records, e.g. ERROR
	Level string
	// Target stamped on generated records
	Target string
}
