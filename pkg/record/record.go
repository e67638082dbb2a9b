package record

import (
	"time"
)

// Record is the normalized representation of a single observed log event.
// It is created once at the ingestion boundary and must not be mutated after
// being offered to a pipeline: it flows by value through the queue and is
// shared with the delivery goroutine.
type Record struct {
	// Timestamp is the UTC instant at which the event was observed,
	// not the time at which it was sent to a backend.
	Timestamp time.Time `json:"timestamp"`
	// Level is the severity of the event, e.g. "error".
	Level string `json:"level"`
	// Target identifies the origin of the event, typically the logger or
	// package that produced it.
	Target string `json:"target"`

	ModulePath string `json:"module_path,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`

	// Message is the human-readable event message. The reserved "message"
	// field name is routed here by the ingestion glue and never appears in
	// Fields.
	Message string `json:"message,omitempty"`

	// Fields holds caller-supplied structured context. Keys are unique.
	Fields map[string]Value `json:"fields"`

	// ServiceName disambiguates records when multiple logical services
	// share a single backend table or topic.
	ServiceName string `json:"service_name,omitempty"`
}

// New creates a Record stamped with the current UTC time.
func New(level, target string) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Target:    target,
		Fields:    map[string]Value{},
	}
}
