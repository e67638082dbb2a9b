// Package logsinkhook connects logrus to a shipping pipeline: every entry at
// a configured level is normalized into a record and offered for delivery.
// The hook is the ingestion boundary — it never blocks and never surfaces an
// error into the application's own logging call.
package logsinkhook

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/logsink-io/logsink/pkg/pipeline"
	"github.com/logsink-io/logsink/pkg/record"
)

// reservedMessageKey is split out of the field map into the record's message
// slot, never duplicated into fields.
const reservedMessageKey = "message"

const defaultTarget = "logrus"

type Hook struct {
	pipeline *pipeline.Pipeline
	levels   []logrus.Level
	target   string
	service  string
}

type Option func(*Hook)

// WithLevels replaces the default level set (error and worse).
func WithLevels(levels ...logrus.Level) Option {
	return func(h *Hook) { h.levels = levels }
}

// WithTarget sets the record target used when no caller information is
// available on the entry.
func WithTarget(target string) Option {
	return func(h *Hook) { h.target = target }
}

// WithServiceName stamps every record with a logical service name for
// shared-table or shared-topic deployments.
func WithServiceName(name string) Option {
	return func(h *Hook) { h.service = name }
}

func New(p *pipeline.Pipeline, opts ...Option) *Hook {
	h := &Hook{
		pipeline: p,
		levels:   []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

// Fire converts the entry and offers it to the pipeline. It always returns
// nil: a full queue shows up in the drop counter, not in the caller's
// logging call.
func (h *Hook) Fire(entry *logrus.Entry) error {
	rec := record.Record{
		Timestamp:   entry.Time.UTC(),
		Level:       strings.ToUpper(entry.Level.String()),
		Target:      h.target,
		Message:     entry.Message,
		ServiceName: h.service,
		Fields:      make(map[string]record.Value, len(entry.Data)),
	}
	if entry.Caller != nil {
		rec.ModulePath = entry.Caller.Function
		rec.File = entry.Caller.File
		rec.Line = entry.Caller.Line
		if rec.Target == "" {
			rec.Target = entry.Caller.Function
		}
	}
	if rec.Target == "" {
		rec.Target = defaultTarget
	}
	for k, v := range entry.Data {
		if k == reservedMessageKey {
			if rec.Message == "" {
				rec.Message, _ = v.(string)
			}
			continue
		}
		rec.Fields[k] = record.FromInterface(v)
	}

	h.pipeline.Offer(rec)
	return nil
}
