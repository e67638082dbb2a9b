// Package kafkasink publishes log records as JSON messages to a Kafka topic.
package kafkasink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/logsink-io/logsink/pkg/record"
)

const (
	DefaultTopic = "logs"

	writeTimeout = 5 * time.Second
)

type Config struct {
	// Brokers are bootstrap broker addresses.
	Brokers []string
	Topic   string
}

// writer is the slice of kafka.Writer the sink needs. Tests substitute it.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sink struct {
	w writer
}

// New builds a sink around a kafka writer. The writer connects lazily, so
// construction cannot fail; broker problems surface on Send and are handled
// by the pipeline's retry loop.
func New(cfg Config) *Sink {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return &Sink{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: writeTimeout,
		},
	}
}

func (s *Sink) Send(ctx context.Context, rec record.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.WithMessage(err, "serializing log record")
	}
	msg := kafka.Message{
		Key:   []byte(rec.Target),
		Value: payload,
		Time:  rec.Timestamp,
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return errors.WithMessage(err, "publishing log record to kafka")
	}
	return nil
}

func (s *Sink) Close() error {
	return s.w.Close()
}
