// Package pulsarsink publishes log records as JSON messages to a Pulsar
// topic. Sends are synchronous so that broker failures surface to the
// pipeline's retry loop instead of disappearing into an async buffer.
package pulsarsink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/pkg/errors"

	"github.com/logsink-io/logsink/pkg/record"
)

const (
	DefaultTopic = "logs"

	connectionTimeout = 5 * time.Second
	operationTimeout  = 5 * time.Second
)

type Config struct {
	// URL of the broker, e.g. pulsar://localhost:6650.
	URL   string
	Topic string
}

// producer is the slice of pulsar.Producer the sink needs. Tests substitute it.
type producer interface {
	Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error)
	Close()
}

type Sink struct {
	client   pulsar.Client
	producer producer
}

// Connect creates the Pulsar client and producer. Errors here are fatal to
// pipeline construction; errors after this point are retried by the
// delivery engine.
func Connect(cfg Config) (*Sink, error) {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL:               cfg.URL,
		ConnectionTimeout: connectionTimeout,
		OperationTimeout:  operationTimeout,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "creating pulsar client")
	}
	p, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: cfg.Topic,
	})
	if err != nil {
		client.Close()
		return nil, errors.WithMessage(err, "creating pulsar producer")
	}
	return &Sink{client: client, producer: p}, nil
}

func (s *Sink) Send(ctx context.Context, rec record.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.WithMessage(err, "serializing log record")
	}
	_, err = s.producer.Send(ctx, &pulsar.ProducerMessage{
		Payload:   payload,
		Key:       rec.Target,
		EventTime: rec.Timestamp,
	})
	if err != nil {
		return errors.WithMessage(err, "publishing log record to pulsar")
	}
	return nil
}

func (s *Sink) Close() {
	s.producer.Close()
	if s.client != nil {
		s.client.Close()
	}
}
