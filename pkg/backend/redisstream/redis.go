// Package redisstream appends log records to a Redis stream via XADD.
// Streams are append-only, so redelivered records become duplicate entries;
// consumers that need uniqueness should deduplicate on record content.
package redisstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/logsink-io/logsink/pkg/record"
)

const (
	DefaultStream = "logs"

	dataKey = "record"

	dialTimeout  = 5 * time.Second
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen, when non-zero, caps the stream length approximately (XADD
	// MAXLEN ~), bounding backend memory at the cost of losing the oldest
	// entries.
	MaxLen int64
}

// streamClient is the slice of redis.Client the sink needs. Tests
// substitute it.
type streamClient interface {
	XAdd(args *redis.XAddArgs) *redis.StringCmd
}

type Sink struct {
	client streamClient
	cfg    Config
}

// New builds the sink around a redis client with bounded I/O timeouts so a
// dead backend fails a Send instead of hanging the delivery goroutine.
func New(cfg Config) *Sink {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})
	return &Sink{client: client, cfg: cfg}
}

func (s *Sink) Send(_ context.Context, rec record.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.WithMessage(err, "serializing log record")
	}
	cmd := s.client.XAdd(&redis.XAddArgs{
		Stream:       s.cfg.Stream,
		MaxLenApprox: s.cfg.MaxLen,
		Values: map[string]interface{}{
			dataKey: payload,
		},
	})
	if err := cmd.Err(); err != nil {
		return errors.WithMessagef(err, "appending log record to stream %s", s.cfg.Stream)
	}
	return nil
}
