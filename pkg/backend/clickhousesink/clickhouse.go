// Package clickhousesink delivers log records to a ClickHouse table, one row
// per record, using the native protocol client.
package clickhousesink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"

	"github.com/logsink-io/logsink/pkg/record"
)

const (
	DefaultDatabase = "default"
	DefaultTable    = "logs"

	dialTimeout = 5 * time.Second
)

type Config struct {
	// Addrs are native-protocol host:port addresses.
	Addrs    []string
	Database string
	Table    string
	Username string
	Password string
	// ServiceName, when set, overrides the record's own service name. Used
	// in shared-table deployments where one table holds the logs of many
	// services.
	ServiceName string
}

// conn is the slice of driver.Conn the sink needs. Tests substitute it.
type conn interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row
}

type Sink struct {
	conn conn
	cfg  Config
}

// New opens a connection to ClickHouse. The table is expected to exist with
// columns (timestamp, level, target, module_path, file, line, message,
// service_name, fields); fields is stored as a JSON string column.
func New(cfg Config) (*Sink, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	c, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addrs,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "opening clickhouse connection")
	}
	return &Sink{conn: c, cfg: cfg}, nil
}

func (s *Sink) Send(ctx context.Context, rec record.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return errors.WithMessage(err, "serializing record fields")
	}
	serviceName := rec.ServiceName
	if s.cfg.ServiceName != "" {
		serviceName = s.cfg.ServiceName
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (timestamp, level, target, module_path, file, line, message, service_name, fields) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table(),
	)
	err = s.conn.Exec(ctx, query,
		rec.Timestamp,
		rec.Level,
		rec.Target,
		rec.ModulePath,
		rec.File,
		uint64(rec.Line),
		rec.Message,
		serviceName,
		string(fields),
	)
	if err != nil {
		return errors.WithMessagef(err, "inserting log record into %s", s.table())
	}
	return nil
}

// ValidateSchema confirms the target table exists. Called at setup time by
// hosts that want a malformed deployment to fail fast rather than at first
// delivery.
func (s *Sink) ValidateSchema(ctx context.Context) error {
	var exists uint8
	row := s.conn.QueryRow(ctx, fmt.Sprintf("EXISTS TABLE %s", s.table()))
	if err := row.Scan(&exists); err != nil {
		return errors.WithMessagef(err, "checking for table %s", s.table())
	}
	if exists == 0 {
		return errors.Errorf("clickhouse table %s does not exist", s.table())
	}
	return nil
}

func (s *Sink) table() string {
	return s.cfg.Database + "." + s.cfg.Table
}
