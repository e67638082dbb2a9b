package backend

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/logsink-io/logsink/pkg/backend/clickhousesink"
	"github.com/logsink-io/logsink/pkg/sink"
)

// Environment variables for configuring a sink without touching application
// config files. These are helpers for services; the sink types themselves
// never read the environment.
const (
	// EnvDSN selects a backend with a single DSN, see ParseDSN.
	EnvDSN = "LOGSINK_DSN"
	// EnvServiceName sets the logical service name for shared-table setups.
	EnvServiceName = "LOGSINK_SERVICE_NAME"

	EnvClickHouseAddr     = "LOGSINK_CLICKHOUSE_ADDR"
	EnvClickHouseDB       = "LOGSINK_CLICKHOUSE_DB"
	EnvClickHouseTable    = "LOGSINK_CLICKHOUSE_TABLE"
	EnvClickHouseUser     = "LOGSINK_CLICKHOUSE_USER"
	EnvClickHousePassword = "LOGSINK_CLICKHOUSE_PASSWORD"
)

func envViper() *viper.Viper {
	v := viper.New()
	for _, key := range []string{
		EnvDSN, EnvServiceName,
		EnvClickHouseAddr, EnvClickHouseDB, EnvClickHouseTable,
		EnvClickHouseUser, EnvClickHousePassword,
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// FromEnv builds a sink from the environment. LOGSINK_DSN wins when set;
// otherwise the ClickHouse variables are consulted, matching the most common
// deployment. Returns an error when neither is configured.
func FromEnv(ctx context.Context) (sink.Sink, error) {
	v := envViper()

	if dsn := v.GetString(EnvDSN); dsn != "" {
		return FromDSN(ctx, dsn)
	}

	if addr := v.GetString(EnvClickHouseAddr); addr != "" {
		return clickhousesink.New(clickhousesink.Config{
			Addrs:       []string{addr},
			Database:    v.GetString(EnvClickHouseDB),
			Table:       v.GetString(EnvClickHouseTable),
			Username:    v.GetString(EnvClickHouseUser),
			Password:    v.GetString(EnvClickHousePassword),
			ServiceName: v.GetString(EnvServiceName),
		})
	}

	return nil, errors.Errorf("no sink configured: set %s or %s", EnvDSN, EnvClickHouseAddr)
}

// ServiceNameFromEnv returns the configured logical service name, or empty.
func ServiceNameFromEnv() string {
	return envViper().GetString(EnvServiceName)
}
