package store

import (
	"time"

	"callrota/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// boot knobs
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
}

// FromConfig reads the backend settings shared by both binaries
//
//	SERVICE_PGSQL_DBURL     postgres DSN (required when pg is wanted)
//	SERVICE_PGSQL_MAX_CONNS pool size, default 8
//	SERVICE_PGSQL_SLOW_MS   slow query threshold, default 250
//	SERVICE_PGSQL_LOG_SQL   trace every statement, default false
//	SERVICE_CH_URL          clickhouse DSN; empty disables history
func FromConfig(cfg config.Conf, appName string) Config {
	pgc := cfg.Prefix("SERVICE_PGSQL_")
	url := pgc.MayString("DBURL", "")
	chURL := cfg.MayString("SERVICE_CH_URL", "")
	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:     url != "",
			URL:         url,
			MaxConns:    int32(pgc.MayInt("MAX_CONNS", 8)),
			LogSQL:      pgc.MayBool("LOG_SQL", false),
			SlowQueryMs: pgc.MayInt("SLOW_MS", 250),
		},
		CH: CHConfig{Enabled: chURL != "", URL: chURL},
	}
}
