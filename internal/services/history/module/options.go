package module

import (
	"time"

	"callrota/internal/platform/config"
)

// Options for the history module
type Options struct {
	Enabled    bool
	Buffer     int
	BatchSize  int
	FlushEvery time.Duration
}

// FromConfig fills options from environment
// CALLROTA_HISTORY (default false) turns on the ClickHouse sink; it also needs SERVICE_CH_URL
// CALLROTA_HISTORY_BUFFER (default 256), CALLROTA_HISTORY_BATCH (default 64)
// CALLROTA_HISTORY_FLUSH (default 5s)
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CALLROTA_")
	return Options{
		Enabled:    c.MayBool("HISTORY", false),
		Buffer:     c.MayInt("HISTORY_BUFFER", 256),
		BatchSize:  c.MayInt("HISTORY_BATCH", 64),
		FlushEvery: c.MayDuration("HISTORY_FLUSH", 5*time.Second),
	}
}
