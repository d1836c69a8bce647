package module

import (
	"time"

	"callrota/internal/platform/config"
)

// Options for the control module
type Options struct {
	FeedBackoff    time.Duration
	FeedMaxBackoff time.Duration
	AuditLimit     int
}

// FromConfig fills options from environment
// CALLROTA_FEED_BACKOFF (default 1s) is the first wait before a dropped LISTEN session is retried
// CALLROTA_FEED_MAX_BACKOFF (default 30s) caps the doubling
// CALLROTA_AUDIT_LIMIT (default 200) caps audit listings
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CALLROTA_")
	return Options{
		FeedBackoff:    c.MayDuration("FEED_BACKOFF", time.Second),
		FeedMaxBackoff: c.MayDuration("FEED_MAX_BACKOFF", 30*time.Second),
		AuditLimit:     c.MayInt("AUDIT_LIMIT", 200),
	}
}
