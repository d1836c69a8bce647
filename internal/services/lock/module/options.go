package module

import (
	"time"

	"callrota/internal/platform/config"
	"callrota/internal/services/lock/domain"
)

// Options for the lock module
type Options struct {
	TTL         time.Duration
	LockTimeout time.Duration
}

// FromConfig fills options from environment
// CALLROTA_LOCK_TTL (default 120s) is how long an unreleased lock blocks other actors
// CALLROTA_LOCK_WAIT (default 5s) bounds how long acquire waits on a row lock held by a peer transaction
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CALLROTA_")
	return Options{
		TTL:         c.MayDuration("LOCK_TTL", domain.DefaultTTL),
		LockTimeout: c.MayDuration("LOCK_WAIT", 5*time.Second),
	}
}
