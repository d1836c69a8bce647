package domain

import (
	"context"
	"time"
)

// Dialer hands a feature code to the network; success means handed off, not applied
type Dialer interface {
	Submit(ctx context.Context, code string) error
}

// Phonebook maps a device label to a raw phone string
type Phonebook interface {
	Lookup(name string) (string, bool)
}

// Ledger persists the last processed command per device
type Ledger interface {
	LastRequestID(ctx context.Context, device string) (string, error)
	SetLastRequestID(ctx context.Context, device, id string) error
}

// Timer is a pending callback
type Timer interface {
	Stop() bool
}

// Clock is the time source of the orchestrator
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock is Clock over package time
type RealClock struct{}

// Now returns time.Now
func (RealClock) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc
func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
