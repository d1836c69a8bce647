// Package domain defines apply attempt history records
package domain

import (
	"context"
	"time"
)

// Attempt is one finished forwarding attempt: terminal failure, retry or success
type Attempt struct {
	At         time.Time
	DeviceID   string
	ApplyID    string
	Source     string
	Trigger    string
	TargetID   string
	ResultCode string
	Outcome    string
	RawText    string
	Elapsed    time.Duration
}

// Sink appends attempts; implementations must not block the caller for long
type Sink interface {
	Append(ctx context.Context, a Attempt) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, a Attempt) error

// Append implements Sink
func (f SinkFunc) Append(ctx context.Context, a Attempt) error { return f(ctx, a) }

// Nop drops every attempt
var Nop Sink = SinkFunc(func(context.Context, Attempt) error { return nil })
