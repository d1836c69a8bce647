// Package domain defines the apply orchestrator state machine and its collaborators
package domain

import (
	"time"

	"callrota/internal/core/classify"
	"callrota/internal/core/shift"
	lockdom "callrota/internal/services/lock/domain"
)

// Source says who asked for an apply
type Source string

const (
	SourceAuto   Source = "AUTO"
	SourceManual Source = "MANUAL"
	SourceForced Source = "FORCED"
)

// Trigger says what started the current attempt
type Trigger string

const (
	TriggerBoundary Trigger = "AUTO_BOUNDARY"
	TriggerCommand  Trigger = "REMOTE_CMD"
	TriggerRetry    Trigger = "RETRY"
)

// ApplyContext identifies one apply across all of its retries
type ApplyContext struct {
	ID      string
	Source  Source
	Trigger Trigger
	// RequestID is the command that started the apply, empty for boundary triggers
	RequestID string
	// LockID is a console lock to adopt; empty means the agent takes its own
	LockID string
	// Reason is the operator facing cause shown as forcedReason
	Reason string
	// Pinned holds a forced decision so retries do not fall back to the current slot
	Pinned   *shift.Decision
	Attempts int
	Started  time.Time
}

// Forced reports whether the apply skips to the next turn
func (a ApplyContext) Forced() bool { return a.Source == SourceForced }

// LockIDOr returns the adopted lock id or the agent's own for this apply
func (a ApplyContext) LockIDOr() string {
	if a.LockID != "" {
		return a.LockID
	}
	return "agent-" + a.ID
}

// Window is the armed confirmation window the observer matches against
type Window struct {
	ApplyID      string        `json:"applyId"`
	Since        time.Time     `json:"-"`
	Timeout      time.Duration `json:"-"`
	ExpectedCode string        `json:"expectedCode"`
	Fingerprint  string        `json:"fingerprint"`
}

// Deadline is when the window times out
func (w Window) Deadline() time.Time { return w.Since.Add(w.Timeout) }

// Result is one confirmation reported by the observer
type Result struct {
	Outcome    classify.Outcome
	RawText    string
	ObservedAt time.Time
}

// Observation is raw observer input: dialog text, an explicit outcome, or both
type Observation struct {
	Text       string
	Outcome    classify.Outcome
	ObservedAt time.Time
}

// Ack tells the observer what happened to a confirmation
type Ack string

const (
	AckAccepted     Ack = "accepted"
	AckStale        Ack = "stale"
	AckNoWindow     Ack = "no_window"
	AckIntermediate Ack = "intermediate"
	AckIrrelevant   Ack = "irrelevant"
	AckUnknown      Ack = "unknown"
	AckForeignCode  Ack = "foreign_code"
)

// State is the orchestrator state; the concrete types below are the only members
type State interface {
	Name() string
	state()
}

type (
	// Idle waits for a trigger
	Idle struct{}
	// Scheduled holds an accepted trigger until its start delay elapses
	Scheduled struct {
		Ctx ApplyContext
		At  time.Time
	}
	// Locking is acquiring the device lock
	Locking struct{ Ctx ApplyContext }
	// Resolving picks and resolves the target under the lock
	Resolving struct {
		Ctx   ApplyContext
		Lease lockdom.Lease
	}
	// Dialing submits the feature code
	Dialing struct {
		Ctx   ApplyContext
		Lease lockdom.Lease
	}
	// Awaiting waits for the observer inside Window
	Awaiting struct {
		Ctx    ApplyContext
		Lease  lockdom.Lease
		Window Window
	}
	// RetryScheduled waits out the retry delay with the lock released
	RetryScheduled struct {
		Ctx ApplyContext
		At  time.Time
	}
)

func (Idle) Name() string           { return "IDLE" }
func (Scheduled) Name() string      { return "SCHEDULED" }
func (Locking) Name() string        { return "LOCKING" }
func (Resolving) Name() string      { return "RESOLVING" }
func (Dialing) Name() string        { return "DIALING" }
func (Awaiting) Name() string       { return "AWAITING_CONFIRMATION" }
func (RetryScheduled) Name() string { return "RETRY_SCHEDULED" }

func (Idle) state()           {}
func (Scheduled) state()      {}
func (Locking) state()        {}
func (Resolving) state()      {}
func (Dialing) state()        {}
func (Awaiting) state()       {}
func (RetryScheduled) state() {}

// InFlight reports whether s blocks new triggers
func InFlight(s State) bool {
	_, idle := s.(Idle)
	return s != nil && !idle
}

// ContextOf returns the apply context carried by s
func ContextOf(s State) (ApplyContext, bool) {
	switch v := s.(type) {
	case Scheduled:
		return v.Ctx, true
	case Locking:
		return v.Ctx, true
	case Resolving:
		return v.Ctx, true
	case Dialing:
		return v.Ctx, true
	case Awaiting:
		return v.Ctx, true
	case RetryScheduled:
		return v.Ctx, true
	}
	return ApplyContext{}, false
}
