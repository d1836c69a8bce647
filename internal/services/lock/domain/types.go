// Package domain defines the apply lock shared by the device agent and the operator console
package domain

import (
	"fmt"
	"time"

	perr "callrota/internal/platform/errors"
)

// DefaultTTL bounds how long a crashed holder can block a device
const DefaultTTL = 120 * time.Second

// State is the lock_* column group of one device row
type State struct {
	Locked    bool
	LockID    string
	LockedBy  string
	LockedAt  time.Time
	ExpiresAt int64 // epoch ms, 0 when released
}

// Active reports whether the lock still excludes other holders at now
func (s State) Active(now time.Time) bool {
	return s.Locked && s.ExpiresAt > now.UnixMilli()
}

// Status is written in the same transaction as a successful acquire
// so observers never see a held lock next to an idle status
type Status struct {
	Status     string
	ResultCode string
	Resultado  string
	Reason     string
}

// Request describes one acquire
type Request struct {
	Resource string
	LockID   string
	Owner    string
	TTL      time.Duration
	Status   *Status
}

// Lease is a granted lock
type Lease struct {
	Resource  string
	LockID    string
	Owner     string
	ExpiresAt time.Time
	// Adopted is set when the lock was already held under the same LockID
	Adopted bool
}

// BusyError carries the current holder of an active lock
type BusyError struct {
	Resource string
	Holder   State
}

func (e *BusyError) Error() string {
	who := e.Holder.LockedBy
	if who == "" {
		who = "otro usuario"
	}
	return fmt.Sprintf("device %s busy: held by %s (%s)", e.Resource, who, e.Holder.LockID)
}

// Unwrap exposes the perr Busy code to perr.CodeOf and errors.Is chains
func (e *BusyError) Unwrap() error {
	return perr.Busyf("%s", e.Error())
}
