package domain

import (
	"errors"
	"testing"
	"time"

	perr "callrota/internal/platform/errors"
)

func TestState_Active(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000)
	tests := []struct {
		name string
		s    State
		want bool
	}{
		{"held", State{Locked: true, ExpiresAt: now.UnixMilli() + 1}, true},
		{"expired", State{Locked: true, ExpiresAt: now.UnixMilli()}, false},
		{"released", State{Locked: false, ExpiresAt: now.UnixMilli() + 60_000}, false},
		{"zero", State{}, false},
	}
	for _, tc := range tests {
		if got := tc.s.Active(now); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestBusyError(t *testing.T) {
	t.Parallel()

	err := error(&BusyError{Resource: "rediris", Holder: State{LockID: "web-1", LockedBy: "ops@example.com"}})
	if !perr.IsCode(err, perr.ErrorCodeBusy) {
		t.Fatalf("busy error must carry the Busy code, got %v", perr.CodeOf(err))
	}
	var be *BusyError
	if !errors.As(err, &be) || be.Holder.LockedBy != "ops@example.com" {
		t.Fatalf("holder not recoverable")
	}
	if msg := (&BusyError{Resource: "x"}).Error(); msg != "device x busy: held by otro usuario ()" {
		t.Fatalf("message %q", msg)
	}
}
