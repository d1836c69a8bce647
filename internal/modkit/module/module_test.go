package module

import (
	"testing"

	phttp "callrota/internal/platform/net/http"
)

type Acquirer interface{ Acquire() string }

type fakeLock struct{}

func (fakeLock) Acquire() string { return "web-1" }

type lockPorts struct {
	Lock  Acquirer
	other int
}

type stub struct{ ports any }

func (stub) MountRoutes(phttp.Router) {}
func (s stub) Ports() any             { return s.ports }
func (stub) Name() string             { return "lock" }

func TestPortsOf(t *testing.T) {
	t.Parallel()

	got, ok := PortsOf[Acquirer](stub{ports: lockPorts{Lock: fakeLock{}}})
	if !ok || got.Acquire() != "web-1" {
		t.Fatalf("field lookup failed: %v %v", got, ok)
	}
	if _, ok := PortsOf[Acquirer](stub{ports: fakeLock{}}); !ok {
		t.Fatalf("direct implementation not found")
	}
	if _, ok := PortsOf[Acquirer](stub{}); ok {
		t.Fatalf("nil ports must not resolve")
	}
}

func TestMustPortsOf_Panics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustPortsOf[Acquirer](stub{ports: 42})
}
