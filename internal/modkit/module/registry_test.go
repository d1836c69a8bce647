package module

import (
	"sync"
	"testing"

	"callrota/internal/platform/testkit"
)

type devicePorts struct {
	Device string
	TTL    int
}

// the registry is process-global, so these tests hold the seam lock instead of running in parallel
func TestRegistry_RoundTrip(t *testing.T) {
	testkit.Serial(t)
	Reset()
	t.Cleanup(Reset)

	Register("lock", devicePorts{Device: "rediris", TTL: 120})
	got, ok := PortsAs[devicePorts]("lock")
	if !ok || got.Device != "rediris" || got.TTL != 120 {
		t.Fatalf("PortsAs = %+v,%v", got, ok)
	}

	Register("lock", devicePorts{Device: "telefonica"})
	if got, _ := PortsAs[devicePorts]("lock"); got.Device != "telefonica" {
		t.Fatalf("second Register did not replace: %+v", got)
	}
}

func TestRegistry_MissesReturnZero(t *testing.T) {
	testkit.Serial(t)
	Reset()
	t.Cleanup(Reset)

	cases := []struct {
		name string
		seed bool
	}{
		{"missing", false},
		{"wrong type", true},
	}
	for _, c := range cases {
		if c.seed {
			Register("control", 42)
		}
		got, ok := PortsAs[devicePorts]("control")
		if ok || got != (devicePorts{}) {
			t.Fatalf("%s: PortsAs = %+v,%v want zero,false", c.name, got, ok)
		}
	}
}

func TestRegistry_ResetClears(t *testing.T) {
	testkit.Serial(t)
	Reset()
	t.Cleanup(Reset)

	Register("orchestrator", devicePorts{Device: "rediris"})
	Reset()
	if _, ok := PortsAs[devicePorts]("orchestrator"); ok {
		t.Fatalf("entry survived Reset")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	testkit.Serial(t)
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Register("history", devicePorts{TTL: i})
		}()
		go func() {
			defer wg.Done()
			_, _ = PortsAs[devicePorts]("history")
		}()
	}
	wg.Wait()
	if _, ok := PortsAs[devicePorts]("history"); !ok {
		t.Fatalf("history ports missing after concurrent writes")
	}
}
