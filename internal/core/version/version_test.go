package version

import "testing"

func TestInfo(t *testing.T) {
	b := Info("callrota-agent")
	if b.Service != "callrota-agent" || b.Version == "" {
		t.Fatalf("Info = %+v", b)
	}
	if got, want := b.String(), "callrota-agent dev (none, unknown)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
