package net_test

import (
	"context"
	"testing"

	pnet "callrota/internal/platform/net"
)

func TestWithRequest(t *testing.T) {
	t.Parallel()
	base := context.Background()

	ctx := pnet.WithRequest(base, "req-123")
	if got := pnet.RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID got %q want req-123", got)
	}

	if got := pnet.WithRequest(base, ""); got != base {
		t.Fatalf("expected ctx unchanged for blank id")
	}
	if got := pnet.RequestID(base); got != "" {
		t.Fatalf("RequestID on bare ctx got %q", got)
	}
}
