package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"callrota/internal/platform/logger"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"select 1":                                  "select 1",
		"UPDATE device_lock\n\t SET locked = false": "UPDATE device_lock SET locked = false",
		"\n\nA\r\nB":                                " A B",
		"":                                          "",
	}
	for in, want := range cases {
		if got := compact(in); got != want {
			t.Fatalf("compact(%q) = %q, want %q", in, got, want)
		}
	}
}

type traced struct {
	Level     string  `json:"level"`
	Component string  `json:"component"`
	ApplyID   string  `json:"apply_id"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Slow      bool    `json:"slow"`
	SQL       string  `json:"sql"`
	Error     string  `json:"error"`
}

func trace(t *testing.T, ctx context.Context, ev QueryEvent) traced {
	t.Helper()
	var buf bytes.Buffer
	Tracer(zerolog.New(&buf)).OnQuery(ctx, ev)
	var out traced
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return out
}

func TestTracer(t *testing.T) {
	t.Parallel()
	ev := QueryEvent{
		SQL:       "SELECT locked\n  FROM device_lock WHERE device_id = $1",
		Args:      []any{"rediris"},
		ElapsedUS: 2500,
		Err:       errors.New("boom"),
	}

	line := trace(t, context.Background(), ev)
	if line.Level != "info" || line.Component != "pg" || line.Slow {
		t.Fatalf("fast query = %+v", line)
	}
	if line.ElapsedMS != 2.5 || line.SQL != "SELECT locked FROM device_lock WHERE device_id = $1" || line.Error != "boom" {
		t.Fatalf("fields = %+v", line)
	}
	if line.ApplyID != "" {
		t.Fatalf("apply_id outside an apply = %q", line.ApplyID)
	}

	ev.Slow = true
	line = trace(t, logger.WithApply(context.Background(), "a-17", "rediris"), ev)
	if line.Level != "warn" || !line.Slow || line.ApplyID != "a-17" {
		t.Fatalf("slow query inside apply = %+v", line)
	}
}
