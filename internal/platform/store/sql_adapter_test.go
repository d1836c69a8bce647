package store

import (
	"context"
	"errors"
	"testing"

	"callrota/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recTracer struct{ evs []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.evs = append(r.evs, ev) }

type scanErr struct{ err error }

func (s scanErr) Scan(...any) error { return s.err }

type stubRunner struct{ rowErr error }

func (stubRunner) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("UPDATE 1"), nil
}
func (stubRunner) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("relation does not exist")
}
func (s stubRunner) QueryRow(context.Context, string, ...any) pgx.Row { return scanErr{s.rowErr} }

func TestTracedReportsEveryStatement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr := &recTracer{}
	q := traced{run: stubRunner{rowErr: pgx.ErrNoRows}, tracer: tr, slowUS: 0}

	tag, err := q.Exec(ctx, "UPDATE device_lock SET locked = false WHERE device_id = $1", "rediris")
	if err != nil || tag.RowsAffected() != 1 {
		t.Fatalf("Exec = %v, %v", tag, err)
	}
	if _, err := q.Query(ctx, "SELECT * FROM missing"); err == nil {
		t.Fatalf("Query error swallowed")
	}
	if len(tr.evs) != 2 {
		t.Fatalf("events before Scan = %d, want 2", len(tr.evs))
	}
	if err := q.QueryRow(ctx, "SELECT 1").Scan(); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("Scan = %v", err)
	}
	if len(tr.evs) != 3 || !errors.Is(tr.evs[2].Err, pgx.ErrNoRows) {
		t.Fatalf("QueryRow event = %+v", tr.evs)
	}
	if !tr.evs[0].Slow {
		t.Fatalf("threshold 0 should flag every statement slow")
	}
}

func TestTracedWithoutTracer(t *testing.T) {
	t.Parallel()
	q := traced{run: stubRunner{}}
	if _, err := q.Exec(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if err := q.QueryRow(context.Background(), "SELECT 1").Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
}
