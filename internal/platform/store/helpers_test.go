package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	perr "callrota/internal/platform/errors"
)

type cmdTag string

func (c cmdTag) String() string { return string(c) }
func (c cmdTag) RowsAffected() int64 {
	s := string(c)
	i := strings.LastIndexByte(s, ' ')
	n, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type fakeQuerier struct {
	execTag CommandTag
	execErr error

	rows     Rows
	queryErr error
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (CommandTag, error) {
	return f.execTag, f.execErr
}
func (f *fakeQuerier) Query(context.Context, string, ...any) (Rows, error) {
	return f.rows, f.queryErr
}
func (f *fakeQuerier) QueryRow(context.Context, string, ...any) Row { return nil }

// fakeRows yields one string column per row
type fakeRows struct {
	data   []string
	idx    int
	err    error
	closed bool
}

func newRows(data ...string) *fakeRows { return &fakeRows{data: data, idx: -1} }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}
func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.data[r.idx]
	return nil
}
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

func scanString(r Row) (string, error) {
	var s string
	err := r.Scan(&s)
	return s, err
}

func TestExecOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if err := ExecOne(ctx, &fakeQuerier{execTag: cmdTag("UPDATE 1")}, "u"); err != nil {
		t.Fatalf("ExecOne UPDATE 1: %v", err)
	}
	if err := ExecOne(ctx, &fakeQuerier{execTag: cmdTag("UPDATE 0")}, "u"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("ExecOne UPDATE 0 = %v, want not found", err)
	}
	if err := ExecOne(ctx, &fakeQuerier{execTag: cmdTag("UPDATE 11")}, "u"); err == nil {
		t.Fatalf("ExecOne UPDATE 11 should fail")
	}
	boom := errors.New("boom")
	if err := ExecOne(ctx, &fakeQuerier{execErr: boom}, "u"); !errors.Is(err, boom) {
		t.Fatalf("ExecOne should propagate exec error, got %v", err)
	}
}

func TestOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rs := newRows("a")
	got, err := One(ctx, &fakeQuerier{rows: rs}, scanString, "q")
	if err != nil || got != "a" || !rs.closed {
		t.Fatalf("One = %q, %v (closed=%v)", got, err, rs.closed)
	}
	if _, err := One(ctx, &fakeQuerier{rows: newRows()}, scanString, "q"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("One on empty = %v, want ErrNotFound", err)
	}
	if _, err := One(ctx, &fakeQuerier{rows: newRows("a", "b")}, scanString, "q"); err == nil {
		t.Fatalf("One should reject extra rows")
	}
	if _, err := One(ctx, &fakeQuerier{queryErr: errors.New("q")}, scanString, "q"); err == nil {
		t.Fatalf("One should propagate query error")
	}
}

func TestMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	got, err := Many(ctx, &fakeQuerier{rows: newRows("a", "b", "c")}, scanString, "q")
	if err != nil || strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("Many = %v, %v", got, err)
	}
	got, err = Many(ctx, &fakeQuerier{rows: newRows()}, scanString, "q")
	if err != nil || len(got) != 0 {
		t.Fatalf("Many on empty = %v, %v", got, err)
	}
	rs := newRows("a")
	rs.err = errors.New("iter")
	if _, err := Many(ctx, &fakeQuerier{rows: rs}, scanString, "q"); err == nil {
		t.Fatalf("Many should surface Rows.Err")
	}
}
