package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"callrota/internal/platform/testkit"
	"callrota/internal/services/history/domain"
)

type recWriter struct {
	mu      sync.Mutex
	batches [][]domain.Attempt
	err     error
}

func (w *recWriter) Insert(_ context.Context, xs []domain.Attempt) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]domain.Attempt(nil), xs...))
	return w.err
}

func (w *recWriter) rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestNew_PanicsWithoutWriter(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { New(nil, Config{}) })
}

func TestRun_FlushesOnBatchSize(t *testing.T) {
	t.Parallel()
	w := &recWriter{}
	s := New(w, Config{BatchSize: 2, FlushEvery: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := range 4 {
		_ = s.Append(ctx, domain.Attempt{ApplyID: string(rune('a' + i))})
	}
	testkit.Eventually(t, time.Second, 5*time.Millisecond, func() bool { return w.rows() == 4 }, "4 rows flushed")
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRun_DrainsOnStop(t *testing.T) {
	t.Parallel()
	w := &recWriter{}
	s := New(w, Config{BatchSize: 100, FlushEvery: time.Hour})
	for range 3 {
		_ = s.Append(context.Background(), domain.Attempt{DeviceID: "rediris"})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if w.rows() != 3 {
		t.Fatalf("rows = %d, want 3", w.rows())
	}
	_ = s.Append(context.Background(), domain.Attempt{})
	if len(s.q) != 0 {
		t.Fatalf("append after stop must drop")
	}
}

func TestAppend_DropsWhenFull(t *testing.T) {
	t.Parallel()
	s := New(&recWriter{}, Config{Buffer: 1})
	_ = s.Append(context.Background(), domain.Attempt{ApplyID: "1"})
	if err := s.Append(context.Background(), domain.Attempt{ApplyID: "2"}); err != nil {
		t.Fatalf("full queue must not error: %v", err)
	}
	if got := (<-s.q).ApplyID; got != "1" {
		t.Fatalf("queued %q", got)
	}
}

func TestRun_WriteErrorKeepsRunning(t *testing.T) {
	t.Parallel()
	w := &recWriter{err: errors.New("ch down")}
	s := New(w, Config{BatchSize: 1, FlushEvery: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	_ = s.Append(ctx, domain.Attempt{ApplyID: "x"})
	_ = s.Append(ctx, domain.Attempt{ApplyID: "y"})
	testkit.Eventually(t, time.Second, 5*time.Millisecond, func() bool { return w.rows() == 2 }, "both batches attempted")
}
