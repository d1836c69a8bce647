// Package service buffers attempt history and flushes it to ClickHouse in batches
package service

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"callrota/internal/platform/logger"
	"callrota/internal/services/history/domain"
)

var (
	// appended labels: result (queued, dropped)
	appended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "history",
		Name:      "attempts_total",
		Help:      "Attempts handed to the history sink",
	}, []string{"result"})

	flushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "history",
		Name:      "flush_failures_total",
		Help:      "Batches that could not be written",
	})
)

// Writer is the storage side of the buffer
type Writer interface {
	Insert(ctx context.Context, xs []domain.Attempt) error
}

// Config for the buffered sink
type Config struct {
	// Buffer is the queue depth; Append drops when it is full
	Buffer     int
	BatchSize  int
	FlushEvery time.Duration
	// WriteTimeout bounds one Insert
	WriteTimeout time.Duration
}

// Service is a non-blocking domain.Sink
type Service struct {
	w   Writer
	cfg Config
	q   chan domain.Attempt

	mu      sync.Mutex
	stopped bool
}

var _ domain.Sink = (*Service)(nil)

// New constructs the sink; Run must be started for attempts to reach w
func New(w Writer, cfg Config) *Service {
	if w == nil {
		panic("history.Service requires a non nil writer")
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Service{w: w, cfg: cfg, q: make(chan domain.Attempt, cfg.Buffer)}
}

// Append queues a; it never blocks and drops when the queue is full or the sink stopped
func (s *Service) Append(_ context.Context, a domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		appended.WithLabelValues("dropped").Inc()
		return nil
	}
	select {
	case s.q <- a:
		appended.WithLabelValues("queued").Inc()
	default:
		appended.WithLabelValues("dropped").Inc()
		logger.Named("history").Warn().Str("apply_id", a.ApplyID).Msg("history queue full, attempt dropped")
	}
	return nil
}

// Run flushes batches until ctx ends, then drains what is queued
func (s *Service) Run(ctx context.Context) error {
	log := logger.Named("history")
	t := time.NewTicker(s.cfg.FlushEvery)
	defer t.Stop()

	batch := make([]domain.Attempt, 0, s.cfg.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
		if err := s.w.Insert(wctx, batch); err != nil {
			flushFailures.Inc()
			log.Error().Err(err).Int("rows", len(batch)).Msg("history flush failed")
		} else {
			log.Debug().Int("rows", len(batch)).Msg("history flushed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case a := <-s.q:
			batch = append(batch, a)
			if len(batch) >= s.cfg.BatchSize {
				flush(ctx)
			}
		case <-t.C:
			flush(ctx)
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
		drain:
			for {
				select {
				case a := <-s.q:
					batch = append(batch, a)
				default:
					break drain
				}
			}
			flush(context.WithoutCancel(ctx))
			return nil
		}
	}
}
