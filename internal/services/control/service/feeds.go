package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"callrota/internal/core/shift"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	"callrota/internal/platform/store"
	"callrota/internal/services/control/domain"
	"callrota/internal/services/control/repo"
)

// feedRestarts labels: feed (config, commands)
var feedRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callrota",
	Subsystem: "control",
	Name:      "feed_restarts_total",
	Help:      "Push feed sessions re-established after a failure",
}, []string{"feed"})

// ConfigFeed streams full config snapshots for device: one after subscribing and one per change
// Errors are delivered in-band and the subscription is re-established with backoff
func (s *Service) ConfigFeed(ctx context.Context, device string) <-chan domain.ConfigEvent {
	out := make(chan domain.ConfigEvent, 4)
	load := func(ctx context.Context) {
		ev := domain.ConfigEvent{DeviceID: device}
		raw, found, err := s.repo().LoadConfig(ctx, device)
		switch {
		case err != nil:
			ev.Err = err
		case !found:
			ev.Missing = true
		default:
			ev.Raw = raw
			if ev.Doc, err = shift.ParseDocument(raw); err != nil {
				ev.Err = perr.Wrapf(err, perr.ErrorCodeJSON, "config %s", device)
			}
		}
		send(ctx, out, ev)
	}
	fail := func(ctx context.Context, err error) {
		send(ctx, out, domain.ConfigEvent{DeviceID: device, Err: err})
	}
	go func() {
		defer close(out)
		s.follow(ctx, "config", repo.ChannelConfig, device, load, fail)
	}()
	return out
}

// CommandFeed streams the device command after subscribing and on every write
func (s *Service) CommandFeed(ctx context.Context, device string) <-chan domain.CommandEvent {
	out := make(chan domain.CommandEvent, 4)
	load := func(ctx context.Context) {
		cmd, found, err := s.repo().LoadCommand(ctx, device)
		switch {
		case err != nil:
			send(ctx, out, domain.CommandEvent{Err: err})
		case found:
			send(ctx, out, domain.CommandEvent{Command: cmd})
		}
	}
	fail := func(ctx context.Context, err error) {
		send(ctx, out, domain.CommandEvent{Err: err})
	}
	go func() {
		defer close(out)
		s.follow(ctx, "commands", repo.ChannelCommands, device, load, fail)
	}()
	return out
}

// follow keeps one LISTEN session alive on channel until ctx ends
// load runs once the session is subscribed and again for every notification naming device
func (s *Service) follow(ctx context.Context, feed, channel, device string,
	load func(context.Context), fail func(context.Context, error)) {
	log := logger.C(ctx).With().Str("feed", feed).Str("device", device).Logger()
	if s.notify == nil {
		fail(ctx, perr.Unavailablef("control: %s feed has no listener", feed))
		return
	}

	wait := s.cfg.Backoff
	for {
		err := s.notify.Listen(ctx, []string{channel}, func(n store.Notification) {
			if n.Ready || n.Payload == device {
				wait = s.cfg.Backoff
				load(ctx)
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = perr.Unavailablef("control: %s listener closed", feed)
		}
		feedRestarts.WithLabelValues(feed).Inc()
		log.Warn().Err(err).Dur("retry_in", wait).Msg("feed listener failed")
		fail(ctx, err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		wait = min(wait*2, s.cfg.MaxBackoff)
	}
}

func send[T any](ctx context.Context, out chan<- T, v T) {
	select {
	case out <- v:
	case <-ctx.Done():
	}
}
