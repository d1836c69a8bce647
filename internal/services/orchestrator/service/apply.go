package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"callrota/internal/core/classify"
	"callrota/internal/core/mmi"
	"callrota/internal/core/shift"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	histdom "callrota/internal/services/history/domain"
	lockdom "callrota/internal/services/lock/domain"
	"callrota/internal/services/orchestrator/domain"
)

var newID = uuid.NewString

// attempt runs one pass of LOCKING, RESOLVING and DIALING for the apply a.
// The cached config is checked before the lock so a device without config never takes it
func (s *Service) attempt(ctx context.Context, a domain.ApplyContext) {
	ctx = logger.WithApply(ctx, a.ID, s.cfg.DeviceID)
	log := logger.C(ctx)
	a.Attempts++

	if s.doc == nil {
		s.terminal(ctx, a, nil, domain.CodeNoConfig, domain.MotivoManual, domain.Result{})
		return
	}

	// LOCKING
	s.transition(ctx, domain.Locking{Ctx: a})
	lctx, cancel := s.step(ctx)
	lease, err := s.deps.Lock.Acquire(lctx, lockdom.Request{
		Resource: s.cfg.DeviceID,
		LockID:   a.LockIDOr(),
		Owner:    s.cfg.Owner,
		TTL:      s.cfg.LockTTL,
		Status: &lockdom.Status{
			Status:     domain.CodeLocked.Status(),
			ResultCode: string(domain.CodeLocked),
			Resultado:  domain.CodeLocked.Resultado(),
			Reason:     domain.StatusReason(a.Source, a.Reason, s.now()),
		},
	})
	cancel()
	var busy *lockdom.BusyError
	switch {
	case errors.As(err, &busy):
		log.Info().Str("holder", busy.Holder.LockedBy).Str("holder_lock", busy.Holder.LockID).
			Msg("apply dropped: device locked by another actor")
		triggersTotal.WithLabelValues(triggerLabel(a.Trigger), "lock_busy").Inc()
		s.finish(ctx)
		return
	case err != nil:
		log.Error().Err(err).Msg("lock acquire failed")
		s.terminal(ctx, a, nil, domain.CodeLockFail, domain.MotivoApply, domain.Result{})
		return
	}
	// the acquire wrote a status row of its own
	s.lastFP = ""

	// RESOLVING
	s.transition(ctx, domain.Resolving{Ctx: a, Lease: lease})
	now := s.now()
	sched := s.doc.Schedule()
	dec := s.decide(ctx, &a, sched, now)
	nextAt := shift.NextBoundary(sched, now)
	nxt := shift.SelectAt(sched, nextAt.Add(time.Second))
	s.plan = plan{
		targetID: dec.TargetID,
		nextID:   nxt.TargetID,
		nextAt:   nextAt,
		turno:    dec.Label.Display(),
	}
	motivo := a.Reason
	if motivo == "" {
		motivo = domain.MotivoManual
	}
	if !dec.HasTarget() {
		s.terminal(ctx, a, &lease, domain.CodeNoTarget, motivo, domain.Result{})
		return
	}

	label, name := s.resolveTarget(ctx, dec.TargetID)
	if name == "" {
		name = dec.TargetID
	}
	if a.Forced() {
		name = domain.ForcedPrefix + name
	}
	s.plan.targetName = name
	if label == "" {
		s.terminal(ctx, a, &lease, domain.CodeNoLabel, motivo, domain.Result{})
		return
	}
	s.plan.nextName = s.displayName(ctx, nxt.TargetID)
	s.publish(ctx, domain.CodeApplying, motivo, &a)

	// DIALING
	s.transition(ctx, domain.Dialing{Ctx: a, Lease: lease})
	raw, ok := s.deps.Phonebook.Lookup(label)
	if !ok {
		log.Warn().Str("label", label).Msg("label missing from phonebook")
		s.terminal(ctx, a, &lease, domain.CodeContactNotFound, domain.MotivoApply, domain.Result{})
		return
	}
	code, err := s.deps.Codes.BuildForward(raw)
	if err != nil {
		log.Warn().Err(err).Str("label", label).Msg("cannot build feature code")
		s.terminal(ctx, a, &lease, domain.CodeBadNumber, domain.MotivoApply, domain.Result{})
		return
	}

	win := domain.Window{
		ApplyID:      a.ID,
		Since:        s.deps.Clock.Now(),
		Timeout:      s.cfg.ConfirmTimeout,
		ExpectedCode: code,
		Fingerprint:  mmi.Fingerprint(code),
	}
	dctx, cancel := s.step(ctx)
	err = s.deps.Dialer.Submit(dctx, code)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("dial submit failed")
		s.retry(ctx, a, &lease, &win, domain.MotivoApplyFailed, domain.Result{RawText: err.Error()})
		return
	}

	s.transition(ctx, domain.Awaiting{Ctx: a, Lease: lease, Window: win})
	s.armFlight(timerConfirm, s.cfg.ConfirmTimeout)
	s.publish(ctx, domain.CodeWaitingPopup, domain.MotivoApply, &a)
	log.Info().Str("target", dec.TargetID).Str("label", label).Str("reason", string(dec.Reason)).
		Int("attempt", a.Attempts).Msg("feature code submitted")
}

// decide picks the decision for this pass; a pending force-next-turn override is
// consumed once and pinned in a so every retry reuses it
func (s *Service) decide(ctx context.Context, a *domain.ApplyContext, sched shift.Schedule, now time.Time) shift.Decision {
	if a.Pinned != nil {
		return *a.Pinned
	}
	if !s.doc.Forced() {
		return shift.SelectAt(sched, now)
	}
	ov := *s.doc.Override
	dec := shift.SelectNext(sched, now)
	a.Pinned = &dec
	a.Source = domain.SourceForced
	a.Reason = ov.UIReason
	if ov.ForceRequestID != "" {
		a.ID = ov.ForceRequestID
	}
	// the feed echoes the consumed override later; until then the cached copy must not fire again
	local := ov
	local.ForceNextTurn = false
	s.doc.Override = &local

	if ov.ForceRequestID != "" {
		cctx, cancel := s.step(ctx)
		if err := s.deps.Control.ConsumeForceNextTurn(cctx, s.cfg.DeviceID, ov.ForceRequestID); err != nil {
			logger.C(ctx).Warn().Err(err).Str("force_request", ov.ForceRequestID).Msg("override consume failed")
		}
		cancel()
	}
	logger.C(ctx).Info().Str("force_request", ov.ForceRequestID).Str("target", dec.TargetID).
		Msg("force next turn applied")
	return dec
}

// resolveTarget returns the device label and display name; lookup failures degrade to none
func (s *Service) resolveTarget(ctx context.Context, id string) (label, name string) {
	rctx, cancel := s.step(ctx)
	defer cancel()
	c, err := s.deps.Control.Resolve(rctx, id, s.cfg.DeviceID)
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			logger.C(ctx).Warn().Err(err).Str("contact", id).Msg("contact resolve failed")
		}
		return "", ""
	}
	return c.LabelFor(s.cfg.DeviceID), c.DisplayName
}

// onResult applies an observer result to the armed window
func (s *Service) onResult(ctx context.Context, res domain.Result) domain.Ack {
	st, ok := s.st.(domain.Awaiting)
	if !ok {
		logger.C(ctx).Debug().Str("state", s.st.Name()).Str("outcome", string(res.Outcome)).Msg("result outside window")
		return domain.AckNoWindow
	}
	ctx = logger.WithApply(ctx, st.Ctx.ID, s.cfg.DeviceID)
	if res.ObservedAt.Before(st.Window.Since) {
		logger.C(ctx).Debug().Time("observed_at", res.ObservedAt).Time("since", st.Window.Since).Msg("stale result ignored")
		return domain.AckStale
	}
	confirmSeconds.Observe(res.ObservedAt.Sub(st.Window.Since).Seconds())

	switch res.Outcome {
	case classify.OK:
		s.succeed(ctx, st, res)
	case classify.Fail, classify.FailMixed:
		s.retry(ctx, st.Ctx, &st.Lease, &st.Window, domain.MotivoApplyFailed, res)
	default:
		s.retry(ctx, st.Ctx, &st.Lease, &st.Window, domain.MotivoUnknown, res)
	}
	return domain.AckAccepted
}

func (s *Service) succeed(ctx context.Context, st domain.Awaiting, res domain.Result) {
	s.stopFlight()
	s.release(ctx, &st.Lease)
	motivo := st.Ctx.Reason
	if motivo == "" {
		motivo = domain.MotivoApply
	}
	s.publish(ctx, domain.CodeApplyOK, motivo, &st.Ctx)
	s.record(ctx, st.Ctx, domain.CodeApplyOK, &st.Window, res)
	logger.C(ctx).Info().Str("target", s.plan.targetID).Int("attempts", st.Ctx.Attempts).Msg("forwarding applied")
	s.finish(ctx)
}

// retry releases the lock and comes back through LOCKING after the retry delay
func (s *Service) retry(ctx context.Context, a domain.ApplyContext, lease *lockdom.Lease, win *domain.Window,
	motivo string, res domain.Result) {
	s.stopFlight()
	s.release(ctx, lease)
	s.record(ctx, a, domain.CodeRetrying, win, res)
	if s.cfg.RetryMax > 0 && a.Attempts >= s.cfg.RetryMax {
		s.terminal(ctx, a, nil, domain.CodeRetriesExhausted, motivo, domain.Result{})
		return
	}
	a.Trigger = domain.TriggerRetry
	triggersTotal.WithLabelValues("retry", "accepted").Inc()
	s.publish(ctx, domain.CodeRetrying, motivo, &a)
	s.transition(ctx, domain.RetryScheduled{Ctx: a, At: s.now().Add(s.cfg.RetryDelay)})
	s.armFlight(timerRetry, s.cfg.RetryDelay)
}

// terminal ends the apply without a retry
func (s *Service) terminal(ctx context.Context, a domain.ApplyContext, lease *lockdom.Lease, code domain.Code,
	motivo string, res domain.Result) {
	logger.C(ctx).Warn().Str("result_code", string(code)).Str("target", s.plan.targetID).Msg("apply failed")
	s.release(ctx, lease)
	s.publish(ctx, code, motivo, &a)
	s.record(ctx, a, code, nil, res)
	s.finish(ctx)
}

// finish returns to IDLE and re-arms the boundary from the latest cached config
func (s *Service) finish(ctx context.Context) {
	s.stopFlight()
	s.transition(ctx, domain.Idle{})
	if s.doc == nil {
		return
	}
	now := s.now()
	s.armBoundary(shift.NextBoundary(s.doc.Schedule(), now))
	s.refreshView()
}

func (s *Service) release(ctx context.Context, lease *lockdom.Lease) {
	if lease == nil || lease.LockID == "" {
		return
	}
	rctx, cancel := s.step(context.WithoutCancel(ctx))
	defer cancel()
	if _, err := s.deps.Lock.Release(rctx, lease.Resource, lease.LockID, ""); err != nil {
		// TTL expiry frees it
		logger.C(ctx).Warn().Err(err).Str("lock_id", lease.LockID).Msg("lock release failed")
	}
}

// record appends one finished attempt to history
func (s *Service) record(ctx context.Context, a domain.ApplyContext, code domain.Code, win *domain.Window, res domain.Result) {
	finishedTotal.WithLabelValues(string(code)).Inc()
	at := s.deps.Clock.Now()
	started := a.Started
	if win != nil {
		started = win.Since
	}
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = at.Sub(started)
	}
	err := s.deps.History.Append(ctx, histdom.Attempt{
		At:         at,
		DeviceID:   s.cfg.DeviceID,
		ApplyID:    a.ID,
		Source:     string(a.Source),
		Trigger:    string(a.Trigger),
		TargetID:   s.plan.targetID,
		ResultCode: string(code),
		Outcome:    string(res.Outcome),
		RawText:    res.RawText,
		Elapsed:    elapsed,
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("history append failed")
	}
}

func triggerLabel(t domain.Trigger) string {
	switch t {
	case domain.TriggerBoundary:
		return "boundary"
	case domain.TriggerCommand:
		return "command"
	default:
		return "retry"
	}
}
