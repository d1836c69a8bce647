package service

import (
	"context"

	"callrota/internal/platform/logger"
	ctrl "callrota/internal/services/control/domain"
	"callrota/internal/services/orchestrator/domain"
)

// snapshot builds the status payload for code; a is nil outside an apply
func (s *Service) snapshot(code domain.Code, motivo string, a *domain.ApplyContext) ctrl.Snapshot {
	var (
		src     domain.Source
		trig    domain.Trigger
		applyID string
		forced  bool
		reason  string
	)
	if a != nil {
		src, trig, applyID = a.Source, a.Trigger, a.ID
		forced, reason = a.Forced(), a.Reason
	} else {
		src, trig = domain.Derive(false, code, motivo)
	}
	why := domain.StatusReason(src, motivo, s.now())
	snap := ctrl.Snapshot{
		Status:         code.Status(),
		Resultado:      code.Resultado(),
		Motivo:         why,
		StatusReason:   why,
		Turno:          s.plan.turno,
		ResultCode:     string(code),
		LastTargetID:   s.plan.targetID,
		LastTargetName: s.plan.targetName,
		NextTargetID:   s.plan.nextID,
		NextTargetName: s.plan.nextName,
		Forced:         forced,
		ForcedReason:   reason,
		ApplySource:    string(src),
		ApplyTrigger:   string(trig),
		ApplyID:        applyID,
	}
	if !s.plan.nextAt.IsZero() {
		snap.NextChangeAt = s.plan.nextAt.UnixMilli()
	}
	return snap
}

// publish reports the snapshot unless it equals the last one written
func (s *Service) publish(ctx context.Context, code domain.Code, motivo string, a *domain.ApplyContext) {
	snap := s.snapshot(code, motivo, a)
	v := s.View()
	v.Snapshot = snap
	s.storeView(v)
	s.broadcast(snap)

	fp := snap.Fingerprint()
	if fp == s.lastFP {
		statusWrites.WithLabelValues("suppressed").Inc()
		return
	}
	sctx, cancel := s.step(ctx)
	defer cancel()
	if err := s.deps.Control.Report(sctx, s.cfg.DeviceID, snap); err != nil {
		// lastFP stays put so the next publish writes again
		statusWrites.WithLabelValues("failed").Inc()
		return
	}
	s.lastFP = fp
	statusWrites.WithLabelValues("written").Inc()
	logger.C(ctx).Debug().Str("result_code", snap.ResultCode).Str("status", snap.Status).Msg("status reported")
}

// refreshView republishes state, window and boundary with the current snapshot
func (s *Service) refreshView() {
	s.storeView(s.View())
}

func (s *Service) storeView(v View) {
	v.State = s.st.Name()
	v.Window = nil
	if aw, ok := s.st.(domain.Awaiting); ok {
		w := aw.Window
		v.Window = &w
	}
	v.NextBoundary = s.boundaryAt
	v.ConfigLoaded = s.doc != nil
	s.view.Store(&v)
}

// Subscribe streams every published snapshot; slow subscribers miss snapshots
// rather than stall the loop. cancel must be called to unsubscribe
func (s *Service) Subscribe() (<-chan ctrl.Snapshot, func()) {
	ch := make(chan ctrl.Snapshot, 8)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	if snap := s.View().Snapshot; snap.Status != "" {
		ch <- snap
	}
	return ch, func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
}

func (s *Service) broadcast(snap ctrl.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
