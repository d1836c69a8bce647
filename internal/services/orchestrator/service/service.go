// Package service runs the apply orchestrator: one event loop per device that turns
// config, command, timer and confirmation events into lock, dial and status actions
package service

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"callrota/internal/core/classify"
	"callrota/internal/core/mmi"
	"callrota/internal/core/shift"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	ctrl "callrota/internal/services/control/domain"
	histdom "callrota/internal/services/history/domain"
	lockdom "callrota/internal/services/lock/domain"
	"callrota/internal/services/orchestrator/domain"
)

// Config for one device orchestrator
type Config struct {
	DeviceID string
	// Owner is written as lockedBy; defaults to agent:<device>
	Owner          string
	Zone           *time.Location
	ConfirmTimeout time.Duration
	RetryDelay     time.Duration
	// RetryMax bounds attempts per apply; 0 keeps retrying
	RetryMax       int
	LockTTL        time.Duration
	CommandDelay   time.Duration
	BoundaryDelay  time.Duration
	ReclaimOnStart bool
	// StepTimeout bounds each store call made from the loop
	StepTimeout time.Duration
}

// Deps are the collaborators of the loop
type Deps struct {
	Control    ctrl.AgentPort
	Lock       lockdom.LockPort
	Dialer     domain.Dialer
	Phonebook  domain.Phonebook
	Ledger     domain.Ledger
	History    histdom.Sink
	Classifier *classify.Classifier
	Codes      *mmi.Builder
	Clock      domain.Clock
}

// View is the read-only picture served over HTTP
type View struct {
	State        string          `json:"state"`
	Snapshot     ctrl.Snapshot   `json:"snapshot"`
	Window       *domain.Window  `json:"window,omitempty"`
	NextBoundary time.Time       `json:"nextBoundary"`
	ConfigLoaded bool            `json:"configLoaded"`
}

type timerKind int

const (
	timerBoundary timerKind = iota
	timerStart
	timerRetry
	timerConfirm
)

type (
	configMsg  struct{ ev ctrl.ConfigEvent }
	commandMsg struct{ ev ctrl.CommandEvent }
	timerMsg   struct {
		kind timerKind
		gen  uint64
	}
	resultMsg struct {
		res   domain.Result
		reply chan domain.Ack
	}
)

// plan is what the last evaluation decided; it feeds the target fields of every snapshot
type plan struct {
	targetID   string
	targetName string
	nextID     string
	nextName   string
	nextAt     time.Time
	turno      string
}

// Service is the orchestrator; all fields below events are owned by the loop goroutine
type Service struct {
	cfg  Config
	deps Deps

	events chan any
	done   chan struct{}
	view   atomic.Pointer[View]

	subMu sync.Mutex
	subs  map[chan ctrl.Snapshot]struct{}

	st          domain.State
	doc         *shift.Document
	plan        plan
	lastFP      string
	lastRequest string

	boundary    domain.Timer
	boundaryGen uint64
	boundaryAt  time.Time
	flight      domain.Timer
	flightGen   uint64
}

// New validates deps and fills defaults
func New(cfg Config, deps Deps) *Service {
	if deps.Control == nil || deps.Lock == nil || deps.Dialer == nil || deps.Phonebook == nil {
		panic("orchestrator.Service requires control, lock, dialer and phonebook")
	}
	if cfg.DeviceID == "" {
		panic("orchestrator.Service requires a device id")
	}
	if cfg.Owner == "" {
		cfg.Owner = "agent:" + cfg.DeviceID
	}
	if cfg.Zone == nil {
		cfg.Zone = time.Local
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1200 * time.Millisecond
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = lockdom.DefaultTTL
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 10 * time.Second
	}
	if deps.History == nil {
		deps.History = histdom.Nop
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.Default()
	}
	if deps.Codes == nil {
		deps.Codes = mmi.NewBuilder()
	}
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	s := &Service{
		cfg:    cfg,
		deps:   deps,
		events: make(chan any, 16),
		done:   make(chan struct{}),
		subs:   map[chan ctrl.Snapshot]struct{}{},
		st:     domain.Idle{},
	}
	s.view.Store(&View{State: s.st.Name()})
	return s
}

// Device returns the device this loop drives
func (s *Service) Device() string { return s.cfg.DeviceID }

// View returns the latest published picture; safe from any goroutine
func (s *Service) View() View { return *s.view.Load() }

// Run drives the loop until ctx ends. The distributed lock is left to its TTL on exit
func (s *Service) Run(ctx context.Context) error {
	ctx = logger.WithApply(ctx, "", s.cfg.DeviceID)
	defer close(s.done)
	defer s.stopTimers()

	s.startup(ctx)
	cfgs := s.deps.Control.ConfigFeed(ctx, s.cfg.DeviceID)
	cmds := s.deps.Control.CommandFeed(ctx, s.cfg.DeviceID)
	for {
		select {
		case <-ctx.Done():
			logger.C(ctx).Info().Str("state", s.st.Name()).Msg("orchestrator stopped")
			return nil
		case ev, ok := <-cfgs:
			if !ok {
				cfgs = nil
				continue
			}
			s.handle(ctx, configMsg{ev})
		case ev, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			s.handle(ctx, commandMsg{ev})
		case m := <-s.events:
			s.handle(ctx, m)
		}
	}
}

// Observe classifies observer input and hands a usable result to the loop
func (s *Service) Observe(ctx context.Context, o domain.Observation) (domain.Ack, error) {
	res := domain.Result{Outcome: o.Outcome, RawText: o.Text, ObservedAt: o.ObservedAt}
	if res.ObservedAt.IsZero() {
		res.ObservedAt = s.deps.Clock.Now()
	}
	if res.Outcome == "" {
		v := s.deps.Classifier.Read(o.Text)
		switch {
		case v.Intermediate:
			return domain.AckIntermediate, nil
		case !v.Relevant:
			return domain.AckIrrelevant, nil
		case v.Outcome == classify.Unknown:
			// left to the confirmation timeout
			return domain.AckUnknown, nil
		}
		if w := s.View().Window; w != nil && foreignCode(o.Text, w.ExpectedCode) {
			return domain.AckForeignCode, nil
		}
		res.Outcome = v.Outcome
	}

	reply := make(chan domain.Ack, 1)
	select {
	case s.events <- resultMsg{res: res, reply: reply}:
	case <-s.done:
		return "", perr.Unavailablef("orchestrator %s is stopped", s.cfg.DeviceID)
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case ack := <-reply:
		return ack, nil
	case <-s.done:
		return "", perr.Unavailablef("orchestrator %s is stopped", s.cfg.DeviceID)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// foreignCode reports dialog text echoing forward codes, none of them to the number dialed
func foreignCode(text, expected string) bool {
	want := mmi.Destinations(expected)
	seen := mmi.Destinations(text)
	if len(want) == 0 || len(seen) == 0 {
		return false
	}
	return !slices.Contains(seen, want[0])
}

func (s *Service) handle(ctx context.Context, m any) {
	switch m := m.(type) {
	case configMsg:
		s.onConfig(ctx, m.ev)
	case commandMsg:
		s.onCommand(ctx, m.ev)
	case timerMsg:
		s.onTimer(ctx, m)
	case resultMsg:
		m.reply <- s.onResult(ctx, m.res)
	}
}

func (s *Service) post(m any) {
	select {
	case s.events <- m:
	case <-s.done:
	}
}

func (s *Service) now() time.Time { return s.deps.Clock.Now().In(s.cfg.Zone) }

func (s *Service) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StepTimeout)
}

func (s *Service) transition(ctx context.Context, next domain.State) {
	if s.st.Name() != next.Name() {
		logger.C(ctx).Debug().Str("from", s.st.Name()).Str("to", next.Name()).Msg("transition")
		transitionsTotal.WithLabelValues(next.Name()).Inc()
	}
	s.st = next
	s.refreshView()
}

// startup publishes READY, loads the ledger and optionally reclaims our own orphan lock
func (s *Service) startup(ctx context.Context) {
	log := logger.C(ctx)
	if s.deps.Ledger != nil {
		sctx, cancel := s.step(ctx)
		id, err := s.deps.Ledger.LastRequestID(sctx, s.cfg.DeviceID)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("ledger read failed; duplicate commands may replay")
		}
		s.lastRequest = id
	}
	if s.cfg.ReclaimOnStart {
		sctx, cancel := s.step(ctx)
		if _, err := s.deps.Lock.ReleaseOwnedBy(sctx, s.cfg.DeviceID, s.cfg.Owner); err != nil {
			log.Warn().Err(err).Msg("orphan lock reclaim failed")
		}
		cancel()
	}
	s.publish(ctx, domain.CodeReady, domain.MotivoStart, nil)
	log.Info().Str("owner", s.cfg.Owner).Str("last_request", s.lastRequest).Msg("orchestrator ready")
}

func (s *Service) onConfig(ctx context.Context, ev ctrl.ConfigEvent) {
	log := logger.C(ctx)
	switch {
	case ev.Err != nil:
		log.Error().Err(ev.Err).Msg("config feed failed")
		s.publish(ctx, domain.CodeConfigListener, domain.MotivoListener, nil)
		return
	case ev.Missing:
		log.Warn().Msg("device has no config document")
		s.doc = nil
		s.refreshView()
		return
	}
	doc := ev.Doc
	s.doc = &doc
	if domain.InFlight(s.st) {
		// evaluated once the flight ends
		log.Debug().Str("state", s.st.Name()).Msg("config cached during apply")
		return
	}
	s.refresh(ctx, domain.MotivoConfig)
}

func (s *Service) onCommand(ctx context.Context, ev ctrl.CommandEvent) {
	log := logger.C(ctx)
	if ev.Err != nil {
		log.Error().Err(ev.Err).Msg("command feed failed")
		s.publish(ctx, domain.CodeCommandsListener, domain.MotivoListener, nil)
		return
	}
	cmd := ev.Command
	switch {
	case cmd.Action != ctrl.ActionApplyNow:
		log.Debug().Str("action", cmd.Action).Msg("command ignored: unknown action")
		triggersTotal.WithLabelValues("command", "ignored").Inc()
		return
	case cmd.RequestID == "":
		log.Debug().Msg("command ignored: no request id")
		triggersTotal.WithLabelValues("command", "ignored").Inc()
		return
	case cmd.RequestID == s.lastRequest:
		log.Debug().Str("request_id", cmd.RequestID).Msg("duplicate command")
		triggersTotal.WithLabelValues("command", "duplicate").Inc()
		return
	case domain.InFlight(s.st):
		// marked processed so a feed reconnect cannot replay it once the flight ends
		s.markProcessed(ctx, cmd.RequestID)
		log.Info().Str("request_id", cmd.RequestID).Str("state", s.st.Name()).Msg("command dropped: apply in flight")
		triggersTotal.WithLabelValues("command", "in_flight").Inc()
		return
	}

	s.markProcessed(ctx, cmd.RequestID)
	triggersTotal.WithLabelValues("command", "accepted").Inc()
	a := domain.ApplyContext{
		ID:        cmd.RequestID,
		Source:    domain.SourceManual,
		Trigger:   domain.TriggerCommand,
		RequestID: cmd.RequestID,
		LockID:    cmd.LockID,
		Started:   s.now(),
	}
	s.publish(ctx, domain.CodeCommandReceived, domain.MotivoManual, &a)
	s.schedule(ctx, a, s.cfg.CommandDelay)
}

// markProcessed records id as the last handled command, in memory and in the ledger
func (s *Service) markProcessed(ctx context.Context, id string) {
	s.lastRequest = id
	if s.deps.Ledger == nil {
		return
	}
	sctx, cancel := s.step(ctx)
	defer cancel()
	if err := s.deps.Ledger.SetLastRequestID(sctx, s.cfg.DeviceID, id); err != nil {
		logger.C(ctx).Error().Err(err).Str("request_id", id).Msg("ledger write failed")
	}
}

func (s *Service) onTimer(ctx context.Context, m timerMsg) {
	if m.kind == timerBoundary {
		if m.gen != s.boundaryGen {
			return
		}
		s.onBoundary(ctx)
		return
	}
	if m.gen != s.flightGen {
		return
	}
	switch st := s.st.(type) {
	case domain.Scheduled:
		if m.kind == timerStart {
			s.attempt(ctx, st.Ctx)
		}
	case domain.RetryScheduled:
		if m.kind == timerRetry {
			s.attempt(ctx, st.Ctx)
		}
	case domain.Awaiting:
		if m.kind == timerConfirm {
			actx := logger.WithApply(ctx, st.Ctx.ID, s.cfg.DeviceID)
			logger.C(actx).Warn().Dur("timeout", s.cfg.ConfirmTimeout).Msg("no confirmation in window")
			s.retry(actx, st.Ctx, &st.Lease, &st.Window, domain.MotivoTimeout, domain.Result{})
		}
	}
}

func (s *Service) onBoundary(ctx context.Context) {
	if domain.InFlight(s.st) {
		// the boundary is re-armed when the flight ends
		logger.C(ctx).Info().Str("state", s.st.Name()).Msg("boundary dropped: apply in flight")
		triggersTotal.WithLabelValues("boundary", "in_flight").Inc()
		return
	}
	triggersTotal.WithLabelValues("boundary", "accepted").Inc()
	a := domain.ApplyContext{
		ID:      "auto-" + newID(),
		Source:  domain.SourceAuto,
		Trigger: domain.TriggerBoundary,
		Reason:  domain.ReasonAutoShift,
		Started: s.now(),
	}
	s.schedule(ctx, a, s.cfg.BoundaryDelay)
}

// schedule moves to Scheduled and starts the apply after delay
func (s *Service) schedule(ctx context.Context, a domain.ApplyContext, delay time.Duration) {
	s.transition(ctx, domain.Scheduled{Ctx: a, At: s.now().Add(delay)})
	s.armFlight(timerStart, delay)
}

func (s *Service) armFlight(kind timerKind, d time.Duration) {
	s.stopFlight()
	s.flightGen++
	gen := s.flightGen
	s.flight = s.deps.Clock.AfterFunc(d, func() { s.post(timerMsg{kind: kind, gen: gen}) })
}

func (s *Service) stopFlight() {
	if s.flight != nil {
		s.flight.Stop()
		s.flight = nil
	}
	s.flightGen++
}

func (s *Service) armBoundary(at time.Time) {
	if s.boundary != nil {
		s.boundary.Stop()
	}
	s.boundaryGen++
	gen := s.boundaryGen
	s.boundaryAt = at
	s.boundary = s.deps.Clock.AfterFunc(at.Sub(s.deps.Clock.Now()), func() {
		s.post(timerMsg{kind: timerBoundary, gen: gen})
	})
}

func (s *Service) stopTimers() {
	s.stopFlight()
	if s.boundary != nil {
		s.boundary.Stop()
	}
}

// refresh re-arms the boundary and publishes the current and next target
func (s *Service) refresh(ctx context.Context, motivo string) {
	if s.doc == nil {
		return
	}
	now := s.now()
	sched := s.doc.Schedule()
	nextAt := shift.NextBoundary(sched, now)
	s.armBoundary(nextAt)

	cur := shift.SelectAt(sched, now)
	nxt := shift.SelectAt(sched, nextAt.Add(time.Second))
	s.plan = plan{
		targetID:   cur.TargetID,
		targetName: s.displayName(ctx, cur.TargetID),
		nextID:     nxt.TargetID,
		nextName:   s.displayName(ctx, nxt.TargetID),
		nextAt:     nextAt,
		turno:      cur.Label.Display(),
	}
	logger.C(ctx).Debug().Str("target", cur.TargetID).Str("reason", string(cur.Reason)).
		Time("next_boundary", nextAt).Msg("refreshed")
	s.publish(ctx, domain.CodeRefresh, motivo, nil)
}

// displayName resolves a contact name; failures degrade to no name
func (s *Service) displayName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	sctx, cancel := s.step(ctx)
	defer cancel()
	c, err := s.deps.Control.Resolve(sctx, id, s.cfg.DeviceID)
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			logger.C(ctx).Warn().Err(err).Str("contact", id).Msg("display name lookup failed")
		}
		return ""
	}
	return c.DisplayName
}
