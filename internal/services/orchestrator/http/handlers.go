// Package http serves the agent's local surface: health, metrics, the status view,
// the armed confirmation window and the observer's confirmation intake
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"callrota/internal/core/classify"
	"callrota/internal/core/version"
	"callrota/internal/modkit/httpkit"
	"callrota/internal/platform/logger"
	ctrl "callrota/internal/services/control/domain"
	"callrota/internal/services/orchestrator/domain"
	svc "callrota/internal/services/orchestrator/service"
)

// Agent is the orchestrator surface the handlers read from
type Agent interface {
	Device() string
	View() svc.View
	Observe(ctx context.Context, o domain.Observation) (domain.Ack, error)
	Subscribe() (<-chan ctrl.Snapshot, func())
}

// Pinger is satisfied by backends that expose Ping
type Pinger interface {
	Ping(context.Context) error
}

// Deps are the handler dependencies
type Deps struct {
	Agent     Agent
	Service   string
	StartedAt time.Time
	// Checks are pinged by /healthz; nil entries report skipped
	Checks map[string]any
}

const (
	writeWait = 5 * time.Second
	pingEvery = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	// the console runs from operator laptops, not a browser origin
	CheckOrigin: func(*stdhttp.Request) bool { return true },
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the agent routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d, now: time.Now}

	httpkit.Get(r, "/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())
	// long-lived: kept out of the JSON timeout stack
	r.Get("/v1/status/stream", h.stream)

	httpkit.MountAPI(r, "v1", httpkit.JSONStack(10*time.Second), func(v1 httpkit.Router) {
		httpkit.Get(v1, "/status", h.status)
		httpkit.Get(v1, "/window", h.window)
		httpkit.PostJSON[ConfirmationInput](v1, "/confirmations", h.confirm)
	})
}

// HealthCheck is one dependency probe
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail skipped unknown
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the /healthz payload
type HealthResponse struct {
	Status  string            `json:"status"` // ok degraded fail
	Service string            `json:"service"`
	Device  string            `json:"device"`
	State   string            `json:"state"`
	Started string            `json:"started"`
	Uptime  int64             `json:"uptime"`
	Build   version.BuildInfo `json:"build"`
	Checks  []HealthCheck     `json:"checks"`
}

func (h *handlers) health(r *stdhttp.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := HealthResponse{
		Status:  "ok",
		Service: h.deps.Service,
		Device:  h.deps.Agent.Device(),
		State:   h.deps.Agent.View().State,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.now().Sub(h.deps.StartedAt) / time.Second),
		Build:   version.Info(h.deps.Service),
		Checks:  []HealthCheck{},
	}
	for _, name := range []string{"pg", "ch"} {
		c, ok := h.deps.Checks[name]
		if !ok {
			continue
		}
		hc := HealthCheck{Name: name, Status: "unknown"}
		switch p := c.(type) {
		case nil:
			hc.Status = "skipped"
		case Pinger:
			hc.Status = "ok"
			if err := p.Ping(ctx); err != nil {
				hc.Status, hc.Error = "fail", err.Error()
			}
		}
		out.Checks = append(out.Checks, hc)
		switch {
		case hc.Status == "fail" && name == "pg":
			out.Status = "fail"
		case hc.Status == "fail" && out.Status == "ok":
			out.Status = "degraded"
		}
	}
	return out, nil
}

func (h *handlers) status(_ *stdhttp.Request) (any, error) {
	return h.deps.Agent.View(), nil
}

// WindowResponse tells the observer which code it should be watching for
type WindowResponse struct {
	Device string         `json:"device"`
	Armed  bool           `json:"armed"`
	Window *domain.Window `json:"window,omitempty"`
}

func (h *handlers) window(_ *stdhttp.Request) (any, error) {
	w := h.deps.Agent.View().Window
	return WindowResponse{Device: h.deps.Agent.Device(), Armed: w != nil, Window: w}, nil
}

// ConfirmationInput is one observed dialog or an explicit outcome
type ConfirmationInput struct {
	Text    string `json:"text"    validate:"required_without=Outcome,max=4096"`
	Outcome string `json:"outcome" validate:"omitempty,oneof=OK FAIL FAIL_MIXED UNKNOWN"`
	// ObservedAt is epoch ms; zero means now
	ObservedAt int64 `json:"observedAt" validate:"min=0"`
}

// Observation converts the body to the orchestrator form
func (in ConfirmationInput) Observation() domain.Observation {
	o := domain.Observation{Text: in.Text}
	if in.Outcome != "" {
		o.Outcome = classify.ParseOutcome(in.Outcome)
	}
	if in.ObservedAt > 0 {
		o.ObservedAt = time.UnixMilli(in.ObservedAt)
	}
	return o
}

// ConfirmationResponse reports what the loop did with the confirmation
type ConfirmationResponse struct {
	Ack domain.Ack `json:"ack"`
}

func (h *handlers) confirm(r *stdhttp.Request, in ConfirmationInput) (any, error) {
	ack, err := h.deps.Agent.Observe(r.Context(), in.Observation())
	if err != nil {
		return nil, err
	}
	logger.C(r.Context()).Debug().Str("ack", string(ack)).Str("outcome", in.Outcome).Msg("confirmation ingested")
	return ConfirmationResponse{Ack: ack}, nil
}

// stream pushes every published snapshot as a JSON text frame until the peer goes away
func (h *handlers) stream(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	log := logger.C(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		log.Debug().Err(err).Msg("status stream upgrade refused")
		return
	}
	defer conn.Close()

	snaps, cancel := h.deps.Agent.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug().Err(err).Msg("status stream write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
