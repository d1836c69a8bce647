// Package module wires the apply orchestrator, its device adapters and the agent HTTP surface
package module

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"callrota/internal/adapters/dialer"
	"callrota/internal/adapters/ledger"
	"callrota/internal/adapters/phonebook"
	"callrota/internal/core/classify"
	"callrota/internal/core/mmi"
	"callrota/internal/modkit"
	"callrota/internal/modkit/httpkit"
	modreg "callrota/internal/modkit/module"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	str "callrota/internal/platform/strings"
	ctrl "callrota/internal/services/control/domain"
	histdom "callrota/internal/services/history/domain"
	lockdom "callrota/internal/services/lock/domain"
	"callrota/internal/services/orchestrator/domain"
	orchhttp "callrota/internal/services/orchestrator/http"
	"callrota/internal/services/orchestrator/service"
)

// ServiceName is reported by /healthz
const ServiceName = "callrota-agent"

// Uses are the sibling ports the orchestrator consumes, injected with modkit.WithPorts
type Uses struct {
	Control ctrl.AgentPort
	Lock    lockdom.LockPort
	History histdom.Sink
}

// Ports exported by the orchestrator module
type Ports struct {
	Agent *service.Service
}

// Module implements modkit.Module for one device agent
type Module struct {
	deps    modkit.Deps
	opts    Options
	name    string
	mws     []func(http.Handler) http.Handler
	svc     *service.Service
	book    *phonebook.File
	ledger  *ledger.Badger
	started time.Time
}

// New opens the device adapters and builds the loop; Uses must carry control and lock
func New(deps modkit.Deps, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("orchestrator")}, opts...)...)
	uses, ok := modkit.PortsAs[Uses](b)
	if !ok || uses.Control == nil || uses.Lock == nil {
		return nil, perr.Newf(perr.ErrorCodePrecondition, "orchestrator: control and lock ports are required")
	}
	o := FromConfig(deps.Cfg)

	book, err := phonebook.Open(o.PhonebookPath)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePrecondition, "orchestrator: phonebook %s", o.PhonebookPath)
	}
	dial, err := newDialer(o)
	if err != nil {
		return nil, err
	}
	path := o.LedgerPath
	if strings.EqualFold(path, "memory") {
		path = ""
	}
	led, err := ledger.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "orchestrator: ledger %s", o.LedgerPath)
	}

	svc := service.New(service.Config{
		DeviceID:       o.DeviceID,
		Owner:          o.Owner,
		Zone:           o.Zone,
		ConfirmTimeout: o.ConfirmTimeout,
		RetryDelay:     o.RetryDelay,
		RetryMax:       o.RetryMax,
		LockTTL:        o.LockTTL,
		CommandDelay:   o.CommandDelay,
		BoundaryDelay:  o.BoundaryDelay,
		ReclaimOnStart: o.ReclaimOnStart,
	}, service.Deps{
		Control:    uses.Control,
		Lock:       uses.Lock,
		Dialer:     dial,
		Phonebook:  book,
		Ledger:     led,
		History:    uses.History,
		Classifier: classify.Default(),
		Codes:      mmi.NewBuilder(o.Blocked...),
		Clock:      domain.RealClock{},
	})

	logger.Named("orchestrator").Info().Str("device", o.DeviceID).Str("dialer", o.Dialer).Int("phonebook", book.Len()).
		Str("zone", o.Zone.String()).Msg("orchestrator configured")
	return &Module{
		deps:    deps,
		opts:    o,
		name:    b.Name,
		mws:     b.Mw,
		svc:     svc,
		book:    book,
		ledger:  led,
		started: time.Now(),
	}, nil
}

func newDialer(o Options) (domain.Dialer, error) {
	switch strings.ToLower(o.Dialer) {
	case DialerTwilio:
		d, err := dialer.NewTwilio(o.Twilio)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodePrecondition, "orchestrator: twilio dialer")
		}
		return d, nil
	default:
		return dialer.Log{Device: o.DeviceID}, nil
	}
}

// Run drives the loop, the phonebook watcher and the ledger GC until ctx ends, then closes the ledger
func (m *Module) Run(ctx context.Context) error {
	defer func() {
		if err := m.ledger.Close(); err != nil {
			logger.Named("orchestrator").Warn().Err(err).Msg("ledger close")
		}
	}()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.svc.Run(ctx) })
	g.Go(func() error {
		// a broken watcher only costs hot reload
		if err := m.book.Watch(ctx); err != nil {
			logger.Named("phonebook").Warn().Err(err).Str("path", m.opts.PhonebookPath).Msg("phonebook watch disabled")
		}
		return nil
	})
	g.Go(func() error { return m.ledger.RunGC(ctx, m.opts.LedgerGC) })
	return g.Wait()
}

// Agent returns the orchestrator loop
func (m *Module) Agent() *service.Service { return m.svc }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "orchestrator module name") }

// Ports returns the module ports
func (m *Module) Ports() any { return Ports{Agent: m.svc} }

// MountRoutes mounts health, metrics and the /v1 agent routes
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Group(func(g httpkit.Router) {
		if len(m.mws) > 0 {
			g.Use(m.mws...)
		}
		orchhttp.Register(g, orchhttp.Deps{
			Agent:     m.svc,
			Service:   ServiceName,
			StartedAt: m.started,
			Checks:    map[string]any{"pg": m.deps.PG, "ch": m.deps.CH},
		})
	})
}

// Register builds the module and makes its ports resolvable through the registry
func Register(deps modkit.Deps, opts ...modkit.Option) (*Module, error) {
	m, err := New(deps, opts...)
	if err != nil {
		return nil, err
	}
	modreg.Register(m.Name(), m.Ports())
	return m, nil
}
