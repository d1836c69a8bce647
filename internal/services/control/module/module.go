// Package module wires the control plane as a modkit.Module
package module

import (
	"context"

	"callrota/internal/modkit"
	"callrota/internal/modkit/httpkit"
	modreg "callrota/internal/modkit/module"
	"callrota/internal/services/control/domain"
	"callrota/internal/services/control/repo"
	"callrota/internal/services/control/service"
)

// Ports exported by the control module
type Ports struct {
	Agent   domain.AgentPort
	Console domain.ConsolePort
}

// Module implements modkit.Module for the control plane
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the control module; deps.PG is required, deps.Notify only for feeds
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	svc := service.New(deps.PG, repo.NewPG(), deps.Notify, service.Config{
		Backoff:    opts.FeedBackoff,
		MaxBackoff: opts.FeedMaxBackoff,
		AuditLimit: opts.AuditLimit,
	})
	return &Module{deps: deps, ports: Ports{Agent: svc, Console: svc}}
}

// Migrate applies the control schema, which also carries the lock columns
func (m *Module) Migrate(ctx context.Context) error {
	return repo.Migrate(ctx, m.deps.PG)
}

// Name returns the module name
func (m *Module) Name() string { return "control" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op: the control plane is reached through Postgres, not HTTP
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Register makes the control ports resolvable through the registry
func Register(deps modkit.Deps) *Module {
	m := New(deps)
	modreg.Register(m.Name(), m.ports)
	return m
}
