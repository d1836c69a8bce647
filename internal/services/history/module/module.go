// Package module wires attempt history as a modkit.Module
package module

import (
	"context"

	"callrota/internal/modkit"
	"callrota/internal/modkit/httpkit"
	"callrota/internal/services/history/domain"
	"callrota/internal/services/history/repo"
	"callrota/internal/services/history/service"
)

// Ports exported by the history module
type Ports struct {
	Sink domain.Sink
}

// Module implements modkit.Module for attempt history
type Module struct {
	repo  *repo.CH
	svc   *service.Service
	ports Ports
}

// New builds the ClickHouse sink when enabled and deps.CH is set, else a no-op sink
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	if !opts.Enabled || deps.CH == nil {
		if opts.Enabled {
			deps.Log.Warn().Msg("history enabled but clickhouse is not configured; attempts are discarded")
		}
		return &Module{ports: Ports{Sink: domain.Nop}}
	}
	r := repo.NewCH(deps.CH)
	svc := service.New(r, service.Config{
		Buffer:     opts.Buffer,
		BatchSize:  opts.BatchSize,
		FlushEvery: opts.FlushEvery,
	})
	return &Module{repo: r, svc: svc, ports: Ports{Sink: svc}}
}

// Enabled reports whether attempts reach ClickHouse
func (m *Module) Enabled() bool { return m.svc != nil }

// Migrate creates the attempts table; no-op when disabled
func (m *Module) Migrate(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	return m.repo.EnsureSchema(ctx)
}

// Run flushes the buffer until ctx ends; returns at once when disabled
func (m *Module) Run(ctx context.Context) error {
	if m.svc == nil {
		return nil
	}
	return m.svc.Run(ctx)
}

// Name returns the module name
func (m *Module) Name() string { return "history" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op
func (m *Module) MountRoutes(_ httpkit.Router) {}
