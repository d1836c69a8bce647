// Package module wires the apply lock as a modkit.Module
package module

import (
	"context"
	"fmt"

	"callrota/internal/modkit"
	"callrota/internal/modkit/httpkit"
	modreg "callrota/internal/modkit/module"
	"callrota/internal/modkit/repokit"
	"callrota/internal/services/lock/domain"
	"callrota/internal/services/lock/repo"
	"callrota/internal/services/lock/service"
)

// Ports exported by the lock module
type Ports struct {
	Lock domain.LockPort
}

// Module implements modkit.Module for the apply lock
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the lock module; deps.PG is required
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	db := repokit.WithBeginHooks(deps.PG, lockTimeout(opts))
	svc := service.New(db, repo.NewPG(), service.Config{TTL: opts.TTL})

	return &Module{deps: deps, ports: Ports{Lock: svc}}
}

// lockTimeout keeps a stuck peer from parking our FOR UPDATE forever
func lockTimeout(opts Options) repokit.BeginHook {
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", opts.LockTimeout.Milliseconds())
	return func(ctx context.Context, q repokit.Queryer) error {
		if opts.LockTimeout <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, stmt)
		return err
	}
}

// Name returns the module name
func (m *Module) Name() string { return "lock" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op: the lock has no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Register makes the lock ports resolvable through the registry
func Register(deps modkit.Deps) *Module {
	m := New(deps)
	modreg.Register(m.Name(), m.ports)
	return m
}
