package modkit

import (
	"net/http"

	phttp "callrota/internal/platform/net/http"
)

// Module is what main sees of a composed module
type Module interface {
	// MountRoutes mounts HTTP routes; control and lock have none
	MountRoutes(r phttp.Router)
	// Ports returns the module's port set for cross wiring
	Ports() any
	Name() string
}

// Option configures a module at construction
type Option func(*Built)

// Built is the resolved option set
type Built struct {
	Name  string
	Mw    []func(http.Handler) http.Handler
	Ports any
}

func WithName(name string) Option {
	return func(b *Built) { b.Name = name }
}

// WithMiddlewares wraps only the module's own routes, after the server defaults
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts hands a module the ports it consumes from its siblings; the
// consuming module declares T (orchestrator.Uses)
func WithPorts[T any](p T) Option {
	return func(b *Built) { b.Ports = p }
}

// Build applies opts in order; later options win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	return b
}

// PortsAs reports whether the injected ports were set and are a T
func PortsAs[T any](b Built) (T, bool) {
	t, ok := b.Ports.(T)
	return t, ok
}
