package module

import "sync"

// registry holds the port sets each module's Register publishes, keyed by module name.
// The agent main builds control and lock first, so the orchestrator and tests can look them up
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register publishes ports under name; a later call for the same name replaces it
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs returns the ports registered under name when they are a T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Reset empties the registry
func Reset() {
	mu.Lock()
	reg = map[string]any{}
	mu.Unlock()
}
