// Package module resolves one module's ports out of another at bootstrap
package module

import (
	"reflect"

	"callrota/internal/modkit"
)

// PortsOf finds T on m.Ports(): the port set itself or one of its exported fields
// (controlmod.Ports.Agent, lockmod.Ports.Lock, ...)
func PortsOf[T any](m modkit.Module) (T, bool) {
	var zero T
	p := m.Ports()
	if p == nil {
		return zero, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(p)
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	for i := range rv.NumField() {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustPortsOf panics when m does not carry T; main wires modules before serving
func MustPortsOf[T any](m modkit.Module) T {
	v, ok := PortsOf[T](m)
	if !ok {
		panic("module: " + m.Name() + " has no " + reflect.TypeFor[T]().String() + " port")
	}
	return v
}
