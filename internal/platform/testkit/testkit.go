// Package testkit holds the assertions and seam helpers shared by the agent's tests
package testkit

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// seams is held by tests that rewrite package-level vars (clocks, id generators, pool constructors)
var seams sync.Mutex

// Serial holds the seam lock until the test ends
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}

// Swap replaces *target for the lifetime of t; callers that run in parallel must hold Serial first
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	prev := *target
	*target = replacement
	t.Cleanup(func() { *target = prev })
}

func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if r := recovered(fn); r == nil {
		t.Fatalf("expected panic, got none")
	}
}

func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if r := recovered(fn); r != nil {
		t.Fatalf("unexpected panic: %v", r)
	}
}

func recovered(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}

// MustContain fails with the full output so console and log assertions are readable in CI
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output does not contain %q\n--- output ---\n%s", needle, haystack)
	}
}

// Eventually polls cond every tick until it holds or within elapses
func Eventually(t *testing.T, within, tick time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(within)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("not met within %s: %s", within, msg)
		}
		time.Sleep(tick)
	}
}
