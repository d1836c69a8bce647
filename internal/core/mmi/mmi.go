// Package mmi builds the carrier feature codes that redirect calls
package mmi

import (
	"regexp"
	"strings"

	perr "callrota/internal/platform/errors"
)

// Blocked is the destination that must never receive forwarded calls
const Blocked = "900442290"

// MinDigits is the shortest destination accepted
const MinDigits = 6

var (
	forwardRE = regexp.MustCompile(`\*{1,2}21\*([^#]+)#?`)
	dropRE    = regexp.MustCompile(`[^0-9+]`)
	echoRE    = regexp.MustCompile(`\*{1,2}21\*(\+?[0-9]+)`)
)

// Builder turns contact phone strings into unconditional-forward codes
type Builder struct {
	blocked map[string]struct{}
}

// NewBuilder returns a builder refusing Blocked plus any extra destinations
func NewBuilder(extra ...string) *Builder {
	b := &Builder{blocked: map[string]struct{}{Blocked: {}}}
	for _, n := range extra {
		if n = clean(n); n != "" {
			b.blocked[n] = struct{}{}
		}
	}
	return b
}

var std = NewBuilder()

// BuildForward runs the default builder
func BuildForward(raw string) (string, error) { return std.BuildForward(raw) }

// BuildForward accepts a bare number or a stored code like "**21*600111222#" and returns *21*<n>#
func (b *Builder) BuildForward(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	candidate := raw
	if m := forwardRE.FindStringSubmatch(raw); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	n := clean(candidate)

	switch {
	case n == "":
		return "", perr.Newf(perr.ErrorCodePrecondition, "mmi: no digits in %q", raw)
	case len(n) < MinDigits:
		return "", perr.Newf(perr.ErrorCodePrecondition, "mmi: destination %q too short", n)
	}
	if _, bad := b.blocked[n]; bad {
		return "", perr.Newf(perr.ErrorCodeForbidden, "mmi: destination %s is blocked", n)
	}
	return "*21*" + n + "#", nil
}

// Fingerprint is the form the observer compares against what the dialer shows
func Fingerprint(code string) string {
	return strings.Join(strings.Fields(code), "")
}

// Destinations lists the numbers of every forward code echoed in text, with or without
// the closing '#'
func Destinations(text string) []string {
	var out []string
	for _, m := range echoRE.FindAllStringSubmatch(Fingerprint(text), -1) {
		out = append(out, m[1])
	}
	return out
}

func clean(s string) string { return dropRE.ReplaceAllString(s, "") }
