// Package normalize folds dialog text into a stable form before phrase matching
// Pipeline order
// 1 sanitize control bytes and drop invalid UTF-8
// 2 Unicode NFD so accents split into base letter plus combining mark
// 3 strip combining marks and format chars (ZWJ ZWNJ FEFF)
// 4 case folding
// 5 width fold fullwidth to ASCII
// 6 collapse whitespace to single spaces and trim
//
// Digits and symbols are kept as is: feature codes like *21*600111222# must survive
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer is concurrency safe; transformer chains come from a pool
type Normalizer struct{}

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)), // "é" -> "e"
			runes.Remove(runes.In(unicode.Cf)),
			cases.Fold(),
			width.Fold,
		)
	},
}

var std = New()

// New constructs a Normalizer
func New() *Normalizer { return &Normalizer{} }

// String normalizes s with the package normalizer
func String(s string) string { return std.Normalize(s) }

// Normalize returns the folded form of s
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		// a chain error leaves a partial result; the lowered input is a better match target
		ns = strings.ToLower(s)
	}

	return collapseSpaces(ns)
}

// collapseSpaces turns every whitespace run, newlines included, into one ASCII space and trims the ends
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
