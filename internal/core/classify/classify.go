// Package classify turns the free text of a carrier dialog into an apply outcome.
// Phrase sets live in the embedded phrases.json and are matched with one automaton
package classify

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"callrota/internal/core/normalize"
)

//go:embed phrases.json
var embedded []byte

// Outcome is the reduced result of one forwarding attempt
type Outcome string

const (
	OK        Outcome = "OK"
	Fail      Outcome = "FAIL"
	FailMixed Outcome = "FAIL_MIXED"
	Unknown   Outcome = "UNKNOWN"
)

// Success reports whether the outcome confirms the forwarding; only OK does
func (o Outcome) Success() bool { return o == OK }

// ParseOutcome accepts the wire names, anything else is Unknown
func ParseOutcome(s string) Outcome {
	switch o := Outcome(s); o {
	case OK, Fail, FailMixed:
		return o
	default:
		return Unknown
	}
}

type set uint8

const (
	setSuccess set = iota
	setFailure
	setFailureToken
	setIntermediate
	setSignal
)

type rawPhrases struct {
	Version       int      `json:"version"`
	Success       []string `json:"success"`
	Failure       []string `json:"failure"`
	FailureTokens []string `json:"failure_tokens"`
	Intermediate  []string `json:"intermediate"`
	Signals       []string `json:"signals"`
	MinSignals    int      `json:"min_signals"`
}

// Classifier holds the compiled phrase automaton; safe for concurrent use
type Classifier struct {
	ac         *automaton
	sets       []set // phrase id -> set
	minSignals int
	version    int
}

// New compiles a classifier from a phrases document
func New(raw []byte) (*Classifier, error) {
	var rp rawPhrases
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, fmt.Errorf("classify: decode phrases: %w", err)
	}
	if len(rp.Success) == 0 || len(rp.Failure) == 0 {
		return nil, fmt.Errorf("classify: phrases need both success and failure sets")
	}
	if rp.MinSignals < 1 {
		rp.MinSignals = 2
	}

	c := &Classifier{ac: newAutomaton(), minSignals: rp.MinSignals, version: rp.Version}
	add := func(s set, phrases []string) {
		for _, p := range phrases {
			p = normalize.String(p)
			if p == "" {
				continue
			}
			c.ac.add([]byte(p), len(c.sets))
			c.sets = append(c.sets, s)
		}
	}
	add(setSuccess, rp.Success)
	add(setFailure, rp.Failure)
	add(setFailureToken, rp.FailureTokens)
	add(setIntermediate, rp.Intermediate)
	add(setSignal, rp.Signals)
	c.ac.build()
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultC    *Classifier
)

// Default is the classifier built from the embedded phrases
func Default() *Classifier {
	defaultOnce.Do(func() {
		c, err := New(embedded)
		if err != nil {
			panic(err)
		}
		defaultC = c
	})
	return defaultC
}

// Version is the phrases document version
func (c *Classifier) Version() int { return c.version }

// scan collects which sets matched and how many distinct signal phrases hit
type scan struct {
	hit     [setSignal + 1]bool
	signals int
}

func (c *Classifier) scan(norm string) scan {
	var s scan
	seen := make(map[int]struct{})
	c.ac.each([]byte(norm), func(id int) bool {
		k := c.sets[id]
		s.hit[k] = true
		if k == setSignal {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				s.signals++
			}
		}
		return true
	})
	return s
}

// Classify maps normalized text to an outcome. Both phrase sets are always checked:
// text matching both is FailMixed, never OK. Bare failure tokens are the last resort
func (c *Classifier) Classify(norm string) Outcome {
	s := c.scan(norm)
	switch {
	case s.hit[setSuccess] && s.hit[setFailure]:
		return FailMixed
	case s.hit[setFailure]:
		return Fail
	case s.hit[setSuccess]:
		return OK
	case s.hit[setFailureToken]:
		return Fail
	default:
		return Unknown
	}
}

// IsIntermediate reports the "MMI code started" toast that precedes the real result
func (c *Classifier) IsIntermediate(norm string) bool {
	return c.scan(norm).hit[setIntermediate]
}

// LooksLikeForwardingResult needs at least minSignals distinct forwarding phrases
func (c *Classifier) LooksLikeForwardingResult(norm string) bool {
	return c.scan(norm).signals >= c.minSignals
}

// Verdict is the observer-side reading of one dialog
type Verdict struct {
	Normalized   string
	Intermediate bool
	Relevant     bool
	Outcome      Outcome
}

// Read normalizes raw dialog text once and runs every check on it
func (c *Classifier) Read(raw string) Verdict {
	norm := normalize.String(raw)
	s := c.scan(norm)
	v := Verdict{
		Normalized:   norm,
		Intermediate: s.hit[setIntermediate],
		Relevant:     s.signals >= c.minSignals,
	}
	v.Outcome = c.Classify(norm)
	return v
}

// ClassifyRaw normalizes then classifies
func (c *Classifier) ClassifyRaw(raw string) Outcome {
	return c.Classify(normalize.String(raw))
}

// Classify runs the default classifier
func Classify(norm string) Outcome { return Default().Classify(norm) }

// ClassifyRaw runs the default classifier on raw text
func ClassifyRaw(raw string) Outcome { return Default().ClassifyRaw(raw) }

// IsIntermediate runs the default classifier
func IsIntermediate(norm string) bool { return Default().IsIntermediate(norm) }

// LooksLikeForwardingResult runs the default classifier
func LooksLikeForwardingResult(norm string) bool { return Default().LooksLikeForwardingResult(norm) }
