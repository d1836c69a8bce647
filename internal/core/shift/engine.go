// Package shift maps a device schedule and an instant to the contact that should
// receive forwarded calls, and predicts the next instant that answer can change.
// Everything here is pure: no clocks, no I/O. Instants are read in their own location,
// so callers pass times already converted to the rotation zone
package shift

import "time"

// Label names the shift slot a decision landed on
type Label string

const (
	LabelMorning    Label = "Morning"
	LabelAfternoon  Label = "Afternoon"
	LabelIntershift Label = "Intershift"
	LabelNight      Label = "Night"
	LabelOnCall     Label = "OnCall"
)

// Display is the operator-facing form used in status payloads
func (l Label) Display() string {
	switch l {
	case LabelMorning:
		return "Mañana"
	case LabelAfternoon:
		return "Tarde"
	case LabelIntershift:
		return "Entreturno"
	case LabelNight:
		return "Noche"
	default:
		return "Guardia"
	}
}

// Reason tags the rule that produced a decision
type Reason string

const (
	ReasonHoliday        Reason = "MODE_HOLIDAY"
	ReasonWeekend        Reason = "WEEKEND_FALLBACK"
	ReasonNight          Reason = "NIGHT"
	ReasonNightFallback  Reason = "NIGHT_FALLBACK"
	ReasonOffice         Reason = "OFFICE"
	ReasonNoWeekday      Reason = "NORMAL_NO_WEEKDAY_FALLBACK"
	ReasonMorning        Reason = "MORNING"
	ReasonMorningInter   Reason = "MORNING_FALLBACK_INTER"
	ReasonMorningN2      Reason = "MORNING_FALLBACK_N2"
	ReasonAfternoon      Reason = "AFTERNOON"
	ReasonAfternoonInter Reason = "AFTERNOON_FALLBACK_INTER"
	ReasonAfternoonN2    Reason = "AFTERNOON_FALLBACK_N2"
	ReasonDefault        Reason = "DEFAULT_FALLBACK"
)

// Decision is the immutable result of one evaluation
type Decision struct {
	// TargetID is empty when not even n2 is configured; callers treat that as a hard failure
	TargetID string
	Label    Label
	Reason   Reason
	Mode     Mode
	NightID  string
	N2ID     string
}

// HasTarget reports whether the decision resolved to a contact
func (d Decision) HasTarget() bool { return d.TargetID != "" }

// clock is a local wall time in seconds since midnight
type clock int

func hm(h, m int) clock { return clock(h*3600 + m*60) }

func clockOf(t time.Time) clock {
	h, m, s := t.Clock()
	return clock(h*3600 + m*60 + s)
}

var (
	c0700 = hm(7, 0)
	c0800 = hm(8, 0)
	c0830 = hm(8, 30)
	c1500 = hm(15, 0)
	c1730 = hm(17, 30)
	c2300 = hm(23, 0)
)

// inRange is [start,end) with wrap-around past midnight when start > end
func inRange(t, start, end clock) bool {
	if start <= end {
		return t >= start && t < end
	}
	return t >= start || t < end
}

func isMonThu(d time.Weekday) bool { return d >= time.Monday && d <= time.Thursday }

func isWeekday(d time.Weekday) bool { return d >= time.Monday && d <= time.Friday }

// nightDay covers the nights that start Sunday through Thursday
func nightDay(d time.Weekday) bool { return d == time.Sunday || isMonThu(d) }

// effectiveNightDay assigns early-morning instants to the previous calendar day
func effectiveNightDay(at time.Time) time.Weekday {
	if clockOf(at) < c0700 {
		return at.AddDate(0, 0, -1).Weekday()
	}
	return at.Weekday()
}

// InNightWindow reports [23:00,07:00) for nights starting Sunday through Thursday.
// The Thursday night is cut at midnight: Friday early hours fall through to the default rule
func InNightWindow(at time.Time) bool {
	if !inRange(clockOf(at), c2300, c0700) {
		return false
	}
	return nightDay(effectiveNightDay(at)) && !(at.Weekday() == time.Friday && clockOf(at) < c0700)
}

// InWeekendWindow reports Friday 23:00 through Sunday 23:00
func InWeekendWindow(at time.Time) bool {
	t := clockOf(at)
	switch at.Weekday() {
	case time.Friday:
		return t >= c2300
	case time.Saturday:
		return true
	case time.Sunday:
		return t < c2300
	default:
		return false
	}
}

// inInterWindow is Mon-Thu 08:30-17:30 and Fri 08:00-15:00
func inInterWindow(at time.Time) bool {
	d, t := at.Weekday(), clockOf(at)
	return (isMonThu(d) && inRange(t, c0830, c1730)) ||
		(d == time.Friday && inRange(t, c0800, c1500))
}

// interFor picks the intershift variant for the weekday
func (s Schedule) interFor(d time.Weekday) string {
	switch {
	case isMonThu(d):
		return s.InterMonThu
	case d == time.Friday:
		return s.InterFri
	default:
		return ""
	}
}

// labelFor maps the chosen id back to its slot; ties resolve in slot order
func (s Schedule) labelFor(chosen, inter string) Label {
	switch {
	case chosen == "":
		return LabelOnCall
	case chosen == s.Morning:
		return LabelMorning
	case chosen == s.Afternoon:
		return LabelAfternoon
	case chosen == s.Night:
		return LabelNight
	case chosen == inter:
		return LabelIntershift
	default:
		return LabelOnCall
	}
}

// SelectAt evaluates the rotation rules in order; the first match wins
func SelectAt(s Schedule, at time.Time) Decision {
	dec := func(target string, label Label, reason Reason) Decision {
		return Decision{TargetID: target, Label: label, Reason: reason, Mode: s.Mode, NightID: s.Night, N2ID: s.N2}
	}

	d, t := at.Weekday(), clockOf(at)
	inter := s.interFor(d)

	if s.Mode == ModeHoliday {
		return dec(s.N2, LabelOnCall, ReasonHoliday)
	}

	if InWeekendWindow(at) {
		return dec(s.N2, LabelOnCall, ReasonWeekend)
	}

	if InNightWindow(at) {
		if s.Night != "" {
			return dec(s.Night, s.labelFor(s.Night, inter), ReasonNight)
		}
		return dec(s.N2, s.labelFor(s.N2, inter), ReasonNightFallback)
	}

	// intershift when inside its window, n2 otherwise
	interOrN2 := func() string {
		if inter != "" && inInterWindow(at) {
			return inter
		}
		return s.N2
	}

	if s.Mode == ModeOffice {
		chosen := interOrN2()
		return dec(chosen, s.labelFor(chosen, inter), ReasonOffice)
	}

	if !isWeekday(d) {
		return dec(s.N2, LabelOnCall, ReasonNoWeekday)
	}

	if inRange(t, c0700, c1500) {
		if s.Morning != "" {
			return dec(s.Morning, LabelMorning, ReasonMorning)
		}
		chosen := interOrN2()
		reason := ReasonMorningN2
		if inter != "" {
			reason = ReasonMorningInter
		}
		return dec(chosen, s.labelFor(chosen, inter), reason)
	}

	if inRange(t, c1500, c2300) {
		if s.Afternoon != "" {
			return dec(s.Afternoon, LabelAfternoon, ReasonAfternoon)
		}
		chosen := interOrN2()
		reason := ReasonAfternoonN2
		if inter != "" {
			reason = ReasonAfternoonInter
		}
		return dec(chosen, s.labelFor(chosen, inter), reason)
	}

	return dec(s.N2, LabelOnCall, ReasonDefault)
}

// SelectNext skips the current slot and evaluates just after the next boundary
func SelectNext(s Schedule, now time.Time) Decision {
	return SelectAt(s, NextBoundary(s, now).Add(time.Second))
}
