package shift

import (
	"testing"
	"time"
)

func TestNextBoundary(t *testing.T) {
	t.Parallel()

	noMorning := base()
	noMorning.Morning = ""
	noAfternoon := base()
	noAfternoon.Afternoon = ""
	office := base()
	office.Mode = ModeOffice

	tests := []struct {
		name string
		s    Schedule
		now  string
		want string
	}{
		{"before morning", base(), "2025-01-06T06:00", "2025-01-06T07:00"},
		{"during morning", base(), "2025-01-06T10:00", "2025-01-06T15:00"},
		{"during afternoon", base(), "2025-01-06T16:00", "2025-01-06T23:00"},
		{"during night", base(), "2025-01-06T23:30", "2025-01-07T07:00"},
		{"thursday night ends at midnight", base(), "2025-01-09T23:30", "2025-01-10T00:00"},
		{"friday early hours", base(), "2025-01-10T00:20", "2025-01-10T07:00"},
		{"friday afternoon", base(), "2025-01-10T16:00", "2025-01-10T23:00"},
		{"friday weekend start", base(), "2025-01-10T23:00", "2025-01-12T23:00"},
		{"saturday", base(), "2025-01-11T12:00", "2025-01-12T23:00"},
		{"sunday evening", base(), "2025-01-12T22:00", "2025-01-12T23:00"},
		{"intershift start mon-thu", noMorning, "2025-01-07T07:30", "2025-01-07T08:30"},
		{"intershift start friday", noMorning, "2025-01-10T07:30", "2025-01-10T08:00"},
		{"intershift end mon-thu", noAfternoon, "2025-01-08T16:00", "2025-01-08T17:30"},
		{"office window start", office, "2025-01-08T08:00", "2025-01-08T08:30"},
		{"office window end", office, "2025-01-08T12:00", "2025-01-08T15:00"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NextBoundary(tc.s, at(t, tc.now))
			if want := at(t, tc.want); !got.Equal(want) {
				t.Fatalf("NextBoundary(%s) = %s, want %s", tc.now, got, want)
			}
		})
	}
}

func TestNextBoundary_Guard(t *testing.T) {
	t.Parallel()

	// one second before a boundary is inside the guard, so it is skipped
	now := at(t, "2025-01-06T07:00").Add(-time.Second)
	if got, want := NextBoundary(base(), now), at(t, "2025-01-06T15:00"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	now = at(t, "2025-01-12T23:00").Add(-time.Second)
	if got, want := NextBoundary(base(), now), at(t, "2025-01-13T00:00"); !got.Equal(want) {
		t.Fatalf("weekend guard: got %s, want %s", got, want)
	}
}

// A week sampled every five minutes: the boundary is always ahead of the guard and
// the decision never changes before it.
func TestNextBoundary_DecisionStableUntilBoundary(t *testing.T) {
	t.Parallel()

	noMorning := base()
	noMorning.Morning = ""
	noAfternoon := base()
	noAfternoon.Afternoon = ""
	noNight := base()
	noNight.Night = ""
	office := base()
	office.Mode = ModeOffice
	holiday := base()
	holiday.Mode = ModeHoliday

	schedules := map[string]Schedule{
		"base": base(), "noMorning": noMorning, "noAfternoon": noAfternoon,
		"noNight": noNight, "office": office, "holiday": holiday,
	}

	start := at(t, "2025-01-06T00:00")
	end := start.AddDate(0, 0, 7)

	for name, s := range schedules {
		name, s := name, s
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for now := start; now.Before(end); now = now.Add(5 * time.Minute) {
				b := NextBoundary(s, now)
				if !b.After(now.Add(Guard)) {
					t.Fatalf("boundary %s not after guard for %s", b, now)
				}
				want := SelectAt(s, now)
				for probe := now.Add(time.Minute); probe.Before(b); probe = probe.Add(time.Minute) {
					if got := SelectAt(s, probe); got != want {
						t.Fatalf("decision changed at %s before boundary %s (from %s): %+v -> %+v",
							probe, b, now, want, got)
					}
				}
			}
		})
	}
}

func TestSelectNext_SkipsCurrentSlot(t *testing.T) {
	t.Parallel()
	d := SelectNext(base(), at(t, "2025-01-06T10:00"))
	if d.TargetID != "A1" || d.Reason != ReasonAfternoon {
		t.Fatalf("SelectNext during morning = %+v, want afternoon", d)
	}
	d = SelectNext(base(), at(t, "2025-01-11T12:00"))
	if d.TargetID != "N1" || d.Reason != ReasonNight {
		t.Fatalf("SelectNext during weekend = %+v, want sunday night", d)
	}
}
