package shift

import (
	"testing"
	"time"
)

var madrid = MustZone(DefaultZone)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02T15:04", s, madrid)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return v
}

func base() Schedule {
	return Schedule{
		Mode:        ModeNormal,
		N2:          "N2",
		Morning:     "M1",
		Afternoon:   "A1",
		Night:       "N1",
		InterMonThu: "I1",
		InterFri:    "IF1",
	}
}

func TestSelectAt_Scenarios(t *testing.T) {
	t.Parallel()

	noNight := base()
	noNight.Night = ""

	office := base()
	office.Mode = ModeOffice

	holiday := base()
	holiday.Mode = ModeHoliday

	noMorning := base()
	noMorning.Morning = ""

	noMorningNoInter := noMorning
	noMorningNoInter.InterMonThu = ""

	noAfternoon := base()
	noAfternoon.Afternoon = ""

	noN2 := base()
	noN2.N2 = ""

	tests := []struct {
		name   string
		s      Schedule
		at     string
		target string
		label  Label
		reason Reason
	}{
		{"thursday 00:20 night assigned", base(), "2025-01-09T00:20", "N1", LabelNight, ReasonNight},
		{"thursday 00:20 night unassigned", noNight, "2025-01-09T00:20", "N2", LabelOnCall, ReasonNightFallback},
		{"office inside intershift window", office, "2025-01-08T09:00", "I1", LabelIntershift, ReasonOffice},
		{"office outside intershift window", office, "2025-01-08T19:00", "N2", LabelOnCall, ReasonOffice},
		{"friday 00:20 default", base(), "2025-01-10T00:20", "N2", LabelOnCall, ReasonDefault},
		{"holiday overrides time", holiday, "2025-01-08T10:00", "N2", LabelOnCall, ReasonHoliday},
		{"holiday overrides night", holiday, "2025-01-09T00:20", "N2", LabelOnCall, ReasonHoliday},
		{"sunday 22:59 weekend", base(), "2025-01-12T22:59", "N2", LabelOnCall, ReasonWeekend},
		{"sunday 23:00 night", base(), "2025-01-12T23:00", "N1", LabelNight, ReasonNight},
		{"saturday noon weekend", base(), "2025-01-11T12:00", "N2", LabelOnCall, ReasonWeekend},
		{"friday 23:00 weekend starts", base(), "2025-01-10T23:00", "N2", LabelOnCall, ReasonWeekend},
		{"monday 07:00 morning", base(), "2025-01-06T07:00", "M1", LabelMorning, ReasonMorning},
		{"monday 06:59 still sunday night", base(), "2025-01-06T06:59", "N1", LabelNight, ReasonNight},
		{"monday 15:00 afternoon", base(), "2025-01-06T15:00", "A1", LabelAfternoon, ReasonAfternoon},
		{"monday 23:00 night", base(), "2025-01-06T23:00", "N1", LabelNight, ReasonNight},
		{"morning falls to intershift in window", noMorning, "2025-01-07T09:00", "I1", LabelIntershift, ReasonMorningInter},
		{"morning before intershift window", noMorning, "2025-01-07T08:00", "N2", LabelOnCall, ReasonMorningInter},
		{"morning without intershift", noMorningNoInter, "2025-01-07T09:00", "N2", LabelOnCall, ReasonMorningN2},
		{"friday morning uses friday intershift", noMorning, "2025-01-10T08:15", "IF1", LabelIntershift, ReasonMorningInter},
		{"afternoon falls to intershift", noAfternoon, "2025-01-08T16:00", "I1", LabelIntershift, ReasonAfternoonInter},
		{"afternoon after intershift window", noAfternoon, "2025-01-08T18:00", "N2", LabelOnCall, ReasonAfternoonInter},
		{"friday afternoon after friday window", noAfternoon, "2025-01-10T16:00", "N2", LabelOnCall, ReasonAfternoonInter},
		{"no n2 yields no target", noN2, "2025-01-11T12:00", "", LabelOnCall, ReasonWeekend},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := SelectAt(tc.s, at(t, tc.at))
			if d.TargetID != tc.target || d.Label != tc.label || d.Reason != tc.reason {
				t.Fatalf("SelectAt(%s) = {%q %s %s}, want {%q %s %s}",
					tc.at, d.TargetID, d.Label, d.Reason, tc.target, tc.label, tc.reason)
			}
		})
	}
}

func TestSelectAt_Deterministic(t *testing.T) {
	t.Parallel()
	s := base()
	for _, v := range []string{"2025-01-06T07:00", "2025-01-09T00:20", "2025-01-11T12:00"} {
		a, b := SelectAt(s, at(t, v)), SelectAt(s, at(t, v))
		if a != b {
			t.Fatalf("SelectAt not deterministic at %s: %+v vs %+v", v, a, b)
		}
	}
}

func TestSelectAt_LabelFollowsChosenSlot(t *testing.T) {
	t.Parallel()
	s := base()
	s.Night = ""
	s.N2 = "M1" // n2 doubles as the morning contact
	d := SelectAt(s, at(t, "2025-01-09T00:20"))
	if d.TargetID != "M1" || d.Label != LabelMorning {
		t.Fatalf("got %+v, want M1 labelled Morning", d)
	}
}

func TestSelectAt_CarriesDiagnostics(t *testing.T) {
	t.Parallel()
	d := SelectAt(base(), at(t, "2025-01-06T10:00"))
	if d.Mode != ModeNormal || d.NightID != "N1" || d.N2ID != "N2" {
		t.Fatalf("diagnostic fields = %+v", d)
	}
}

func TestLabel_Display(t *testing.T) {
	t.Parallel()
	cases := map[Label]string{
		LabelMorning:    "Mañana",
		LabelAfternoon:  "Tarde",
		LabelIntershift: "Entreturno",
		LabelNight:      "Noche",
		LabelOnCall:     "Guardia",
	}
	for l, want := range cases {
		if got := l.Display(); got != want {
			t.Fatalf("%s.Display() = %q, want %q", l, got, want)
		}
	}
}
