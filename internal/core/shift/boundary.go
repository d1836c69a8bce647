package shift

import "time"

// Guard keeps the predictor from returning an instant that is already passing
const Guard = 2 * time.Second

// NextBoundary returns the next instant strictly after now+Guard at which SelectAt
// could change its answer. Candidate windows must track the rules in SelectAt
func NextBoundary(s Schedule, now time.Time) time.Time {
	loc := now.Location()
	safe := now.Add(Guard)
	y, m, d := now.Date()
	at := func(day, h, mi int) time.Time { return time.Date(y, m, d+day, h, mi, 0, 0, loc) }

	if InWeekendWindow(now) {
		var sunday int
		switch now.Weekday() {
		case time.Friday:
			sunday = 2
		case time.Saturday:
			sunday = 1
		}
		if target := at(sunday, 23, 0); target.After(safe) {
			return target
		}
		return at(sunday+1, 0, 0)
	}

	candidates := make([]time.Time, 0, 12)
	for day := 0; day <= 1; day++ {
		dow := at(day, 12, 0).Weekday()

		candidates = append(candidates, at(day, 7, 0))
		if isWeekday(dow) {
			candidates = append(candidates, at(day, 15, 0))
		}
		candidates = append(candidates, at(day, 23, 0))

		// intershift edges only matter when office mode or an empty slot falls through to it
		office := s.Mode == ModeOffice
		if isMonThu(dow) {
			if office || s.Morning == "" {
				candidates = append(candidates, at(day, 8, 30))
			}
			if office || s.Afternoon == "" {
				candidates = append(candidates, at(day, 17, 30))
			}
		}
		if dow == time.Friday {
			// end of the shortened Thursday night
			candidates = append(candidates, at(day, 0, 0))
			if office || s.Morning == "" {
				candidates = append(candidates, at(day, 8, 0))
			}
		}
	}

	var best time.Time
	for _, c := range candidates {
		if !c.After(safe) {
			continue
		}
		if best.IsZero() || c.Before(best) {
			best = c
		}
	}
	if best.IsZero() {
		return at(1, 0, 0)
	}
	return best
}
