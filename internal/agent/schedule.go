package agent

import "time"

// hourlySchedule fires once per matching hour.
type hourlySchedule struct {
	hours    []int
	lastFire time.Time
}

func (s *hourlySchedule) due(now time.Time) bool {
	if !containsHour(s.hours, now.Hour()) {
		return false
	}
	if !s.lastFire.IsZero() && sameHour(s.lastFire, now) {
		return false
	}
	return true
}

func (s *hourlySchedule) fired(now time.Time) {
	s.lastFire = now
}

// intervalSchedule fires when at least the interval has elapsed since the
// last fire. The first check fires immediately.
type intervalSchedule struct {
	every    time.Duration
	lastFire time.Time
}

func (s *intervalSchedule) due(now time.Time) bool {
	if s.every <= 0 {
		return false
	}
	if s.lastFire.IsZero() {
		return true
	}
	return now.Sub(s.lastFire) >= s.every
}

func (s *intervalSchedule) fired(now time.Time) {
	s.lastFire = now
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

func sameHour(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay() && a.Hour() == b.Hour()
}
