package domain

import (
	"strings"
	"time"
)

// dateLayouts are tried in order; the first that parses wins
var dateLayouts = []string{
	"02/01/06",
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"01/02/06",
}

// DateValue keeps the display string next to its parsed calendar date.
// Time is nil when no layout matched.
type DateValue struct {
	Raw  string     `json:"raw"`
	Time *time.Time `json:"date,omitempty"`
}

// ParseDate parses a label date string
func ParseDate(raw string) DateValue {
	v := DateValue{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return v
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time = &t
			return v
		}
	}
	return v
}

// Known reports whether the date parsed
func (d DateValue) Known() bool {
	return d.Time != nil
}

// DaysFrom returns whole calendar days from today to the date
func (d DateValue) DaysFrom(today time.Time) (int, bool) {
	if d.Time == nil {
		return 0, false
	}
	t := *d.Time
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24), true
}

// CompareExpiry orders known dates chronologically and puts unknown dates
// after every known one. Two unknown dates compare equal.
func CompareExpiry(a, b DateValue) int {
	switch {
	case a.Time == nil && b.Time == nil:
		return 0
	case a.Time == nil:
		return 1
	case b.Time == nil:
		return -1
	}
	return a.Time.Compare(*b.Time)
}

// ForecastWeek maps a day delta to its 1-based week. Expired items and
// items past the horizon return false.
func ForecastWeek(days, horizonWeeks int) (int, bool) {
	if days < 0 {
		return 0, false
	}
	week := days/7 + 1
	if week > horizonWeeks {
		return 0, false
	}
	return week, true
}
