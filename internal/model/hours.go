package model

import "time"

// OpeningPeriod is one open interval within a day, in local time.
type OpeningPeriod struct {
	OpeningHour   int `json:"openingHour"`
	OpeningMinute int `json:"openingMinute"`
	ClosingHour   int `json:"closingHour"`
	ClosingMinute int `json:"closingMinute"`
}

// OpeningHours maps a weekday name ("Monday" ... "Sunday") to its periods.
type OpeningHours map[string][]OpeningPeriod

// Weekdays in display order.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// IsOpenAt reports whether any period of t's weekday contains t.
// Both the opening and the closing minute count as open.
func (h OpeningHours) IsOpenAt(t time.Time) bool {
	periods := h[t.Weekday().String()]
	now := t.Hour()*60 + t.Minute()
	for _, p := range periods {
		open := p.OpeningHour*60 + p.OpeningMinute
		closing := p.ClosingHour*60 + p.ClosingMinute
		if now >= open && now <= closing {
			return true
		}
	}
	return false
}

// IsOpenAt is the free-function form used where hours may be nil.
func IsOpenAt(hours OpeningHours, t time.Time) bool {
	if hours == nil {
		return false
	}
	return hours.IsOpenAt(t)
}
