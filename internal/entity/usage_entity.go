package entity

import "time"

// DailyUsage is the per-client question counter. Count is meaningful only
// for Day; a calendar rollover resets it. Never decremented.
type DailyUsage struct {
	Count int       `json:"count"`
	Day   time.Time `json:"day"`
}

// SameDay reports whether the stored counter applies to the given moment.
func (u DailyUsage) SameDay(now time.Time) bool {
	y1, m1, d1 := u.Day.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
