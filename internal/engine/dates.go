package engine

import "time"

const hoursPerDay = 24

// Day truncates t to its calendar day in UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from `from` to `to`
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / hoursPerDay)
}

// AddDays shifts a calendar day by n days
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}
