package recurrences

import "time"

// NextAfter advances a due date by one frequency step of the given interval.
// A monthly template with interval 2 moves 2024-01-15 to 2024-03-15.
// time.AddDate normalizes overflow the Go way: monthly from Jan 31 lands on
// Mar 2/3 depending on the year.
func NextAfter(due time.Time, freq Frequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case FrequencyDaily:
		return due.AddDate(0, 0, interval)
	case FrequencyWeekly:
		return due.AddDate(0, 0, 7*interval)
	case FrequencyMonthly:
		return due.AddDate(0, interval, 0)
	case FrequencyYearly:
		return due.AddDate(interval, 0, 0)
	}
	return due
}
