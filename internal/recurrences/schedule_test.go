package recurrences

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextAfter(t *testing.T) {
	cases := []struct {
		name     string
		due      time.Time
		freq     Frequency
		interval int
		want     time.Time
	}{
		{"daily", date(2024, 1, 15), FrequencyDaily, 1, date(2024, 1, 16)},
		{"every 10 days", date(2024, 1, 15), FrequencyDaily, 10, date(2024, 1, 25)},
		{"weekly", date(2024, 1, 15), FrequencyWeekly, 1, date(2024, 1, 22)},
		{"biweekly", date(2024, 1, 15), FrequencyWeekly, 2, date(2024, 1, 29)},
		{"monthly", date(2024, 1, 15), FrequencyMonthly, 1, date(2024, 2, 15)},
		{"every 2 months", date(2024, 1, 15), FrequencyMonthly, 2, date(2024, 3, 15)},
		{"yearly", date(2024, 1, 15), FrequencyYearly, 1, date(2025, 1, 15)},
		{"month-end overflow normalizes", date(2024, 1, 31), FrequencyMonthly, 1, date(2024, 3, 2)},
		{"interval floor at one", date(2024, 1, 15), FrequencyMonthly, 0, date(2024, 2, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextAfter(tc.due, tc.freq, tc.interval))
		})
	}
}

func TestTemplateDue(t *testing.T) {
	tmpl := &Template{Active: true, NextDueDate: date(2024, 6, 1)}
	assert.True(t, tmpl.Due(date(2024, 6, 1)))
	assert.True(t, tmpl.Due(date(2024, 7, 1)))
	assert.False(t, tmpl.Due(date(2024, 5, 31)))

	tmpl.Active = false
	assert.False(t, tmpl.Due(date(2024, 7, 1)))
}
