// Package recurrences materializes transactions from recurring templates.
package recurrences

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is the recurrence base period.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether the frequency is known.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Template describes a transaction materialized on a schedule.
type Template struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Description  string
	Type         string // "payable" or "receivable"
	Amount       decimal.Decimal
	EntityID     uuid.UUID
	CostCenterID uuid.UUID
	Frequency    Frequency
	Interval     int
	NextDueDate  time.Time
	Active       bool
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Due reports whether the template should materialize as of the given day.
func (t *Template) Due(asOf time.Time) bool {
	return t.Active && !t.NextDueDate.After(asOf)
}

var (
	// ErrInvalidFrequency indicates an unknown frequency value.
	ErrInvalidFrequency = errors.New("recurrences: invalid frequency")
	// ErrInvalidInterval indicates an interval below 1.
	ErrInvalidInterval = errors.New("recurrences: interval must be at least 1")
)
