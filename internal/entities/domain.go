package entities

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a counterparty.
type Kind string

const (
	KindSupplier Kind = "supplier"
	KindCustomer Kind = "customer"
	KindBoth     Kind = "both"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	switch k {
	case KindSupplier, KindCustomer, KindBoth:
		return true
	}
	return false
}

// Entity is a counterparty referenced by transactions.
type Entity struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Kind      Kind
	Document  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
