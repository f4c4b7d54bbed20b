package companies

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant within Fin Control.
type Company struct {
	ID        uuid.UUID
	Name      string
	TaxID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
