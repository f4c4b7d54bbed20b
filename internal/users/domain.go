package users

import (
	"time"

	"github.com/fin-control/fin-control/internal/rbac"
)

// Profile represents a user account with its role assignments.
type Profile struct {
	ID           int64
	Email        string
	Name         string
	Role         rbac.Role
	CompanyRoles rbac.CompanyRoles
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetID implements rbac.Principal.
func (p *Profile) GetID() int64 { return p.ID }

// GlobalRole implements rbac.Principal.
func (p *Profile) GlobalRole() rbac.Role { return p.Role }

// Roles implements rbac.Principal.
func (p *Profile) Roles() rbac.CompanyRoles { return p.CompanyRoles }
