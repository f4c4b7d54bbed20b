// Package rbac derives capability sets from a user's global role and
// per-company role assignments.
package rbac

import "github.com/google/uuid"

// Role is one of the fixed closed set of roles a user can hold, either
// globally or scoped to a single company.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleFinancialManager Role = "financial_manager"
	RoleApprover         Role = "approver"
	RoleReleaser         Role = "releaser"
	RoleAuditor          Role = "auditor"
	RoleUser             Role = "user"
	// RoleNone is the fallback when a user holds no role for the selected
	// company. It still grants the always-visible capabilities.
	RoleNone Role = "none"
)

// Roles lists every assignable role. RoleNone is derived, never assigned.
func Roles() []Role {
	return []Role{RoleAdmin, RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser, RoleNone:
		return true
	}
	return false
}

// Module identifies a functional area governed by the capability matrix.
type Module string

const (
	ModulePayables      Module = "payables"
	ModuleReceivables   Module = "receivables"
	ModuleRecurrences   Module = "recurrences"
	ModuleBatches       Module = "batches"
	ModuleCostCenters   Module = "cost_centers"
	ModuleEntities      Module = "entities"
	ModuleReports       Module = "reports"
	ModuleUsers         Module = "users"
	ModuleCompanies     Module = "companies"
	ModuleAuditLogs     Module = "audit_logs"
	ModuleNotifications Module = "notifications"
	ModuleFeedback      Module = "feedback"
)

// Action is an atomic operation on a module.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionPay     Action = "pay"
)

// Capability pairs a module with an action.
type Capability struct {
	Module Module
	Action Action
}

// String renders the capability as "module.action".
func (c Capability) String() string {
	return string(c.Module) + "." + string(c.Action)
}

// CapabilitySet is the resolved set of granted capabilities.
type CapabilitySet map[Capability]bool

// Has reports whether the capability is granted.
func (s CapabilitySet) Has(module Module, action Action) bool {
	return s[Capability{Module: module, Action: action}]
}

// CompanyRoles maps a company id to the role the user holds there.
type CompanyRoles map[uuid.UUID]Role

// Principal describes the authenticated actor the resolver operates on.
type Principal interface {
	GetID() int64
	GlobalRole() Role
	Roles() CompanyRoles
}
