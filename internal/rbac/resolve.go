package rbac

import "github.com/google/uuid"

// EffectiveRole derives the role that applies within the selected company.
// A global admin wins regardless of per-company assignments; otherwise the
// per-company role applies, or RoleNone when the user has no role there.
// A missing company selection (uuid.Nil) likewise degrades to RoleNone.
func EffectiveRole(global Role, companyRoles CompanyRoles, companyID uuid.UUID) Role {
	if global == RoleAdmin {
		return RoleAdmin
	}
	if companyID == uuid.Nil {
		return RoleNone
	}
	if role, ok := companyRoles[companyID]; ok && role.Valid() && role != RoleNone {
		return role
	}
	return RoleNone
}

// Resolve produces the full capability set for an effective role. It is a
// pure function of the matrix: no I/O, no ordering sensitivity.
func Resolve(effective Role) CapabilitySet {
	set := make(CapabilitySet, len(policy))
	for cap, roles := range policy {
		set[cap] = allowed(effective, roles)
	}
	return set
}

// Allowed reports whether the effective role holds a single capability.
func Allowed(effective Role, module Module, action Action) bool {
	roles, ok := policy[Capability{Module: module, Action: action}]
	if !ok {
		return false
	}
	return allowed(effective, roles)
}

func allowed(effective Role, roles []Role) bool {
	if effective == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if r == effective {
			return true
		}
	}
	return false
}
