package rbac

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveRoleAdminOverride(t *testing.T) {
	company := uuid.New()
	other := uuid.New()
	roles := CompanyRoles{company: RoleAuditor}

	require.Equal(t, RoleAdmin, EffectiveRole(RoleAdmin, roles, company))
	require.Equal(t, RoleAdmin, EffectiveRole(RoleAdmin, roles, other))
	require.Equal(t, RoleAdmin, EffectiveRole(RoleAdmin, nil, uuid.Nil))
}

func TestEffectiveRolePerCompany(t *testing.T) {
	company := uuid.New()
	other := uuid.New()
	roles := CompanyRoles{company: RoleApprover}

	require.Equal(t, RoleApprover, EffectiveRole(RoleUser, roles, company))
	require.Equal(t, RoleNone, EffectiveRole(RoleUser, roles, other))
}

func TestEffectiveRoleMissingCompanySelection(t *testing.T) {
	roles := CompanyRoles{uuid.New(): RoleFinancialManager}
	// Missing company selection degrades silently instead of erroring.
	require.Equal(t, RoleNone, EffectiveRole(RoleUser, roles, uuid.Nil))
}

func TestResolveAdminIsMaximal(t *testing.T) {
	set := Resolve(RoleAdmin)
	require.Len(t, set, len(policy))
	for cap, granted := range set {
		assert.True(t, granted, "admin must hold %s", cap)
	}
}

func TestResolveNoneGrantsOnlyAlwaysVisible(t *testing.T) {
	set := Resolve(RoleNone)
	granted := make([]Capability, 0)
	for cap, ok := range set {
		if ok {
			granted = append(granted, cap)
		}
	}
	require.ElementsMatch(t, []Capability{
		{ModuleNotifications, ActionView},
		{ModuleNotifications, ActionEdit},
		{ModuleFeedback, ActionView},
		{ModuleFeedback, ActionCreate},
	}, granted)
}

func TestResolveIsDeterministic(t *testing.T) {
	for _, role := range append(Roles(), RoleNone) {
		first := Resolve(role)
		second := Resolve(role)
		require.Equal(t, first, second, "role %s", role)
	}
}

func TestResolveCoversEveryCapability(t *testing.T) {
	for _, role := range append(Roles(), RoleNone) {
		set := Resolve(role)
		for _, cap := range Capabilities() {
			_, present := set[cap]
			require.True(t, present, "role %s missing verdict for %s", role, cap)
		}
	}
}

func TestMatrixSpotChecks(t *testing.T) {
	cases := []struct {
		role    Role
		module  Module
		action  Action
		allowed bool
	}{
		{RoleFinancialManager, ModuleBatches, ActionCreate, true},
		{RoleApprover, ModuleBatches, ActionApprove, true},
		{RoleApprover, ModuleBatches, ActionPay, false},
		{RoleReleaser, ModuleBatches, ActionPay, true},
		{RoleReleaser, ModuleBatches, ActionApprove, false},
		{RoleAuditor, ModuleAuditLogs, ActionView, true},
		{RoleAuditor, ModulePayables, ActionEdit, false},
		{RoleUser, ModulePayables, ActionCreate, true},
		{RoleUser, ModuleUsers, ActionView, false},
		{RoleNone, ModulePayables, ActionView, false},
		{RoleNone, ModuleNotifications, ActionView, true},
		{RoleNone, ModuleFeedback, ActionCreate, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, Allowed(tc.role, tc.module, tc.action),
			"%s %s.%s", tc.role, tc.module, tc.action)
	}
}

func TestUnknownCapabilityDenied(t *testing.T) {
	require.False(t, Allowed(RoleAdmin, Module("ledger"), ActionView))
}
