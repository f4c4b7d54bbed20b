package rbac

// policy is the declarative capability matrix. Each entry lists the roles
// granted that capability; RoleAdmin is implicit on every entry and never
// listed. Entries with an empty list are admin-only. RoleNone appears only
// on the always-visible capabilities.
//
// Resolution is plain set membership, there are no precedence rules.
var policy = map[Capability][]Role{
	// Accounts payable.
	{ModulePayables, ActionView}:    {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser},
	{ModulePayables, ActionCreate}:  {RoleFinancialManager, RoleUser},
	{ModulePayables, ActionEdit}:    {RoleFinancialManager, RoleUser},
	{ModulePayables, ActionDelete}:  {RoleFinancialManager},
	{ModulePayables, ActionApprove}: {RoleFinancialManager, RoleApprover},
	{ModulePayables, ActionPay}:     {RoleFinancialManager, RoleReleaser},

	// Accounts receivable.
	{ModuleReceivables, ActionView}:    {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser},
	{ModuleReceivables, ActionCreate}:  {RoleFinancialManager, RoleUser},
	{ModuleReceivables, ActionEdit}:    {RoleFinancialManager, RoleUser},
	{ModuleReceivables, ActionDelete}:  {RoleFinancialManager},
	{ModuleReceivables, ActionApprove}: {RoleFinancialManager, RoleApprover},
	{ModuleReceivables, ActionPay}:     {RoleFinancialManager, RoleReleaser},

	// Recurring transaction templates.
	{ModuleRecurrences, ActionView}:   {RoleFinancialManager, RoleAuditor, RoleUser},
	{ModuleRecurrences, ActionCreate}: {RoleFinancialManager, RoleUser},
	{ModuleRecurrences, ActionEdit}:   {RoleFinancialManager, RoleUser},
	{ModuleRecurrences, ActionDelete}: {RoleFinancialManager},

	// Payment batches.
	{ModuleBatches, ActionView}:    {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor},
	{ModuleBatches, ActionCreate}:  {RoleFinancialManager},
	{ModuleBatches, ActionEdit}:    {RoleFinancialManager},
	{ModuleBatches, ActionDelete}:  {RoleFinancialManager},
	{ModuleBatches, ActionApprove}: {RoleFinancialManager, RoleApprover},
	{ModuleBatches, ActionPay}:     {RoleFinancialManager, RoleReleaser},

	// Cost centers and budgets.
	{ModuleCostCenters, ActionView}:   {RoleFinancialManager, RoleApprover, RoleAuditor, RoleUser},
	{ModuleCostCenters, ActionCreate}: {RoleFinancialManager},
	{ModuleCostCenters, ActionEdit}:   {RoleFinancialManager},
	{ModuleCostCenters, ActionDelete}: {RoleFinancialManager},

	// Counterparties (suppliers/customers).
	{ModuleEntities, ActionView}:   {RoleFinancialManager, RoleAuditor, RoleUser},
	{ModuleEntities, ActionCreate}: {RoleFinancialManager, RoleUser},
	{ModuleEntities, ActionEdit}:   {RoleFinancialManager, RoleUser},
	{ModuleEntities, ActionDelete}: {RoleFinancialManager},

	// Reports.
	{ModuleReports, ActionView}: {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor},

	// User management. Creation and deletion stay admin-only.
	{ModuleUsers, ActionView}:   {RoleFinancialManager},
	{ModuleUsers, ActionCreate}: {},
	{ModuleUsers, ActionEdit}:   {RoleFinancialManager},
	{ModuleUsers, ActionDelete}: {},

	// Companies. Mutations stay admin-only.
	{ModuleCompanies, ActionView}:   {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser},
	{ModuleCompanies, ActionCreate}: {},
	{ModuleCompanies, ActionEdit}:   {},
	{ModuleCompanies, ActionDelete}: {},

	// Audit trail.
	{ModuleAuditLogs, ActionView}: {RoleAuditor, RoleFinancialManager},

	// Always visible, even without a company role.
	{ModuleNotifications, ActionView}: {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser, RoleNone},
	{ModuleNotifications, ActionEdit}: {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser, RoleNone},
	{ModuleFeedback, ActionView}:      {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser, RoleNone},
	{ModuleFeedback, ActionCreate}:    {RoleFinancialManager, RoleApprover, RoleReleaser, RoleAuditor, RoleUser, RoleNone},
	{ModuleFeedback, ActionEdit}:      {},
	{ModuleFeedback, ActionDelete}:    {},
}

// Capabilities returns every capability known to the matrix.
func Capabilities() []Capability {
	caps := make([]Capability, 0, len(policy))
	for c := range policy {
		caps = append(caps, c)
	}
	return caps
}
