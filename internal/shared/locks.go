package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// StatsLockKey builds redis keys for balance recalculation critical sections.
func StatsLockKey(companyID uuid.UUID) string {
	return fmt.Sprintf("stats:%s:lock", companyID)
}

// RecurrenceLockKey is the redis key guarding the materialization pass.
// The cron trigger and the on-demand endpoint share it.
const RecurrenceLockKey = "recurrences:process:lock"
