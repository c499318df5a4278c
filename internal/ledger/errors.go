package ledger

import "fmt"

// ConfigError reports a chart-of-accounts configuration deficiency:
// a fallback or role account the business never set up. It fails the
// whole batch precondition and is never retried.
type ConfigError struct {
	Role string // the missing account role, e.g. "otherExpense"
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("no ledger account configured for role %q", e.Role)
}

// JournalGenerationError reports that a balanced journal entry set
// could not be built for one transaction. It is deterministic, so the
// caller records it against the transaction instead of retrying.
type JournalGenerationError struct {
	ExternalID string
	Reason     string
}

func (e *JournalGenerationError) Error() string {
	if e.ExternalID == "" {
		return fmt.Sprintf("journal generation failed: %s", e.Reason)
	}
	return fmt.Sprintf("journal generation failed for %s: %s", e.ExternalID, e.Reason)
}
