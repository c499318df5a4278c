package ledger

import (
	"fmt"

	"github.com/ledgerline/ledgerline/internal/model"
)

// ResolveAccount maps a transaction's semantic category to a concrete
// ledger account id. An explicit category assignment wins; otherwise
// the transaction type selects a deterministic fallback chain:
//
//	EXPENSE:  miscellaneous, then otherExpense
//	INCOME:   otherIncome, then salesRevenue
//	TRANSFER: transferClearing
//
// A missing fallback is a *ConfigError: the business has a deficient
// chart of accounts, which the batch processor surfaces as a
// whole-batch precondition failure rather than a per-transaction one.
func ResolveAccount(tx model.RawTransaction, accounts model.AccountMap) (string, error) {
	if tx.CategoryID != "" {
		if id := accounts.CategoryAccount(tx.CategoryID); id != "" {
			return id, nil
		}
		// Unmapped explicit category falls through to the type default.
	}
	return FallbackAccount(tx.Type, accounts)
}

// FallbackAccount returns the default account for a transaction type,
// or a *ConfigError naming the missing role.
func FallbackAccount(t model.TransactionType, accounts model.AccountMap) (string, error) {
	switch t {
	case model.TypeExpense:
		if accounts.Miscellaneous != "" {
			return accounts.Miscellaneous, nil
		}
		if accounts.OtherExpense != "" {
			return accounts.OtherExpense, nil
		}
		return "", &ConfigError{Role: "otherExpense"}
	case model.TypeIncome:
		if accounts.OtherIncome != "" {
			return accounts.OtherIncome, nil
		}
		if accounts.SalesRevenue != "" {
			return accounts.SalesRevenue, nil
		}
		return "", &ConfigError{Role: "salesRevenue"}
	case model.TypeTransfer:
		if accounts.TransferClearing != "" {
			return accounts.TransferClearing, nil
		}
		return "", &ConfigError{Role: "transferClearing"}
	default:
		return "", fmt.Errorf("ResolveAccount: unknown transaction type %q", t)
	}
}
