package model

import "github.com/shopspring/decimal"

// EntrySide marks which side of the ledger a journal entry posts to.
type EntrySide string

const (
	SideDebit  EntrySide = "debit"
	SideCredit EntrySide = "credit"
)

// JournalEntry is one debit or credit line belonging to a balanced set
// for a single transaction. Amount is always positive; the side carries
// the direction.
//
// Invariant: for a given TransactionID, the sum of debit amounts equals
// the sum of credit amounts exactly. No tolerance.
type JournalEntry struct {
	ID            string
	TransactionID string
	AccountID     string
	Amount        decimal.Decimal
	Side          EntrySide
	Memo          string
}

// BalanceJournalEntries sums both sides of a set of entries. Callers
// use it to assert the double-entry invariant.
func BalanceJournalEntries(entries []JournalEntry) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Side {
		case SideDebit:
			debits = debits.Add(e.Amount)
		case SideCredit:
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}
