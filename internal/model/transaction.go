package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a raw bank transaction by money direction.
type TransactionType string

const (
	TypeIncome   TransactionType = "INCOME"
	TypeExpense  TransactionType = "EXPENSE"
	TypeTransfer TransactionType = "TRANSFER"
)

// RawTransaction is one row produced by statement parsing or a bank-feed
// sync. It is immutable once created except for category assignment.
type RawTransaction struct {
	Date        time.Time       // transaction date (day resolution)
	Description string          // bank narrative, e.g. "STAPLES STORE #4421"
	Amount      decimal.Decimal // signed: IN positive, OUT negative
	Type        TransactionType

	BankAccountID string // which bank account the row came from
	ExternalID    string // bank-side id; empty when the feed has none
	Vendor        string // counterparty name when known

	// Optional component amounts for split entries (loan payments,
	// tax-inclusive rows). Zero means not present.
	TaxAmount       decimal.Decimal
	PrincipalAmount decimal.Decimal
	InterestAmount  decimal.Decimal

	SuggestedCategory string // model-suggested category name, advisory only
	CategoryID        string // explicit category assignment; empty when unset
}

// Transaction is a persisted RawTransaction owned by a business.
// One Transaction may own zero or more JournalEntry rows, zero or more
// DocumentMatch rows, and at most one ReconciliationStatus.
type Transaction struct {
	RawTransaction

	ID          string
	BusinessID  string
	CreatedByID string
	CreatedAt   time.Time
}

// AbsAmount returns the transaction amount with the sign stripped.
func (t RawTransaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// HasSplitComponents reports whether the row carries tax, principal or
// interest components that require a multi-leg journal entry.
func (t RawTransaction) HasSplitComponents() bool {
	return t.TaxAmount.IsPositive() || t.PrincipalAmount.IsPositive() || t.InterestAmount.IsPositive()
}
