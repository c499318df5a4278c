package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
)

// minorUnitPlaces is the currency minor unit used for exact-balance
// comparison. Amounts are rounded here once, at journal construction;
// a mismatch of even one minor unit after rounding is a hard error.
const minorUnitPlaces = 2

// JournalInput carries one transaction plus its resolved accounts into
// the factory.
type JournalInput struct {
	TransactionID     string
	Transaction       model.RawTransaction
	CashAccountID     string // ledger account backing the bank account
	CategoryAccountID string // output of ResolveAccount
	Accounts          model.AccountMap
}

// JournalPlan is the factory output: either a balanced entry set, or a
// request to split the source row into simpler transactions first.
type JournalPlan struct {
	Entries []model.JournalEntry

	// RequiresSplitTransaction is set when the row mixes movements the
	// ledger models as separate transactions (a transfer with an
	// embedded fee). SplitTransactions then carries the replacement
	// rows and Entries is empty.
	RequiresSplitTransaction bool
	SplitTransactions        []model.RawTransaction
}

// CreateJournalEntries builds the balanced debit/credit set for one
// transaction. Simple income/expense rows produce exactly two legs;
// rows carrying tax, principal or interest components split the
// category leg so that the total across all legs still balances to the
// transaction amount.
func CreateJournalEntries(in JournalInput) (JournalPlan, error) {
	tx := in.Transaction
	total := round(tx.AbsAmount())

	if total.IsZero() {
		return JournalPlan{}, genErr(tx, "transaction amount is zero")
	}
	if in.CashAccountID == "" {
		return JournalPlan{}, genErr(tx, fmt.Sprintf("bank account %q has no ledger account", tx.BankAccountID))
	}

	switch tx.Type {
	case model.TypeTransfer:
		return transferPlan(in, total)
	case model.TypeExpense:
		return expensePlan(in, total)
	case model.TypeIncome:
		return incomePlan(in, total)
	default:
		return JournalPlan{}, genErr(tx, fmt.Sprintf("unknown transaction type %q", tx.Type))
	}
}

func transferPlan(in JournalInput, total decimal.Decimal) (JournalPlan, error) {
	tx := in.Transaction

	// A transfer carrying a fee is two economic events. Hand back the
	// clean transfer and the fee as separate rows for re-processing.
	if tx.TaxAmount.IsPositive() {
		fee := round(tx.TaxAmount)
		principal := total.Sub(fee)
		if !principal.IsPositive() {
			return JournalPlan{}, genErr(tx, fmt.Sprintf("transfer fee %s exceeds amount %s", fee, total))
		}
		transfer := tx
		transfer.TaxAmount = decimal.Zero
		transfer.Amount = principal.Neg()
		fee2 := tx
		fee2.Type = model.TypeExpense
		fee2.TaxAmount = decimal.Zero
		fee2.Amount = fee.Neg()
		fee2.Description = tx.Description + " (fee)"
		fee2.ExternalID = "" // derived row, not the bank's
		return JournalPlan{
			RequiresSplitTransaction: true,
			SplitTransactions:        []model.RawTransaction{transfer, fee2},
		}, nil
	}

	clearing := in.CategoryAccountID
	if clearing == "" {
		clearing = in.Accounts.TransferClearing
	}
	if clearing == "" {
		return JournalPlan{}, genErr(tx, "no transfer clearing account configured")
	}

	var entries []model.JournalEntry
	if tx.Amount.IsNegative() {
		// Money out: the clearing account holds the in-flight funds.
		entries = []model.JournalEntry{
			leg(in.TransactionID, clearing, total, model.SideDebit, tx.Description),
			leg(in.TransactionID, in.CashAccountID, total, model.SideCredit, tx.Description),
		}
	} else {
		entries = []model.JournalEntry{
			leg(in.TransactionID, in.CashAccountID, total, model.SideDebit, tx.Description),
			leg(in.TransactionID, clearing, total, model.SideCredit, tx.Description),
		}
	}
	return balancedPlan(tx, entries, total)
}

func expensePlan(in JournalInput, total decimal.Decimal) (JournalPlan, error) {
	tx := in.Transaction

	// Loan payment: principal reduces the liability, interest is an
	// expense, and the whole amount leaves the bank account.
	if tx.PrincipalAmount.IsPositive() || tx.InterestAmount.IsPositive() {
		return loanPaymentPlan(in, total)
	}

	if tx.TaxAmount.IsPositive() {
		taxAccount := in.Accounts.TaxPayable
		if taxAccount == "" {
			return JournalPlan{}, genErr(tx, "no tax payable account configured")
		}
		taxAmt := round(tx.TaxAmount)
		net := total.Sub(taxAmt)
		if !net.IsPositive() {
			return JournalPlan{}, genErr(tx, fmt.Sprintf("tax %s exceeds amount %s", taxAmt, total))
		}
		entries := []model.JournalEntry{
			leg(in.TransactionID, in.CategoryAccountID, net, model.SideDebit, tx.Description),
			leg(in.TransactionID, taxAccount, taxAmt, model.SideDebit, tx.Description+" (tax)"),
			leg(in.TransactionID, in.CashAccountID, total, model.SideCredit, tx.Description),
		}
		return balancedPlan(tx, entries, total)
	}

	entries := []model.JournalEntry{
		leg(in.TransactionID, in.CategoryAccountID, total, model.SideDebit, tx.Description),
		leg(in.TransactionID, in.CashAccountID, total, model.SideCredit, tx.Description),
	}
	return balancedPlan(tx, entries, total)
}

func loanPaymentPlan(in JournalInput, total decimal.Decimal) (JournalPlan, error) {
	tx := in.Transaction

	principal := round(tx.PrincipalAmount)
	interest := round(tx.InterestAmount)
	tax := round(tx.TaxAmount)

	sum := principal.Add(interest).Add(tax)
	if !sum.Equal(total) {
		return JournalPlan{}, genErr(tx, fmt.Sprintf(
			"components %s do not sum to transaction amount %s", sum, total))
	}

	var entries []model.JournalEntry
	if principal.IsPositive() {
		if in.Accounts.LoanPrincipal == "" {
			return JournalPlan{}, genErr(tx, "no loan principal account configured")
		}
		entries = append(entries, leg(in.TransactionID, in.Accounts.LoanPrincipal, principal, model.SideDebit, tx.Description+" (principal)"))
	}
	if interest.IsPositive() {
		if in.Accounts.InterestExpense == "" {
			return JournalPlan{}, genErr(tx, "no interest expense account configured")
		}
		entries = append(entries, leg(in.TransactionID, in.Accounts.InterestExpense, interest, model.SideDebit, tx.Description+" (interest)"))
	}
	if tax.IsPositive() {
		if in.Accounts.TaxPayable == "" {
			return JournalPlan{}, genErr(tx, "no tax payable account configured")
		}
		entries = append(entries, leg(in.TransactionID, in.Accounts.TaxPayable, tax, model.SideDebit, tx.Description+" (tax)"))
	}
	entries = append(entries, leg(in.TransactionID, in.CashAccountID, total, model.SideCredit, tx.Description))

	return balancedPlan(tx, entries, total)
}

func incomePlan(in JournalInput, total decimal.Decimal) (JournalPlan, error) {
	tx := in.Transaction

	if tx.TaxAmount.IsPositive() {
		taxAccount := in.Accounts.TaxPayable
		if taxAccount == "" {
			return JournalPlan{}, genErr(tx, "no tax payable account configured")
		}
		taxAmt := round(tx.TaxAmount)
		net := total.Sub(taxAmt)
		if !net.IsPositive() {
			return JournalPlan{}, genErr(tx, fmt.Sprintf("tax %s exceeds amount %s", taxAmt, total))
		}
		entries := []model.JournalEntry{
			leg(in.TransactionID, in.CashAccountID, total, model.SideDebit, tx.Description),
			leg(in.TransactionID, in.CategoryAccountID, net, model.SideCredit, tx.Description),
			leg(in.TransactionID, taxAccount, taxAmt, model.SideCredit, tx.Description+" (tax)"),
		}
		return balancedPlan(tx, entries, total)
	}

	entries := []model.JournalEntry{
		leg(in.TransactionID, in.CashAccountID, total, model.SideDebit, tx.Description),
		leg(in.TransactionID, in.CategoryAccountID, total, model.SideCredit, tx.Description),
	}
	return balancedPlan(tx, entries, total)
}

// balancedPlan asserts the double-entry invariant before releasing the
// plan. Both sides must equal each other and the transaction amount.
func balancedPlan(tx model.RawTransaction, entries []model.JournalEntry, total decimal.Decimal) (JournalPlan, error) {
	debits, credits := model.BalanceJournalEntries(entries)
	if !debits.Equal(credits) {
		return JournalPlan{}, genErr(tx, fmt.Sprintf("debits %s != credits %s", debits, credits))
	}
	if !debits.Equal(total) && !credits.Equal(total) {
		return JournalPlan{}, genErr(tx, fmt.Sprintf("entry total %s != transaction amount %s", debits, total))
	}
	return JournalPlan{Entries: entries}, nil
}

func leg(transactionID, accountID string, amount decimal.Decimal, side model.EntrySide, memo string) model.JournalEntry {
	return model.JournalEntry{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount,
		Side:          side,
		Memo:          memo,
	}
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(minorUnitPlaces)
}

func genErr(tx model.RawTransaction, reason string) *JournalGenerationError {
	return &JournalGenerationError{ExternalID: tx.ExternalID, Reason: reason}
}
