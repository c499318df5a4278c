package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAccounts() model.AccountMap {
	return model.AccountMap{
		BankAccounts:     map[string]string{"bank-1": "acct-1010"},
		Categories:       map[string]string{},
		Miscellaneous:    "acct-5090",
		OtherExpense:     "acct-5091",
		OtherIncome:      "acct-4090",
		SalesRevenue:     "acct-4010",
		TransferClearing: "acct-1090",
		TaxPayable:       "acct-2210",
		LoanPrincipal:    "acct-2010",
		InterestExpense:  "acct-5060",
	}
}

func journalInput(tx model.RawTransaction, categoryAccount string) JournalInput {
	return JournalInput{
		TransactionID:     "tx-1",
		Transaction:       tx,
		CashAccountID:     "acct-1010",
		CategoryAccountID: categoryAccount,
		Accounts:          testAccounts(),
	}
}

func requireBalanced(t *testing.T, entries []model.JournalEntry, total decimal.Decimal) {
	t.Helper()
	debits, credits := model.BalanceJournalEntries(entries)
	assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)
	assert.True(t, debits.Equal(total), "entry total %s != %s", debits, total)
}

func TestCreateJournalEntriesSimpleExpense(t *testing.T) {
	tx := model.RawTransaction{
		Type:        model.TypeExpense,
		Amount:      dec("-42.97"),
		Description: "STAPLES STORE #4421",
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-5030"))
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	requireBalanced(t, plan.Entries, dec("42.97"))

	assert.Equal(t, "acct-5030", plan.Entries[0].AccountID)
	assert.Equal(t, model.SideDebit, plan.Entries[0].Side)
	assert.Equal(t, "acct-1010", plan.Entries[1].AccountID)
	assert.Equal(t, model.SideCredit, plan.Entries[1].Side)
}

func TestCreateJournalEntriesSimpleIncome(t *testing.T) {
	tx := model.RawTransaction{
		Type:        model.TypeIncome,
		Amount:      dec("1500.00"),
		Description: "INVOICE 1043 PAYMENT",
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-4010"))
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	requireBalanced(t, plan.Entries, dec("1500.00"))

	// Cash is debited on money in.
	assert.Equal(t, "acct-1010", plan.Entries[0].AccountID)
	assert.Equal(t, model.SideDebit, plan.Entries[0].Side)
}

func TestCreateJournalEntriesExpenseWithTax(t *testing.T) {
	tx := model.RawTransaction{
		Type:        model.TypeExpense,
		Amount:      dec("-108.00"),
		TaxAmount:   dec("8.00"),
		Description: "HARDWARE SUPPLY",
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-5030"))
	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)
	requireBalanced(t, plan.Entries, dec("108.00"))

	assert.True(t, plan.Entries[0].Amount.Equal(dec("100.00")), "net to category")
	assert.Equal(t, "acct-2210", plan.Entries[1].AccountID)
	assert.True(t, plan.Entries[1].Amount.Equal(dec("8.00")))
}

func TestCreateJournalEntriesLoanPayment(t *testing.T) {
	tx := model.RawTransaction{
		Type:            model.TypeExpense,
		Amount:          dec("-500.00"),
		PrincipalAmount: dec("400.00"),
		InterestAmount:  dec("100.00"),
		Description:     "SBA LOAN PAYMENT",
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-5090"))
	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)
	requireBalanced(t, plan.Entries, dec("500.00"))

	assert.Equal(t, "acct-2010", plan.Entries[0].AccountID)
	assert.True(t, plan.Entries[0].Amount.Equal(dec("400.00")))
	assert.Equal(t, "acct-5060", plan.Entries[1].AccountID)
	assert.True(t, plan.Entries[1].Amount.Equal(dec("100.00")))
}

func TestCreateJournalEntriesLoanComponentMismatch(t *testing.T) {
	tx := model.RawTransaction{
		Type:            model.TypeExpense,
		Amount:          dec("-500.00"),
		PrincipalAmount: dec("400.00"),
		InterestAmount:  dec("90.00"), // off by 10
		ExternalID:      "bank-tx-77",
	}

	_, err := CreateJournalEntries(journalInput(tx, "acct-5090"))
	require.Error(t, err)

	var genErr *JournalGenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "bank-tx-77", genErr.ExternalID)
}

func TestCreateJournalEntriesTransferOut(t *testing.T) {
	tx := model.RawTransaction{
		Type:        model.TypeTransfer,
		Amount:      dec("-250.00"),
		Description: "TRANSFER TO SAVINGS",
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-1090"))
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	requireBalanced(t, plan.Entries, dec("250.00"))

	assert.Equal(t, "acct-1090", plan.Entries[0].AccountID)
	assert.Equal(t, model.SideDebit, plan.Entries[0].Side)
}

func TestCreateJournalEntriesTransferWithFeeSplits(t *testing.T) {
	tx := model.RawTransaction{
		Type:        model.TypeTransfer,
		Amount:      dec("-1005.00"),
		TaxAmount:   dec("5.00"),
		Description: "WIRE TO VENDOR",
		ExternalID:  "bank-tx-9",
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-1090"))
	require.NoError(t, err)
	assert.True(t, plan.RequiresSplitTransaction)
	assert.Empty(t, plan.Entries)
	require.Len(t, plan.SplitTransactions, 2)

	transfer := plan.SplitTransactions[0]
	assert.Equal(t, model.TypeTransfer, transfer.Type)
	assert.True(t, transfer.Amount.Equal(dec("-1000.00")))
	assert.Equal(t, "bank-tx-9", transfer.ExternalID)

	fee := plan.SplitTransactions[1]
	assert.Equal(t, model.TypeExpense, fee.Type)
	assert.True(t, fee.Amount.Equal(dec("-5.00")))
	assert.Empty(t, fee.ExternalID, "derived row must not reuse the bank id")
}

func TestCreateJournalEntriesRejectsZeroAmount(t *testing.T) {
	tx := model.RawTransaction{Type: model.TypeExpense, Amount: decimal.Zero}
	_, err := CreateJournalEntries(journalInput(tx, "acct-5090"))
	require.Error(t, err)
}

func TestCreateJournalEntriesRoundsToMinorUnit(t *testing.T) {
	tx := model.RawTransaction{
		Type:   model.TypeExpense,
		Amount: dec("-10.005"),
	}

	plan, err := CreateJournalEntries(journalInput(tx, "acct-5090"))
	require.NoError(t, err)
	requireBalanced(t, plan.Entries, dec("10.01"))
}

func TestCreateJournalEntriesTaxExceedsAmount(t *testing.T) {
	tx := model.RawTransaction{
		Type:      model.TypeExpense,
		Amount:    dec("-5.00"),
		TaxAmount: dec("6.00"),
	}
	_, err := CreateJournalEntries(journalInput(tx, "acct-5090"))
	require.Error(t, err)
}
