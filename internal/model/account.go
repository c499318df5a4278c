package model

// AccountType is the top-level classification of a ledger account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// LedgerAccount is a node in the chart of accounts. Accounts are created
// once during chart-of-accounts setup and referenced, never mutated, by
// the import pipeline.
type LedgerAccount struct {
	ID   string
	Code string // e.g. "5030"
	Name string // e.g. "Office Supplies"
	Type AccountType
}

// AccountMap is the per-business resolution table from transaction
// semantics to concrete ledger account IDs. Empty fields mean the
// business has no account configured for that role.
type AccountMap struct {
	// BankAccounts maps a bank account id to its cash/asset ledger account.
	BankAccounts map[string]string

	// Categories maps an explicit category id to its ledger account.
	Categories map[string]string

	// Expense fallbacks, tried in order.
	Miscellaneous string
	OtherExpense  string

	// Income fallbacks, tried in order.
	OtherIncome  string
	SalesRevenue string

	// Transfers settle against a clearing account until the matching
	// leg arrives from the other bank feed.
	TransferClearing string

	// Accounts for split components.
	TaxPayable      string
	LoanPrincipal   string
	InterestExpense string
}

// CashAccountFor returns the ledger account backing a bank account, or
// "" when the bank account is not mapped.
func (m AccountMap) CashAccountFor(bankAccountID string) string {
	return m.BankAccounts[bankAccountID]
}

// CategoryAccount returns the ledger account for an explicit category
// id, or "" when the category is not mapped.
func (m AccountMap) CategoryAccount(categoryID string) string {
	return m.Categories[categoryID]
}
