package ledger

import "github.com/ledgerline/ledgerline/internal/model"

// DefaultChart returns the starter chart of accounts created for a new
// business. Codes follow the usual 1xxx assets / 2xxx liabilities /
// 4xxx income / 5xxx expenses convention.
func DefaultChart() []model.LedgerAccount {
	return []model.LedgerAccount{
		{ID: "acct-1010", Code: "1010", Name: "Business Checking", Type: model.AccountTypeAsset},
		{ID: "acct-1090", Code: "1090", Name: "Transfer Clearing", Type: model.AccountTypeAsset},
		{ID: "acct-2010", Code: "2010", Name: "Loan Principal", Type: model.AccountTypeLiability},
		{ID: "acct-2210", Code: "2210", Name: "Tax Payable", Type: model.AccountTypeLiability},
		{ID: "acct-4010", Code: "4010", Name: "Sales Revenue", Type: model.AccountTypeIncome},
		{ID: "acct-4090", Code: "4090", Name: "Other Income", Type: model.AccountTypeIncome},
		{ID: "acct-5030", Code: "5030", Name: "Office Supplies", Type: model.AccountTypeExpense},
		{ID: "acct-5060", Code: "5060", Name: "Interest Expense", Type: model.AccountTypeExpense},
		{ID: "acct-5090", Code: "5090", Name: "Miscellaneous Expense", Type: model.AccountTypeExpense},
		{ID: "acct-5091", Code: "5091", Name: "Other Expense", Type: model.AccountTypeExpense},
	}
}

// DefaultAccountMap wires the default chart into the resolution table
// for a business with a single bank account.
func DefaultAccountMap(bankAccountID string) model.AccountMap {
	return model.AccountMap{
		BankAccounts:     map[string]string{bankAccountID: "acct-1010"},
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
