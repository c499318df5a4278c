package sqlite

import "fmt"

// Schema notes: money columns are TEXT holding exact decimal strings,
// never floats. Dates are RFC 3339 TEXT. The partial unique index on
// (business_id, external_id) enforces idempotent import for rows that
// carry a bank-side id.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id              TEXT PRIMARY KEY,
		business_id     TEXT NOT NULL,
		created_by_id   TEXT NOT NULL DEFAULT '',
		date            TEXT NOT NULL,
		description     TEXT NOT NULL,
		amount          TEXT NOT NULL,
		type            TEXT NOT NULL,
		bank_account_id TEXT NOT NULL DEFAULT '',
		external_id     TEXT NOT NULL DEFAULT '',
		vendor          TEXT NOT NULL DEFAULT '',
		tax_amount       TEXT NOT NULL DEFAULT '0',
		principal_amount TEXT NOT NULL DEFAULT '0',
		interest_amount  TEXT NOT NULL DEFAULT '0',
		suggested_category TEXT NOT NULL DEFAULT '',
		category_id     TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external
		ON transactions(business_id, external_id) WHERE external_id != ''`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_business_date
		ON transactions(business_id, date)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id             TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		account_id     TEXT NOT NULL,
		amount         TEXT NOT NULL,
		side           TEXT NOT NULL CHECK (side IN ('debit', 'credit')),
		memo           TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_transaction
		ON journal_entries(transaction_id)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id                TEXT PRIMARY KEY,
		business_id       TEXT NOT NULL,
		transaction_id    TEXT NOT NULL DEFAULT '',
		storage_uri       TEXT NOT NULL DEFAULT '',
		original_filename TEXT NOT NULL DEFAULT '',
		mime_type         TEXT NOT NULL DEFAULT '',
		vendor            TEXT NOT NULL DEFAULT '',
		amount            TEXT NOT NULL DEFAULT '0',
		date              TEXT NOT NULL DEFAULT '',
		confidence        REAL NOT NULL DEFAULT 0,
		uploaded_at       TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS document_matches (
		id                TEXT PRIMARY KEY,
		document_id       TEXT NOT NULL REFERENCES documents(id),
		transaction_id    TEXT NOT NULL REFERENCES transactions(id),
		confidence        REAL NOT NULL,
		status            TEXT NOT NULL,
		match_reason      TEXT NOT NULL DEFAULT '',
		is_user_confirmed INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL,
		UNIQUE (document_id, transaction_id)
	)`,

	`CREATE TABLE IF NOT EXISTS reconciliation_statuses (
		transaction_id TEXT PRIMARY KEY REFERENCES transactions(id),
		status         TEXT NOT NULL,
		document_id    TEXT NOT NULL DEFAULT '',
		confidence     REAL NOT NULL DEFAULT 0,
		manually_set   INTEGER NOT NULL DEFAULT 0,
		reviewed_by    TEXT NOT NULL DEFAULT '',
		reviewed_at    TEXT,
		notes          TEXT NOT NULL DEFAULT '',
		updated_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS import_documents (
		id                TEXT PRIMARY KEY,
		business_id       TEXT NOT NULL,
		original_filename TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL,
		metadata          TEXT NOT NULL DEFAULT '{}',
		created_at        TEXT NOT NULL,
		processed_at      TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS usage_counters (
		business_id       TEXT PRIMARY KEY,
		transaction_count INTEGER NOT NULL DEFAULT 0
	)`,
}

func (s *Store) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
