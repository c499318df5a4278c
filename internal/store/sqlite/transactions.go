package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/store"
)

const timeLayout = time.RFC3339Nano

type txBatchWriter struct {
	tx *sql.Tx
}

func (w *txBatchWriter) InsertTransactions(ctx context.Context, txs []*model.Transaction) error {
	stmt, err := w.tx.PrepareContext(ctx, `INSERT INTO transactions (
		id, business_id, created_by_id, date, description, amount, type,
		bank_account_id, external_id, vendor, tax_amount, principal_amount,
		interest_amount, suggested_category, category_id, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing transaction insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		_, err := stmt.ExecContext(ctx,
			t.ID, t.BusinessID, t.CreatedByID,
			t.Date.Format(timeLayout), t.Description, t.Amount.String(), string(t.Type),
			t.BankAccountID, t.ExternalID, t.Vendor,
			t.TaxAmount.String(), t.PrincipalAmount.String(), t.InterestAmount.String(),
			t.SuggestedCategory, t.CategoryID, t.CreatedAt.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func (w *txBatchWriter) InsertJournalEntries(ctx context.Context, entries []model.JournalEntry) error {
	stmt, err := w.tx.PrepareContext(ctx, `INSERT INTO journal_entries
		(id, transaction_id, account_id, amount, side, memo)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing journal insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.ID, e.TransactionID, e.AccountID,
			e.Amount.String(), string(e.Side), e.Memo)
		if err != nil {
			return fmt.Errorf("inserting journal entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// RunInTransaction implements store.TxRunner. The timeout bounds the
// whole transaction including commit; on any error the transaction is
// rolled back and nothing written inside fn survives.
func (s *Store) RunInTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, w store.BatchWriter) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(ctx, &txBatchWriter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) ExistsByExternalID(ctx context.Context, businessID, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE business_id = ? AND external_id = ?`,
		businessID, externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying external id %q: %w", externalID, err)
	}
	return n > 0, nil
}

func (s *Store) GetTransaction(ctx context.Context, businessID, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND business_id = ?`, id, businessID)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction not found: %s", id)
	}
	return tx, err
}

func (s *Store) ListByDateRange(ctx context.Context, businessID string, from, to time.Time) ([]*model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		selectTransaction+` WHERE business_id = ? AND date >= ? AND date <= ? ORDER BY created_at, id`,
		businessID, from.Format(timeLayout), to.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying transactions by date range: %w", err)
	}
	defer rows.Close()

	var result []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func (s *Store) ListJournalEntries(ctx context.Context, transactionID string) ([]model.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transaction_id, account_id, amount, side, memo
		 FROM journal_entries WHERE transaction_id = ? ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		var amount, side string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &amount, &side, &e.Memo); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing journal amount %q: %w", amount, err)
		}
		e.Side = model.EntrySide(side)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const selectTransaction = `SELECT id, business_id, created_by_id, date, description,
	amount, type, bank_account_id, external_id, vendor, tax_amount,
	principal_amount, interest_amount, suggested_category, category_id, created_at
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	var date, amount, txType, tax, principal, interest, createdAt string
	err := row.Scan(&t.ID, &t.BusinessID, &t.CreatedByID, &date, &t.Description,
		&amount, &txType, &t.BankAccountID, &t.ExternalID, &t.Vendor,
		&tax, &principal, &interest, &t.SuggestedCategory, &t.CategoryID, &createdAt)
	if err != nil {
		return nil, err
	}

	t.Type = model.TransactionType(txType)
	if t.Date, err = time.Parse(timeLayout, date); err != nil {
		return nil, fmt.Errorf("parsing transaction date %q: %w", date, err)
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{amount, &t.Amount}, {tax, &t.TaxAmount},
		{principal, &t.PrincipalAmount}, {interest, &t.InterestAmount},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", f.raw, err)
		}
	}
	return &t, nil
}
