package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
)

// PutDocument inserts or replaces a document row. Rows arrive from the
// documents command after field extraction; the upload itself happens
// outside the engine.
func (s *Store) PutDocument(ctx context.Context, doc *model.Document) error {
	date := ""
	if !doc.Date.IsZero() {
		date = doc.Date.Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents
		(id, business_id, transaction_id, storage_uri, original_filename,
		 mime_type, vendor, amount, date, confidence, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transaction_id = excluded.transaction_id,
			vendor = excluded.vendor,
			amount = excluded.amount,
			date = excluded.date,
			confidence = excluded.confidence`,
		doc.ID, doc.BusinessID, doc.TransactionID, doc.StorageURI,
		doc.OriginalFilename, doc.MimeType, doc.Vendor, doc.Amount.String(),
		date, doc.Confidence, doc.UploadedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, businessID, id string) (*model.Document, error) {
	var doc model.Document
	var amount, date, uploadedAt string
	err := s.db.QueryRowContext(ctx, `SELECT id, business_id, transaction_id,
		storage_uri, original_filename, mime_type, vendor, amount, date,
		confidence, uploaded_at FROM documents WHERE id = ? AND business_id = ?`,
		id, businessID).Scan(&doc.ID, &doc.BusinessID, &doc.TransactionID,
		&doc.StorageURI, &doc.OriginalFilename, &doc.MimeType, &doc.Vendor,
		&amount, &date, &doc.Confidence, &uploadedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}

	if doc.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing document amount %q: %w", amount, err)
	}
	if date != "" {
		if doc.Date, err = time.Parse(timeLayout, date); err != nil {
			return nil, fmt.Errorf("parsing document date %q: %w", date, err)
		}
	}
	if doc.UploadedAt, err = time.Parse(timeLayout, uploadedAt); err != nil {
		return nil, fmt.Errorf("parsing uploaded_at %q: %w", uploadedAt, err)
	}
	return &doc, nil
}

func (s *Store) SetDocumentTransaction(ctx context.Context, documentID, transactionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET transaction_id = ? WHERE id = ?`, transactionID, documentID)
	if err != nil {
		return fmt.Errorf("linking document %s: %w", documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("linking document %s: %w", documentID, err)
	}
	if n == 0 {
		return fmt.Errorf("document not found: %s", documentID)
	}
	return nil
}

// InsertMatches bulk-inserts matches with INSERT OR IGNORE, so pairs
// that already exist are skipped rather than erroring.
func (s *Store) InsertMatches(ctx context.Context, matches []*model.DocumentMatch) (int, error) {
	stmt, err := s.db.PrepareContext(ctx, `INSERT OR IGNORE INTO document_matches
		(id, document_id, transaction_id, confidence, status, match_reason,
		 is_user_confirmed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing match insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range matches {
		res, err := stmt.ExecContext(ctx, m.ID, m.DocumentID, m.TransactionID,
			m.Confidence, string(m.Status), m.MatchReason,
			boolToInt(m.IsUserConfirmed), m.CreatedAt.Format(timeLayout))
		if err != nil {
			return inserted, fmt.Errorf("inserting match %s: %w", m.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("inserting match %s: %w", m.ID, err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (s *Store) ListMatchesForTransaction(ctx context.Context, transactionID string) ([]*model.DocumentMatch, error) {
	return s.queryMatches(ctx, selectMatch+` WHERE transaction_id = ?
		ORDER BY confidence DESC, created_at`, transactionID)
}

func (s *Store) ListSuggestedMatches(ctx context.Context, businessID string, minConfidence float64) ([]*model.DocumentMatch, error) {
	return s.queryMatches(ctx, selectMatch+` JOIN transactions t ON t.id = m.transaction_id
		WHERE t.business_id = ? AND m.status = ? AND m.confidence >= ?
		ORDER BY m.confidence DESC, m.created_at`,
		businessID, string(model.MatchSuggested), minConfidence)
}

func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus, userConfirmed bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE document_matches SET status = ?, is_user_confirmed = ? WHERE id = ?`,
		string(status), boolToInt(userConfirmed), matchID)
	if err != nil {
		return fmt.Errorf("updating match %s: %w", matchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating match %s: %w", matchID, err)
	}
	if n == 0 {
		return fmt.Errorf("match not found: %s", matchID)
	}
	return nil
}

const selectMatch = `SELECT m.id, m.document_id, m.transaction_id, m.confidence,
	m.status, m.match_reason, m.is_user_confirmed, m.created_at FROM document_matches m`

func (s *Store) queryMatches(ctx context.Context, query string, args ...any) ([]*model.DocumentMatch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var result []*model.DocumentMatch
	for rows.Next() {
		var m model.DocumentMatch
		var status, createdAt string
		var confirmed int
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.TransactionID, &m.Confidence,
			&status, &m.MatchReason, &confirmed, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Status = model.MatchStatus(status)
		m.IsUserConfirmed = confirmed != 0
		if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing match created_at %q: %w", createdAt, err)
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
