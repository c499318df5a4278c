package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/store"
)

func (s *Store) GetStatus(ctx context.Context, transactionID string) (*model.ReconciliationStatus, error) {
	var st model.ReconciliationStatus
	var status, updatedAt string
	var reviewedAt sql.NullString
	var manuallySet int
	err := s.db.QueryRowContext(ctx, `SELECT transaction_id, status, document_id,
		confidence, manually_set, reviewed_by, reviewed_at, notes, updated_at
		FROM reconciliation_statuses WHERE transaction_id = ?`, transactionID).
		Scan(&st.TransactionID, &status, &st.DocumentID, &st.Confidence,
			&manuallySet, &st.ReviewedBy, &reviewedAt, &st.Notes, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // implicit UNMATCHED
	}
	if err != nil {
		return nil, fmt.Errorf("querying reconciliation status: %w", err)
	}

	st.Status = model.ReconState(status)
	st.ManuallySet = manuallySet != 0
	if st.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	if reviewedAt.Valid && reviewedAt.String != "" {
		t, err := time.Parse(timeLayout, reviewedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing reviewed_at %q: %w", reviewedAt.String, err)
		}
		st.ReviewedAt = &t
	}
	return &st, nil
}

func (s *Store) UpsertStatus(ctx context.Context, st *model.ReconciliationStatus) error {
	if st.TransactionID == "" {
		return fmt.Errorf("reconciliation status requires a transaction id")
	}
	var reviewedAt any
	if st.ReviewedAt != nil {
		reviewedAt = st.ReviewedAt.Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO reconciliation_statuses
		(transaction_id, status, document_id, confidence, manually_set,
		 reviewed_by, reviewed_at, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			status = excluded.status,
			document_id = excluded.document_id,
			confidence = excluded.confidence,
			manually_set = excluded.manually_set,
			reviewed_by = excluded.reviewed_by,
			reviewed_at = excluded.reviewed_at,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		st.TransactionID, string(st.Status), st.DocumentID, st.Confidence,
		boolToInt(st.ManuallySet), st.ReviewedBy, reviewedAt, st.Notes,
		st.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upserting reconciliation status for %s: %w", st.TransactionID, err)
	}
	return nil
}

func (s *Store) CreateImport(ctx context.Context, doc *model.ImportDocument) error {
	md, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling import metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO import_documents
		(id, business_id, original_filename, status, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.BusinessID, doc.OriginalFilename, string(doc.Status),
		string(md), doc.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("creating import document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) GetImport(ctx context.Context, id string) (*model.ImportDocument, error) {
	var doc model.ImportDocument
	var status, md, createdAt string
	var processedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, business_id, original_filename,
		status, metadata, created_at, processed_at FROM import_documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.BusinessID, &doc.OriginalFilename, &status, &md,
			&createdAt, &processedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("import document not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying import document %s: %w", id, err)
	}

	doc.Status = model.ImportStatus(status)
	if err := json.Unmarshal([]byte(md), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling import metadata: %w", err)
	}
	if doc.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if processedAt.Valid && processedAt.String != "" {
		t, err := time.Parse(timeLayout, processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing processed_at %q: %w", processedAt.String, err)
		}
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

func (s *Store) UpdateImportStatus(ctx context.Context, id string, status model.ImportStatus, md model.ImportMetadata) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshaling import metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE import_documents
		SET status = ?, metadata = ?, processed_at = ? WHERE id = ?`,
		string(status), string(raw), time.Now().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("updating import document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating import document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("import document not found: %s", id)
	}
	return nil
}

func (s *Store) IncrementTransactionCount(ctx context.Context, businessID string, count int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO usage_counters
		(business_id, transaction_count) VALUES (?, ?)
		ON CONFLICT(business_id) DO UPDATE SET
			transaction_count = transaction_count + excluded.transaction_count`,
		businessID, count)
	if err != nil {
		return fmt.Errorf("incrementing usage for %s: %w", businessID, err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
