// Package store defines the persistence ports the import and
// reconciliation engine runs against. The core algorithms are
// storage-agnostic; adapters live in store/sqlite and store/memory.
package store

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// BatchWriter is the write surface available inside a bounded
// transaction. Everything written through one BatchWriter commits or
// rolls back as a unit.
type BatchWriter interface {
	InsertTransactions(ctx context.Context, txs []*model.Transaction) error
	InsertJournalEntries(ctx context.Context, entries []model.JournalEntry) error
}

// TxRunner opens a bounded, timed transaction. fn's writes are
// all-or-nothing: if fn returns an error, the deadline expires, or the
// commit fails, nothing fn wrote survives.
type TxRunner interface {
	RunInTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, w BatchWriter) error) error
}

// TransactionRepository reads persisted transactions.
type TransactionRepository interface {
	// ExistsByExternalID reports whether the business already imported
	// a transaction with this bank-side id.
	ExistsByExternalID(ctx context.Context, businessID, externalID string) (bool, error)

	GetTransaction(ctx context.Context, businessID, id string) (*model.Transaction, error)

	// ListByDateRange returns the business's transactions with dates in
	// [from, to], ordered by creation. The matcher uses this to gather
	// candidates around a document date.
	ListByDateRange(ctx context.Context, businessID string, from, to time.Time) ([]*model.Transaction, error)

	ListJournalEntries(ctx context.Context, transactionID string) ([]model.JournalEntry, error)
}

// DocumentRepository reads and links receipt/invoice documents.
type DocumentRepository interface {
	GetDocument(ctx context.Context, businessID, id string) (*model.Document, error)

	// SetDocumentTransaction sets or clears (empty transactionID) the
	// document's back-reference to its reconciled transaction.
	SetDocumentTransaction(ctx context.Context, documentID, transactionID string) error
}

// MatchRepository stores document/transaction match candidates.
type MatchRepository interface {
	// InsertMatches bulk-inserts matches, skipping rows whose
	// (documentID, transactionID) pair already exists. Returns the
	// number actually inserted.
	InsertMatches(ctx context.Context, matches []*model.DocumentMatch) (int, error)

	ListMatchesForTransaction(ctx context.Context, transactionID string) ([]*model.DocumentMatch, error)

	// ListSuggestedMatches returns SUGGESTED matches at or above
	// minConfidence for the business, highest confidence first.
	ListSuggestedMatches(ctx context.Context, businessID string, minConfidence float64) ([]*model.DocumentMatch, error)

	UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus, userConfirmed bool) error
}

// ReconciliationRepository stores the one-per-transaction
// reconciliation record.
type ReconciliationRepository interface {
	// GetStatus returns nil (no error) when no record exists, which
	// callers read as the implicit UNMATCHED state.
	GetStatus(ctx context.Context, transactionID string) (*model.ReconciliationStatus, error)

	// UpsertStatus inserts or replaces by transaction id.
	UpsertStatus(ctx context.Context, status *model.ReconciliationStatus) error
}

// ImportRepository tracks import runs.
type ImportRepository interface {
	CreateImport(ctx context.Context, doc *model.ImportDocument) error
	GetImport(ctx context.Context, id string) (*model.ImportDocument, error)
	UpdateImportStatus(ctx context.Context, id string, status model.ImportStatus, md model.ImportMetadata) error
}

// UsageRecorder is the best-effort usage counting sink. Failures are
// logged and dropped; the counter is outside the ledger-consistency
// boundary and must never corrupt financial data.
type UsageRecorder interface {
	IncrementTransactionCount(ctx context.Context, businessID string, count int) error
}

// Store aggregates every port a fully wired engine needs.
type Store interface {
	TxRunner
	TransactionRepository
	DocumentRepository
	MatchRepository
	ReconciliationRepository
	ImportRepository
	UsageRecorder
}
