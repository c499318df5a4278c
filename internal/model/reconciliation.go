package model

import "time"

// ReconState is the reconciliation lifecycle state of a transaction.
// UNMATCHED is implicit when no ReconciliationStatus row exists.
type ReconState string

const (
	ReconUnmatched        ReconState = "UNMATCHED"
	ReconMatched          ReconState = "MATCHED"
	ReconPartiallyMatched ReconState = "PARTIALLY_MATCHED"
	ReconPendingReview    ReconState = "PENDING_REVIEW"
	ReconManuallyMatched  ReconState = "MANUALLY_MATCHED"
	ReconExcluded         ReconState = "EXCLUDED"
)

// ReconciliationStatus is the one-per-transaction reconciliation
// record. Created lazily; its lifecycle is driven entirely by the
// reconciliation service.
type ReconciliationStatus struct {
	TransactionID string
	Status        ReconState
	DocumentID    string // set for matched states, empty otherwise
	Confidence    float64
	ManuallySet   bool
	ReviewedBy    string
	ReviewedAt    *time.Time
	Notes         string
	UpdatedAt     time.Time
}

// ImportStatus is the lifecycle of an import run (statement upload or
// bank-feed sync batch).
type ImportStatus string

const (
	ImportPending    ImportStatus = "PENDING"
	ImportProcessing ImportStatus = "PROCESSING"
	ImportCompleted  ImportStatus = "COMPLETED"
	ImportFailed     ImportStatus = "FAILED"
)

// ImportDocument tracks one import run end to end. The batch processor
// stamps the final status and embeds the aggregate counts.
type ImportDocument struct {
	ID               string
	BusinessID       string
	OriginalFilename string
	Status           ImportStatus
	Metadata         ImportMetadata
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

// ImportMetadata is the aggregate outcome embedded on the import
// document once all chunks have been attempted.
type ImportMetadata struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
