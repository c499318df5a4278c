package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document is an uploaded receipt or invoice with AI-extracted fields.
// A document may link to at most one transaction; TransactionID is
// empty while unlinked.
type Document struct {
	ID         string
	BusinessID string

	// Back-reference set when the document is reconciled against a
	// transaction. Must agree with the transaction's
	// ReconciliationStatus.DocumentID (bidirectional consistency).
	TransactionID string

	StorageURI       string // e.g. "gs://bucket/receipts/abc.pdf"
	OriginalFilename string
	MimeType         string

	// AI-extracted fields. Zero values mean extraction produced nothing
	// for that field.
	Vendor     string
	Amount     decimal.Decimal
	Date       time.Time
	Confidence float64 // extraction confidence in [0,1]

	UploadedAt time.Time
}

// MatchStatus is the lifecycle state of a document/transaction match.
type MatchStatus string

const (
	MatchSuggested MatchStatus = "SUGGESTED"
	MatchConfirmed MatchStatus = "CONFIRMED"
	MatchRejected  MatchStatus = "REJECTED"
	MatchManual    MatchStatus = "MANUAL"
)

// DocumentMatch joins a document to a candidate transaction with a
// matcher confidence. Rows are deduplicated on
// (DocumentID, TransactionID).
type DocumentMatch struct {
	ID              string
	DocumentID      string
	TransactionID   string
	Confidence      float64 // matcher confidence in [0,1]
	Status          MatchStatus
	MatchReason     string
	IsUserConfirmed bool
	CreatedAt       time.Time
}
