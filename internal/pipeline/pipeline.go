// Package pipeline implements the batch transaction processor: it
// turns raw bank rows into persisted transactions with balanced
// journal entries, chunk by chunk, under bounded database
// transactions with retry.
package pipeline

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Config holds the processor tunables. Zero values are replaced by the
// defaults below.
type Config struct {
	// ChunkSize is how many transactions share one database transaction.
	ChunkSize int

	// MaxRetries is how many times a failed chunk persist is retried
	// before the whole chunk is marked failed.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration

	// TxTimeout bounds each chunk's database transaction.
	TxTimeout time.Duration
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      10,
		MaxRetries:     3,
		RetryBaseDelay: 2 * time.Second,
		TxTimeout:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = d.TxTimeout
	}
	return c
}

// BatchContext scopes one import run.
type BatchContext struct {
	BusinessID  string
	CreatedByID string

	// ImportID, when set, names the import document whose status the
	// processor stamps after all chunks are attempted.
	ImportID string

	// Accounts is the business's chart-of-accounts resolution table.
	Accounts model.AccountMap
}

// ProgressState is the lifecycle of a batch as seen by progress
// consumers.
type ProgressState string

const (
	ProgressProcessing ProgressState = "processing"
	ProgressCompleted  ProgressState = "completed"
	ProgressFailed     ProgressState = "failed"
)

// ProgressEvent is emitted once per chunk boundary, synchronously on
// the processing path. A caller wanting asynchronous delivery bridges
// the channel to its own queue.
type ProgressEvent struct {
	State       ProgressState
	Chunk       int // 1-based chunk index
	TotalChunks int
	Processed   int // transactions attempted so far, including skips
	Total       int
}

// TransactionError records one per-transaction semantic failure.
type TransactionError struct {
	Index       int // position in the submitted batch
	ExternalID  string
	Description string
	Message     string
}

// ProcessingResult aggregates an import run across all chunks.
type ProcessingResult struct {
	Imported       int
	Failed         int
	Skipped        int
	Errors         []TransactionError
	TransactionIDs []string
}

func (r ProcessingResult) metadata() model.ImportMetadata {
	md := model.ImportMetadata{
		Imported: r.Imported,
		Failed:   r.Failed,
		Skipped:  r.Skipped,
	}
	for _, e := range r.Errors {
		md.Errors = append(md.Errors, e.Message)
	}
	return md
}

func chunkRows(rows []indexedRow, size int) [][]indexedRow {
	var chunks [][]indexedRow
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// indexedRow pairs a raw row with its position in the submitted batch
// so error entries can point back at the caller's input.
type indexedRow struct {
	index int
	raw   model.RawTransaction
}
