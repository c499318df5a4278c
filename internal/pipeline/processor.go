package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/jobs"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Stores are the persistence ports the processor needs.
type Stores struct {
	Runner  store.TxRunner
	Lookup  store.TransactionRepository
	Imports store.ImportRepository
}

// Processor runs import batches. One Processor handles one batch at a
// time per call; independent import jobs may run concurrently on
// separate goroutines since all state is call-local.
type Processor struct {
	stores Stores
	usage  jobs.Publisher // nil disables usage dispatch
	log    zerolog.Logger
	cfg    Config

	// test seams
	sleep func(time.Duration)
	now   func() time.Time
}

// NewProcessor creates a batch processor. usage may be nil when no
// usage sink is wired.
func NewProcessor(stores Stores, usage jobs.Publisher, log zerolog.Logger, cfg Config) *Processor {
	return &Processor{
		stores: stores,
		usage:  usage,
		log:    log,
		cfg:    cfg.withDefaults(),
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// preparedTx is one transaction ready for the chunk insert, with its
// journal entries already built and balanced.
type preparedTx struct {
	index   int
	tx      *model.Transaction
	entries []model.JournalEntry
}

// Process imports raw transactions for a business. Chunks run
// sequentially; each chunk persists inside one bounded transaction
// that is retried with exponential backoff on infrastructure failure.
// Per-transaction semantic failures are isolated and reported in the
// result, not retried.
//
// progress may be nil; when set, Process sends one event per chunk
// boundary and closes the channel before returning.
func (p *Processor) Process(ctx context.Context, raw []model.RawTransaction, batch BatchContext, progress chan<- ProgressEvent) (ProcessingResult, error) {
	defer func() {
		if progress != nil {
			close(progress)
		}
	}()

	log := p.log.With().
		Str("business_id", batch.BusinessID).
		Str("import_id", batch.ImportID).
		Int("total", len(raw)).
		Logger()

	var result ProcessingResult

	// Precondition: every transaction type in the batch must have a
	// resolvable fallback account. A deficient chart of accounts fails
	// the whole batch before any chunk is attempted.
	if err := checkAccountPrecondition(raw, batch.Accounts); err != nil {
		log.Error().Err(err).Msg("batch precondition failed")
		p.emit(progress, ProgressEvent{State: ProgressFailed, Total: len(raw)})
		p.stampImport(ctx, batch, model.ImportFailed, result, err)
		return result, err
	}

	rows := make([]indexedRow, len(raw))
	for i, r := range raw {
		rows[i] = indexedRow{index: i, raw: r}
	}
	chunks := chunkRows(rows, p.cfg.ChunkSize)

	processed := 0
	for ci, chunk := range chunks {
		p.emit(progress, ProgressEvent{
			State:       ProgressProcessing,
			Chunk:       ci + 1,
			TotalChunks: len(chunks),
			Processed:   processed,
			Total:       len(raw),
		})

		chunkResult, err := p.processChunk(ctx, chunk, batch, log.With().Int("chunk", ci+1).Logger())
		if err != nil {
			// Catastrophic: a read failure outside the retried persist
			// path. Surface to the caller rather than guessing.
			p.emit(progress, ProgressEvent{State: ProgressFailed, Chunk: ci + 1, TotalChunks: len(chunks), Processed: processed, Total: len(raw)})
			p.stampImport(ctx, batch, model.ImportFailed, result, err)
			return result, err
		}

		result.Imported += chunkResult.Imported
		result.Failed += chunkResult.Failed
		result.Skipped += chunkResult.Skipped
		result.Errors = append(result.Errors, chunkResult.Errors...)
		result.TransactionIDs = append(result.TransactionIDs, chunkResult.TransactionIDs...)
		processed += len(chunk)
	}

	p.emit(progress, ProgressEvent{
		State:       ProgressCompleted,
		Chunk:       len(chunks),
		TotalChunks: len(chunks),
		Processed:   processed,
		Total:       len(raw),
	})

	finalStatus := model.ImportCompleted
	if result.Failed > 0 {
		finalStatus = model.ImportFailed
	}
	p.stampImport(ctx, batch, finalStatus, result, nil)

	log.Info().
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("batch complete")
	return result, nil
}

func (p *Processor) processChunk(ctx context.Context, chunk []indexedRow, batch BatchContext, log zerolog.Logger) (ProcessingResult, error) {
	var result ProcessingResult
	var prepared []preparedTx

	for _, row := range chunk {
		// Idempotent re-import guard: rows the bank already handed us
		// are skipped, never failed.
		if row.raw.ExternalID != "" {
			exists, err := p.stores.Lookup.ExistsByExternalID(ctx, batch.BusinessID, row.raw.ExternalID)
			if err != nil {
				return result, fmt.Errorf("checking external id %q: %w", row.raw.ExternalID, err)
			}
			if exists {
				result.Skipped++
				continue
			}
		}

		txs, err := p.prepare(row, batch)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, TransactionError{
				Index:       row.index,
				ExternalID:  row.raw.ExternalID,
				Description: row.raw.Description,
				Message:     err.Error(),
			})
			log.Warn().Err(err).Int("row", row.index).Msg("transaction excluded from chunk")
			continue
		}
		prepared = append(prepared, txs...)
	}

	if len(prepared) == 0 {
		return result, nil
	}

	if err := p.persistWithRetry(ctx, prepared, log); err != nil {
		// The bounded transaction is all-or-nothing: an exhausted chunk
		// contributes its whole insert set to failed.
		for _, pt := range prepared {
			result.Failed++
			result.Errors = append(result.Errors, TransactionError{
				Index:       pt.index,
				ExternalID:  pt.tx.ExternalID,
				Description: pt.tx.Description,
				Message:     err.Error(),
			})
		}
		return result, nil
	}

	for _, pt := range prepared {
		result.Imported++
		result.TransactionIDs = append(result.TransactionIDs, pt.tx.ID)
	}
	p.dispatchUsage(ctx, batch.BusinessID, len(prepared), log)
	return result, nil
}

// prepare resolves accounts and builds balanced journal entries for
// one raw row. A row the factory splits expands into several
// transactions, all inserted in the same chunk.
func (p *Processor) prepare(row indexedRow, batch BatchContext) ([]preparedTx, error) {
	return p.prepareRaw(row.index, row.raw, batch, false)
}

func (p *Processor) prepareRaw(index int, raw model.RawTransaction, batch BatchContext, fromSplit bool) ([]preparedTx, error) {
	categoryAccount, err := ledger.ResolveAccount(raw, batch.Accounts)
	if err != nil {
		return nil, err
	}

	tx := &model.Transaction{
		RawTransaction: raw,
		ID:             uuid.NewString(),
		BusinessID:     batch.BusinessID,
		CreatedByID:    batch.CreatedByID,
		CreatedAt:      p.now(),
	}

	plan, err := ledger.CreateJournalEntries(ledger.JournalInput{
		TransactionID:     tx.ID,
		Transaction:       raw,
		CashAccountID:     batch.Accounts.CashAccountFor(raw.BankAccountID),
		CategoryAccountID: categoryAccount,
		Accounts:          batch.Accounts,
	})
	if err != nil {
		return nil, err
	}

	if plan.RequiresSplitTransaction {
		if fromSplit {
			return nil, &ledger.JournalGenerationError{
				ExternalID: raw.ExternalID,
				Reason:     "split produced another split",
			}
		}
		var all []preparedTx
		for _, part := range plan.SplitTransactions {
			sub, err := p.prepareRaw(index, part, batch, true)
			if err != nil {
				return nil, err
			}
			all = append(all, sub...)
		}
		return all, nil
	}

	return []preparedTx{{index: index, tx: tx, entries: plan.Entries}}, nil
}

// persistWithRetry writes one chunk inside a bounded transaction,
// retrying transient failures with exponential backoff. Semantic
// errors never reach here; anything that does is worth retrying.
func (p *Processor) persistWithRetry(ctx context.Context, prepared []preparedTx, log zerolog.Logger) error {
	persist := func() error {
		return p.stores.Runner.RunInTransaction(ctx, p.cfg.TxTimeout, func(ctx context.Context, w store.BatchWriter) error {
			txs := make([]*model.Transaction, len(prepared))
			var entries []model.JournalEntry
			for i, pt := range prepared {
				txs[i] = pt.tx
				entries = append(entries, pt.entries...)
			}
			if err := w.InsertTransactions(ctx, txs); err != nil {
				return err
			}
			return w.InsertJournalEntries(ctx, entries)
		})
	}

	var err error
	if err = persist(); err == nil {
		return nil
	}

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		delay := p.cfg.RetryBaseDelay << (attempt - 1)
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("chunk persist failed, retrying")
		p.sleep(delay)

		if err = persist(); err == nil {
			return nil
		}
	}

	log.Error().Err(err).Msg("chunk persist exhausted retries")
	return fmt.Errorf("chunk persist exhausted %d retries: %w", p.cfg.MaxRetries, err)
}

// dispatchUsage publishes the usage increment fire-and-forget. Usage
// tracking sits outside the consistency boundary; failure is logged
// and dropped.
func (p *Processor) dispatchUsage(ctx context.Context, businessID string, count int, log zerolog.Logger) {
	if p.usage == nil || count == 0 {
		return
	}
	job := &jobs.RecordUsageJob{BusinessID: businessID, Count: count}
	if err := p.usage.PublishRecordUsage(ctx, job); err != nil {
		log.Warn().Err(err).Int("count", count).Msg("usage dispatch failed")
	}
}

func (p *Processor) stampImport(ctx context.Context, batch BatchContext, status model.ImportStatus, result ProcessingResult, cause error) {
	if batch.ImportID == "" {
		return
	}
	md := result.metadata()
	if cause != nil {
		md.Errors = append(md.Errors, cause.Error())
	}
	if err := p.stores.Imports.UpdateImportStatus(ctx, batch.ImportID, status, md); err != nil {
		p.log.Warn().Err(err).Str("import_id", batch.ImportID).Msg("import status update failed")
	}
}

func (p *Processor) emit(progress chan<- ProgressEvent, ev ProgressEvent) {
	if progress == nil {
		return
	}
	progress <- ev
}

// checkAccountPrecondition verifies the fallback chain resolves for
// every transaction type present in the batch.
func checkAccountPrecondition(raw []model.RawTransaction, accounts model.AccountMap) error {
	seen := make(map[model.TransactionType]bool, 3)
	for _, r := range raw {
		if seen[r.Type] {
			continue
		}
		seen[r.Type] = true
		if _, err := ledger.FallbackAccount(r.Type, accounts); err != nil {
			return err
		}
	}
	return nil
}
