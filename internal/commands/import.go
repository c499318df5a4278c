package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/jobs"
	"github.com/ledgerline/ledgerline/internal/jobs/inmemory"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/pipeline"
)

func newImportCommand() *cobra.Command {
	var createdBy string

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import a batch of bank transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return runImport(cmd.Context(), e, args[0], createdBy)
		},
	}

	cmd.Flags().StringVar(&createdBy, "created-by", "cli", "user id recorded on imported transactions")

	return cmd
}

// importRow is the on-disk JSON shape of one raw transaction.
type importRow struct {
	Date            string          `json:"date"` // YYYY-MM-DD
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"` // INCOME, EXPENSE, TRANSFER
	BankAccountID   string          `json:"bank_account_id,omitempty"`
	ExternalID      string          `json:"external_id,omitempty"`
	Vendor          string          `json:"vendor,omitempty"`
	CategoryID      string          `json:"category_id,omitempty"`
	TaxAmount       decimal.Decimal `json:"tax_amount,omitempty"`
	PrincipalAmount decimal.Decimal `json:"principal_amount,omitempty"`
	InterestAmount  decimal.Decimal `json:"interest_amount,omitempty"`
}

func runImport(ctx context.Context, e *env, path, createdBy string) error {
	raw, err := readImportFile(path)
	if err != nil {
		return err
	}

	log := logger.ForComponent(logger.New(), "import")

	// Usage counting runs on the in-memory queue, fire-and-forget.
	queue := inmemory.NewQueue(16, inmemory.NewStore())
	if err := queue.Start(ctx, jobs.NewUsageHandler(e.store)); err != nil {
		return fmt.Errorf("starting usage queue: %w", err)
	}
	defer queue.Stop(context.Background())

	proc := pipeline.NewProcessor(pipeline.Stores{
		Runner:  e.store,
		Lookup:  e.store,
		Imports: e.store,
	}, queue, log, e.cfg.PipelineConfig())

	importDoc := &model.ImportDocument{
		ID:               uuid.NewString(),
		BusinessID:       e.cfg.Business.ID,
		OriginalFilename: filepath.Base(path),
		Status:           model.ImportProcessing,
		CreatedAt:        time.Now(),
	}
	if err := e.store.CreateImport(ctx, importDoc); err != nil {
		return fmt.Errorf("recording import: %w", err)
	}

	batch := pipeline.BatchContext{
		BusinessID:  e.cfg.Business.ID,
		CreatedByID: createdBy,
		ImportID:    importDoc.ID,
		Accounts:    ledger.DefaultAccountMap(e.cfg.Business.BankAccountID),
	}

	progress := make(chan pipeline.ProgressEvent, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress {
			if ev.State == pipeline.ProgressProcessing {
				fmt.Printf("chunk %d/%d (%d/%d transactions)\n", ev.Chunk, ev.TotalChunks, ev.Processed, ev.Total)
			}
		}
	}()

	result, err := proc.Process(ctx, raw, batch, progress)
	<-done
	if err != nil {
		return err
	}

	fmt.Printf("imported=%d skipped=%d failed=%d\n", result.Imported, result.Skipped, result.Failed)
	for _, te := range result.Errors {
		fmt.Printf("  row %d (%s): %s\n", te.Index, te.Description, te.Message)
	}
	return nil
}

func readImportFile(path string) ([]model.RawTransaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	var rows []importRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}

	raw := make([]model.RawTransaction, 0, len(rows))
	for i, r := range rows {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i, r.Date, err)
		}
		raw = append(raw, model.RawTransaction{
			Date:            date,
			Description:     r.Description,
			Amount:          r.Amount,
			Type:            model.TransactionType(r.Type),
			BankAccountID:   r.BankAccountID,
			ExternalID:      r.ExternalID,
			Vendor:          r.Vendor,
			CategoryID:      r.CategoryID,
			TaxAmount:       r.TaxAmount,
			PrincipalAmount: r.PrincipalAmount,
			InterestAmount:  r.InterestAmount,
		})
	}
	return raw, nil
}
