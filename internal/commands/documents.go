package commands

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/model"
)

func newDocumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage receipts and invoices",
	}
	cmd.AddCommand(newDocumentsAddCommand())
	return cmd
}

func newDocumentsAddCommand() *cobra.Command {
	var filename, mimeType string

	cmd := &cobra.Command{
		Use:   "add <gs://bucket/object>",
		Short: "Fetch a stored receipt, extract its fields, and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			extractor := extract.NewGeminiExtractor(e.cfg.Matching.GeminiModel)
			id, err := runDocumentsAdd(cmd.Context(), e, extract.GCSFetcher{}, extractor, args[0], filename, mimeType)
			if err != nil {
				return err
			}
			fmt.Printf("document %s registered\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "original filename (defaults to the object name)")
	cmd.Flags().StringVar(&mimeType, "mime", "application/pdf", "MIME type of the stored document")

	return cmd
}

// runDocumentsAdd downloads the document, runs field extraction, and
// persists the resulting row so the matcher can pick it up. Returns
// the new document id.
func runDocumentsAdd(ctx context.Context, e *env, fetcher extract.Fetcher, extractor extract.Extractor, uri, filename, mimeType string) (string, error) {
	log := logger.ForComponent(logger.New(), "documents")

	data, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("fetching document: %w", err)
	}

	fields, err := extractor.ExtractFields(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("extracting fields: %w", err)
	}

	if filename == "" {
		filename = path.Base(uri)
	}
	doc := &model.Document{
		ID:               uuid.NewString(),
		BusinessID:       e.cfg.Business.ID,
		StorageURI:       uri,
		OriginalFilename: filename,
		MimeType:         mimeType,
		Vendor:           fields.Vendor,
		Amount:           fields.Amount,
		Date:             fields.Date,
		Confidence:       fields.Confidence,
		UploadedAt:       time.Now(),
	}
	if err := e.store.PutDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("persisting document: %w", err)
	}

	log.Info().
		Str("document_id", doc.ID).
		Str("vendor", doc.Vendor).
		Str("amount", doc.Amount.String()).
		Float64("confidence", doc.Confidence).
		Msg("document registered")
	return doc.ID, nil
}
