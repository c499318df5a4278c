package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/store/sqlite"
)

type fakeFetcher struct {
	data []byte
	uris []string
}

func (f *fakeFetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	f.uris = append(f.uris, uri)
	return f.data, nil
}

type fakeExtractor struct {
	fields extract.Fields
}

func (f *fakeExtractor) ExtractFields(_ context.Context, _ []byte, _ string) (*extract.Fields, error) {
	out := f.fields
	return &out, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "ledgerline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &env{cfg: config.Default("biz-1", "Test Business"), store: st}
}

func TestRunDocumentsAddPersistsExtractedDocument(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	fetcher := &fakeFetcher{data: []byte("%PDF-1.4")}
	extractor := &fakeExtractor{fields: extract.Fields{
		Vendor:     "Staples",
		Amount:     decimal.RequireFromString("42.97"),
		Date:       day("2026-03-10"),
		Confidence: 0.92,
	}}

	id, err := runDocumentsAdd(ctx, e, fetcher, extractor, "gs://receipts/march/staples.pdf", "", "application/pdf")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, []string{"gs://receipts/march/staples.pdf"}, fetcher.uris)

	doc, err := e.store.GetDocument(ctx, "biz-1", id)
	require.NoError(t, err)
	assert.Equal(t, "Staples", doc.Vendor)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("42.97")))
	assert.Equal(t, day("2026-03-10"), doc.Date.UTC())
	assert.Equal(t, 0.92, doc.Confidence)
	assert.Equal(t, "gs://receipts/march/staples.pdf", doc.StorageURI)
	assert.Equal(t, "staples.pdf", doc.OriginalFilename, "filename defaults to the object name")
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Empty(t, doc.TransactionID)
}
