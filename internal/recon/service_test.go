package recon

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/store"
	"github.com/ledgerline/ledgerline/internal/store/memory"
)

const testBusiness = "biz-1"

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewService(Stores{
		Transactions: st,
		Documents:    st,
		Matches:      st,
		Statuses:     st,
	}, zerolog.Nop(), DefaultServiceConfig())
	return svc, st
}

func seedTransaction(t *testing.T, st *memory.Store, id, description, amount, date string) {
	t.Helper()
	err := st.RunInTransaction(context.Background(), time.Minute, func(ctx context.Context, w store.BatchWriter) error {
		return w.InsertTransactions(ctx, []*model.Transaction{{
			RawTransaction: model.RawTransaction{
				Description: description,
				Amount:      decimal.RequireFromString(amount),
				Date:        day(date),
				Type:        model.TypeExpense,
			},
			ID:         id,
			BusinessID: testBusiness,
			CreatedAt:  time.Now(),
		}})
	})
	require.NoError(t, err)
}

func seedDocument(st *memory.Store, id, vendor, amount, date string) {
	st.PutDocument(&model.Document{
		ID:         id,
		BusinessID: testBusiness,
		Vendor:     vendor,
		Amount:     decimal.RequireFromString(amount),
		Date:       day(date),
		UploadedAt: time.Now(),
	})
}

func testScope() Scope {
	return Scope{BusinessID: testBusiness, UserID: "user-1"}
}

func TestMatchDocumentConfirmsTopMatch(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "STAPLES STORE #4421", "-42.97", "2026-03-10")
	seedDocument(st, "doc-1", "Staples", "42.97", "2026-03-10")

	matches, err := svc.MatchDocument(ctx, testScope(), "doc-1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, model.MatchConfirmed, matches[0].Status)

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconMatched, st1.Status)
	assert.Equal(t, "doc-1", st1.DocumentID)
	assert.False(t, st1.ManuallySet)

	doc, err := st.GetDocument(ctx, testBusiness, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", doc.TransactionID, "link must be bidirectional")
}

func TestMatchDocumentSuggestionsGoPendingReview(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	// Five days out with no vendor signal: suggested, not confirmed.
	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-15")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	matches, err := svc.MatchDocument(ctx, testScope(), "doc-1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, model.MatchSuggested, matches[0].Status)

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconPendingReview, st1.Status)
	assert.Empty(t, st1.DocumentID)
}

func TestMatchDocumentIsScopeChecked(t *testing.T) {
	svc, st := newTestService(t)
	seedDocument(st, "doc-1", "Staples", "42.97", "2026-03-10")

	_, err := svc.MatchDocument(context.Background(), Scope{BusinessID: "other-biz", UserID: "user-1"}, "doc-1")
	require.Error(t, err)

	var scopeErr *ScopeError
	assert.ErrorAs(t, err, &scopeErr)
}

func TestMatchDocumentRerunDoesNotDuplicate(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-15")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	_, err := svc.MatchDocument(ctx, testScope(), "doc-1")
	require.NoError(t, err)
	_, err = svc.MatchDocument(ctx, testScope(), "doc-1")
	require.NoError(t, err)

	rows, err := st.ListMatchesForTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAutoReconcileAppliesHighConfidenceSuggestions(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-15")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	matches, err := svc.MatchDocument(ctx, testScope(), "doc-1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, model.MatchSuggested, matches[0].Status)
	require.GreaterOrEqual(t, matches[0].Confidence, 0.8)

	applied, err := svc.AutoReconcile(ctx, testBusiness)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconMatched, st1.Status)
	assert.Equal(t, "doc-1", st1.DocumentID)

	doc, err := st.GetDocument(ctx, testBusiness, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", doc.TransactionID)

	// A second sweep finds nothing left to do.
	applied, err = svc.AutoReconcile(ctx, testBusiness)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestAutoReconcileNeverOverwritesManualState(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-15")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")
	seedDocument(st, "doc-2", "", "42.97", "2026-03-15")

	_, err := svc.MatchDocument(ctx, testScope(), "doc-1")
	require.NoError(t, err)

	// The user picks a different document before the sweep runs.
	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-1", "doc-2"))

	applied, err := svc.AutoReconcile(ctx, testBusiness)
	require.NoError(t, err)
	assert.Zero(t, applied)

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReconManuallyMatched, st1.Status)
	assert.Equal(t, "doc-2", st1.DocumentID)
}

func TestManualMatchIsIdempotent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-10")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-1", "doc-1"))
	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-1", "doc-1"))

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconManuallyMatched, st1.Status)
	assert.Equal(t, 1.0, st1.Confidence)
	assert.True(t, st1.ManuallySet)
	assert.Equal(t, "user-1", st1.ReviewedBy)
	require.NotNil(t, st1.ReviewedAt)

	rows, err := st.ListMatchesForTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.MatchManual, rows[0].Status)
	assert.True(t, rows[0].IsUserConfirmed)
}

func TestManualMatchRelinkReleasesPreviousTransaction(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-10")
	seedTransaction(t, st, "tx-2", "CARD PURCHASE", "-42.97", "2026-03-11")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-1", "doc-1"))
	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-2", "doc-1"))

	doc, err := st.GetDocument(ctx, testBusiness, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-2", doc.TransactionID)

	// The transaction that lost the document goes back to UNMATCHED;
	// it must not keep claiming the document.
	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconUnmatched, st1.Status)
	assert.Empty(t, st1.DocumentID)

	st2, err := st.GetStatus(ctx, "tx-2")
	require.NoError(t, err)
	require.NotNil(t, st2)
	assert.Equal(t, model.ReconManuallyMatched, st2.Status)
	assert.Equal(t, "doc-1", st2.DocumentID)
}

func TestBulkReconcileRelinkReleasesPreviousTransaction(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-10")
	seedTransaction(t, st, "tx-2", "CARD PURCHASE", "-42.97", "2026-03-11")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-1", "doc-1"))

	applied, err := svc.BulkReconcile(ctx, testScope(), []BulkPair{
		{TransactionID: "tx-2", DocumentID: "doc-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	doc, err := st.GetDocument(ctx, testBusiness, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-2", doc.TransactionID)

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconUnmatched, st1.Status)
	assert.Empty(t, st1.DocumentID)
}

func TestManualMatchRejectsForeignTransaction(t *testing.T) {
	svc, st := newTestService(t)
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	err := svc.ManualMatch(context.Background(), testScope(), "tx-unknown", "doc-1")
	require.Error(t, err)

	var scopeErr *ScopeError
	require.ErrorAs(t, err, &scopeErr)
	assert.Equal(t, "transaction", scopeErr.Resource)
}

func TestUnmatchRestoresUnmatchedAndClearsLink(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-10")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")

	require.NoError(t, svc.ManualMatch(ctx, testScope(), "tx-1", "doc-1"))
	require.NoError(t, svc.Unmatch(ctx, testScope(), "tx-1"))

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconUnmatched, st1.Status)
	assert.Empty(t, st1.DocumentID)
	assert.True(t, st1.ManuallySet)
	assert.Equal(t, "user-1", st1.ReviewedBy)

	doc, err := st.GetDocument(ctx, testBusiness, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, doc.TransactionID)
}

func TestBulkReconcileSkipsDuplicates(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "CARD PURCHASE", "-42.97", "2026-03-10")
	seedTransaction(t, st, "tx-2", "CARD PURCHASE", "-10.00", "2026-03-10")
	seedDocument(st, "doc-1", "", "42.97", "2026-03-10")
	seedDocument(st, "doc-2", "", "10.00", "2026-03-10")

	pairs := []BulkPair{
		{TransactionID: "tx-1", DocumentID: "doc-1"},
		{TransactionID: "tx-1", DocumentID: "doc-1"}, // duplicate
		{TransactionID: "tx-2", DocumentID: "doc-2", Confidence: 0.95},
	}

	applied, err := svc.BulkReconcile(ctx, testScope(), pairs)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	st2, err := st.GetStatus(ctx, "tx-2")
	require.NoError(t, err)
	require.NotNil(t, st2)
	assert.Equal(t, model.ReconManuallyMatched, st2.Status)
	assert.Equal(t, 0.95, st2.Confidence)
}

func TestExcludeMarksTransaction(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, st, "tx-1", "MONTHLY ACCOUNT FEE", "-5.00", "2026-03-01")
	require.NoError(t, svc.Exclude(ctx, testScope(), "tx-1", "bank fee"))

	st1, err := st.GetStatus(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, st1)
	assert.Equal(t, model.ReconExcluded, st1.Status)
	assert.True(t, st1.ManuallySet)
	assert.Equal(t, "bank fee", st1.Notes)
}
