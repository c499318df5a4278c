package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Scope identifies the acting user and the business they act for.
// Authorization itself is external; the service only enforces that
// every touched record belongs to the scope's business before any
// write.
type Scope struct {
	BusinessID string
	UserID     string
}

// ScopeError reports an attempt to act on a record outside the
// caller's business scope. Nothing is mutated when it is returned.
type ScopeError struct {
	Resource string
	ID       string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s %s is outside the caller's business scope", e.Resource, e.ID)
}

// ServiceConfig tunes the reconciliation service.
type ServiceConfig struct {
	Matcher MatcherParams

	// AutoReconcileThreshold is the minimum suggested-match confidence
	// the sweep will accept.
	AutoReconcileThreshold float64
}

// DefaultServiceConfig returns the tuned defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Matcher:                DefaultMatcherParams(),
		AutoReconcileThreshold: 0.8,
	}
}

// Stores are the persistence ports the service needs.
type Stores struct {
	Transactions store.TransactionRepository
	Documents    store.DocumentRepository
	Matches      store.MatchRepository
	Statuses     store.ReconciliationRepository
}

// Service drives the reconciliation lifecycle of transactions:
// UNMATCHED -> PENDING_REVIEW -> MATCHED / MANUALLY_MATCHED, with
// EXCLUDED and explicit unmatch as operator escapes.
type Service struct {
	stores Stores
	log    zerolog.Logger
	cfg    ServiceConfig
	now    func() time.Time
}

// NewService creates a reconciliation service.
func NewService(stores Stores, log zerolog.Logger, cfg ServiceConfig) *Service {
	if cfg.AutoReconcileThreshold <= 0 {
		cfg.AutoReconcileThreshold = DefaultServiceConfig().AutoReconcileThreshold
	}
	if cfg.Matcher.MaxDateDiffDays == 0 {
		cfg.Matcher = DefaultMatcherParams()
	}
	return &Service{stores: stores, log: log, cfg: cfg, now: time.Now}
}

// MatchDocument runs the matcher for one document against the
// business's transactions around the document date and persists the
// ranked suggestions. The top match above the auto-confirm threshold
// reconciles immediately; other suggestions put their transaction into
// PENDING_REVIEW.
func (s *Service) MatchDocument(ctx context.Context, scope Scope, documentID string) ([]Match, error) {
	doc, err := s.stores.Documents.GetDocument(ctx, scope.BusinessID, documentID)
	if err != nil {
		return nil, &ScopeError{Resource: "document", ID: documentID}
	}
	if doc.Date.IsZero() || doc.Amount.IsZero() {
		return nil, fmt.Errorf("document %s has no extracted amount/date to match on", documentID)
	}

	window := time.Duration(s.cfg.Matcher.MaxDateDiffDays) * 24 * time.Hour
	candidates, err := s.stores.Transactions.ListByDateRange(ctx, scope.BusinessID,
		doc.Date.Add(-window), doc.Date.Add(window))
	if err != nil {
		return nil, fmt.Errorf("listing candidate transactions: %w", err)
	}

	found := FindMatches(Extracted{
		Vendor:     doc.Vendor,
		Amount:     doc.Amount,
		Date:       doc.Date,
		Confidence: doc.Confidence,
	}, candidates, s.cfg.Matcher)
	if len(found) == 0 {
		return nil, nil
	}

	// Only the top-ranked match may confirm: a document links to at
	// most one transaction.
	rows := make([]*model.DocumentMatch, 0, len(found))
	for i, m := range found {
		status := m.Status
		if status == model.MatchConfirmed && i > 0 {
			status = model.MatchSuggested
		}
		found[i].Status = status
		rows = append(rows, &model.DocumentMatch{
			ID:            uuid.NewString(),
			DocumentID:    documentID,
			TransactionID: m.TransactionID,
			Confidence:    m.Confidence,
			Status:        status,
			MatchReason:   m.Reason,
			CreatedAt:     s.now(),
		})
	}

	inserted, err := s.stores.Matches.InsertMatches(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("persisting matches: %w", err)
	}
	s.log.Info().
		Str("document_id", documentID).
		Int("candidates", len(candidates)).
		Int("persisted", inserted).
		Msg("document matched")

	for i, m := range found {
		existing, err := s.stores.Statuses.GetStatus(ctx, m.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("reading reconciliation status: %w", err)
		}
		if existing != nil {
			continue
		}
		if i == 0 && m.Status == model.MatchConfirmed {
			if err := s.applyMatch(ctx, scope.BusinessID, m.TransactionID, documentID, m.Confidence, model.ReconMatched, false, ""); err != nil {
				return nil, err
			}
			if err := s.confirmMatchRow(ctx, m.TransactionID, documentID, false); err != nil {
				return nil, err
			}
			continue
		}
		st := &model.ReconciliationStatus{
			TransactionID: m.TransactionID,
			Status:        model.ReconPendingReview,
			Confidence:    m.Confidence,
			UpdatedAt:     s.now(),
		}
		if err := s.stores.Statuses.UpsertStatus(ctx, st); err != nil {
			return nil, fmt.Errorf("marking pending review: %w", err)
		}
	}
	return found, nil
}

// AutoReconcile sweeps the business's suggested matches at or above
// the threshold and applies the single highest-confidence eligible
// match per transaction. Transactions that already have any
// reconciliation status are left alone, so a manually-set status is
// never overwritten. Returns the number of transactions reconciled.
func (s *Service) AutoReconcile(ctx context.Context, businessID string) (int, error) {
	suggested, err := s.stores.Matches.ListSuggestedMatches(ctx, businessID, s.cfg.AutoReconcileThreshold)
	if err != nil {
		return 0, fmt.Errorf("listing suggested matches: %w", err)
	}

	applied := 0
	handled := make(map[string]bool)
	for _, m := range suggested {
		if handled[m.TransactionID] {
			continue
		}
		handled[m.TransactionID] = true

		existing, err := s.stores.Statuses.GetStatus(ctx, m.TransactionID)
		if err != nil {
			return applied, fmt.Errorf("reading reconciliation status: %w", err)
		}
		if existing != nil && existing.Status != model.ReconPendingReview {
			continue
		}
		if existing != nil && existing.ManuallySet {
			continue
		}

		doc, err := s.stores.Documents.GetDocument(ctx, businessID, m.DocumentID)
		if err != nil || (doc.TransactionID != "" && doc.TransactionID != m.TransactionID) {
			continue // document gone or already linked elsewhere
		}

		if err := s.applyMatch(ctx, businessID, m.TransactionID, m.DocumentID, m.Confidence, model.ReconMatched, false, ""); err != nil {
			return applied, err
		}
		if err := s.stores.Matches.UpdateMatchStatus(ctx, m.ID, model.MatchConfirmed, false); err != nil {
			return applied, fmt.Errorf("confirming match: %w", err)
		}
		applied++
	}

	s.log.Info().Str("business_id", businessID).Int("applied", applied).Msg("auto-reconcile sweep complete")
	return applied, nil
}

// ManualMatch reconciles a user-selected (transaction, document) pair.
// Idempotent: repeating the same pair is a state-wise no-op.
func (s *Service) ManualMatch(ctx context.Context, scope Scope, transactionID, documentID string) error {
	if err := s.checkScope(ctx, scope, transactionID, documentID); err != nil {
		return err
	}

	existing, err := s.stores.Statuses.GetStatus(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("reading reconciliation status: %w", err)
	}
	if existing != nil && existing.Status == model.ReconManuallyMatched && existing.DocumentID == documentID {
		return nil
	}

	if err := s.clearPreviousLink(ctx, existing, documentID); err != nil {
		return err
	}
	if err := s.applyMatch(ctx, scope.BusinessID, transactionID, documentID, 1.0, model.ReconManuallyMatched, true, scope.UserID); err != nil {
		return err
	}
	return s.upsertManualMatchRow(ctx, transactionID, documentID, 1.0)
}

// BulkPair is one validated entry of a bulk reconcile request.
type BulkPair struct {
	TransactionID string
	DocumentID    string
	Confidence    float64
}

// BulkReconcile applies the manual-match effect to a list of pairs,
// skipping duplicates. Returns how many pairs were applied.
func (s *Service) BulkReconcile(ctx context.Context, scope Scope, pairs []BulkPair) (int, error) {
	applied := 0
	for _, pair := range pairs {
		if err := s.checkScope(ctx, scope, pair.TransactionID, pair.DocumentID); err != nil {
			return applied, err
		}

		existing, err := s.stores.Statuses.GetStatus(ctx, pair.TransactionID)
		if err != nil {
			return applied, fmt.Errorf("reading reconciliation status: %w", err)
		}
		if existing != nil && existing.Status == model.ReconManuallyMatched {
			continue // duplicate of an earlier reconcile
		}

		conf := pair.Confidence
		if conf <= 0 || conf > 1 {
			conf = 1.0
		}
		if err := s.clearPreviousLink(ctx, existing, pair.DocumentID); err != nil {
			return applied, err
		}
		if err := s.applyMatch(ctx, scope.BusinessID, pair.TransactionID, pair.DocumentID, conf, model.ReconManuallyMatched, true, scope.UserID); err != nil {
			return applied, err
		}
		if err := s.upsertManualMatchRow(ctx, pair.TransactionID, pair.DocumentID, conf); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Unmatch returns a transaction to UNMATCHED, clearing both sides of
// the document link and recording who did it. An unmatch is always a
// manual act.
func (s *Service) Unmatch(ctx context.Context, scope Scope, transactionID string) error {
	if _, err := s.stores.Transactions.GetTransaction(ctx, scope.BusinessID, transactionID); err != nil {
		return &ScopeError{Resource: "transaction", ID: transactionID}
	}

	existing, err := s.stores.Statuses.GetStatus(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("reading reconciliation status: %w", err)
	}
	if existing != nil && existing.DocumentID != "" {
		if err := s.stores.Documents.SetDocumentTransaction(ctx, existing.DocumentID, ""); err != nil {
			return fmt.Errorf("clearing document link: %w", err)
		}
	}

	now := s.now()
	st := &model.ReconciliationStatus{
		TransactionID: transactionID,
		Status:        model.ReconUnmatched,
		ManuallySet:   true,
		ReviewedBy:    scope.UserID,
		ReviewedAt:    &now,
		UpdatedAt:     now,
	}
	if err := s.stores.Statuses.UpsertStatus(ctx, st); err != nil {
		return fmt.Errorf("unmatching transaction: %w", err)
	}
	return nil
}

// Exclude marks a transaction non-reconcilable (bank fees, internal
// sweeps). Always manual.
func (s *Service) Exclude(ctx context.Context, scope Scope, transactionID, notes string) error {
	if _, err := s.stores.Transactions.GetTransaction(ctx, scope.BusinessID, transactionID); err != nil {
		return &ScopeError{Resource: "transaction", ID: transactionID}
	}

	now := s.now()
	st := &model.ReconciliationStatus{
		TransactionID: transactionID,
		Status:        model.ReconExcluded,
		ManuallySet:   true,
		ReviewedBy:    scope.UserID,
		ReviewedAt:    &now,
		Notes:         notes,
		UpdatedAt:     now,
	}
	if err := s.stores.Statuses.UpsertStatus(ctx, st); err != nil {
		return fmt.Errorf("excluding transaction: %w", err)
	}
	return nil
}

// clearPreviousLink drops the back-reference of a document the
// transaction was previously linked to, so re-matching never leaves a
// stale link behind.
func (s *Service) clearPreviousLink(ctx context.Context, existing *model.ReconciliationStatus, newDocumentID string) error {
	if existing == nil || existing.DocumentID == "" || existing.DocumentID == newDocumentID {
		return nil
	}
	if err := s.stores.Documents.SetDocumentTransaction(ctx, existing.DocumentID, ""); err != nil {
		return fmt.Errorf("clearing previous document link: %w", err)
	}
	return nil
}

// releaseDocumentHolder returns the transaction currently holding the
// document to UNMATCHED when the document is being re-pointed at a
// different transaction, so the old status never keeps a stale link.
func (s *Service) releaseDocumentHolder(ctx context.Context, businessID, documentID, newTransactionID string) error {
	doc, err := s.stores.Documents.GetDocument(ctx, businessID, documentID)
	if err != nil {
		return fmt.Errorf("reading document %s: %w", documentID, err)
	}
	if doc.TransactionID == "" || doc.TransactionID == newTransactionID {
		return nil
	}
	holder, err := s.stores.Statuses.GetStatus(ctx, doc.TransactionID)
	if err != nil {
		return fmt.Errorf("reading reconciliation status: %w", err)
	}
	if holder == nil || holder.DocumentID != documentID {
		return nil
	}
	st := &model.ReconciliationStatus{
		TransactionID: doc.TransactionID,
		Status:        model.ReconUnmatched,
		UpdatedAt:     s.now(),
	}
	if err := s.stores.Statuses.UpsertStatus(ctx, st); err != nil {
		return fmt.Errorf("releasing transaction %s: %w", doc.TransactionID, err)
	}
	return nil
}

// applyMatch writes the matched-side state: the reconciliation status
// and the document's back-reference, keeping the link bidirectional.
// A transaction that previously held the document is released first.
func (s *Service) applyMatch(ctx context.Context, businessID, transactionID, documentID string, confidence float64, state model.ReconState, manual bool, userID string) error {
	if err := s.releaseDocumentHolder(ctx, businessID, documentID, transactionID); err != nil {
		return err
	}

	now := s.now()
	st := &model.ReconciliationStatus{
		TransactionID: transactionID,
		Status:        state,
		DocumentID:    documentID,
		Confidence:    confidence,
		ManuallySet:   manual,
		UpdatedAt:     now,
	}
	if manual {
		st.ReviewedBy = userID
		st.ReviewedAt = &now
	}
	if err := s.stores.Statuses.UpsertStatus(ctx, st); err != nil {
		return fmt.Errorf("upserting reconciliation status: %w", err)
	}
	if err := s.stores.Documents.SetDocumentTransaction(ctx, documentID, transactionID); err != nil {
		return fmt.Errorf("linking document: %w", err)
	}
	return nil
}

// upsertManualMatchRow creates the MANUAL match row, or flips an
// existing row for the pair to MANUAL.
func (s *Service) upsertManualMatchRow(ctx context.Context, transactionID, documentID string, confidence float64) error {
	inserted, err := s.stores.Matches.InsertMatches(ctx, []*model.DocumentMatch{{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		TransactionID:   transactionID,
		Confidence:      confidence,
		Status:          model.MatchManual,
		MatchReason:     "manually matched",
		IsUserConfirmed: true,
		CreatedAt:       s.now(),
	}})
	if err != nil {
		return fmt.Errorf("inserting manual match: %w", err)
	}
	if inserted == 1 {
		return nil
	}
	return s.confirmMatchRow(ctx, transactionID, documentID, true)
}

// confirmMatchRow flips the existing (document, transaction) match row
// to its confirmed form.
func (s *Service) confirmMatchRow(ctx context.Context, transactionID, documentID string, manual bool) error {
	existing, err := s.stores.Matches.ListMatchesForTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("listing matches: %w", err)
	}
	for _, m := range existing {
		if m.DocumentID != documentID {
			continue
		}
		status := model.MatchConfirmed
		if manual {
			status = model.MatchManual
		}
		if m.Status == status {
			return nil
		}
		return s.stores.Matches.UpdateMatchStatus(ctx, m.ID, status, manual)
	}
	return nil
}

func (s *Service) checkScope(ctx context.Context, scope Scope, transactionID, documentID string) error {
	if _, err := s.stores.Transactions.GetTransaction(ctx, scope.BusinessID, transactionID); err != nil {
		return &ScopeError{Resource: "transaction", ID: transactionID}
	}
	if _, err := s.stores.Documents.GetDocument(ctx, scope.BusinessID, documentID); err != nil {
		return &ScopeError{Resource: "document", ID: documentID}
	}
	return nil
}
