// Package memory is an in-memory implementation of the store ports.
// It is safe for concurrent use and intended for tests and
// single-process deployments; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Store holds everything behind one RWMutex. Bounded transactions
// buffer their writes and apply them under the lock, so a failed or
// timed-out chunk leaves no partial state behind.
type Store struct {
	mu sync.RWMutex

	transactions map[string]*model.Transaction
	byExternal   map[string]string // businessID+"\x00"+externalID -> transaction id
	journal      map[string][]model.JournalEntry
	documents    map[string]*model.Document
	matches      map[string]*model.DocumentMatch
	matchByPair  map[string]string // documentID+"\x00"+transactionID -> match id
	statuses     map[string]*model.ReconciliationStatus
	imports      map[string]*model.ImportDocument
	usage        map[string]int

	// commitFailures makes the next N transaction commits fail, for
	// exercising the chunk retry path.
	commitFailures int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		transactions: make(map[string]*model.Transaction),
		byExternal:   make(map[string]string),
		journal:      make(map[string][]model.JournalEntry),
		documents:    make(map[string]*model.Document),
		matches:      make(map[string]*model.DocumentMatch),
		matchByPair:  make(map[string]string),
		statuses:     make(map[string]*model.ReconciliationStatus),
		imports:      make(map[string]*model.ImportDocument),
		usage:        make(map[string]int),
	}
}

// FailNextCommits arranges for the next n bounded-transaction commits
// to fail with a transient error.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitFailures = n
}

type batchWriter struct {
	txs     []*model.Transaction
	entries []model.JournalEntry
}

func (w *batchWriter) InsertTransactions(_ context.Context, txs []*model.Transaction) error {
	w.txs = append(w.txs, txs...)
	return nil
}

func (w *batchWriter) InsertJournalEntries(_ context.Context, entries []model.JournalEntry) error {
	w.entries = append(w.entries, entries...)
	return nil
}

// RunInTransaction implements store.TxRunner. Writes are buffered and
// committed atomically; the unique (businessID, externalID) constraint
// is enforced at commit.
func (s *Store) RunInTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, w store.BatchWriter) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	w := &batchWriter{}
	if err := fn(ctx, w); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction deadline exceeded: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitFailures > 0 {
		s.commitFailures--
		return fmt.Errorf("commit failed: simulated transient error")
	}

	// Validate the whole batch before touching state.
	for _, tx := range w.txs {
		if tx.ID == "" {
			return fmt.Errorf("commit failed: transaction without id")
		}
		if tx.ExternalID != "" {
			key := externalKey(tx.BusinessID, tx.ExternalID)
			if _, dup := s.byExternal[key]; dup {
				return fmt.Errorf("commit failed: duplicate external id %q for business %q", tx.ExternalID, tx.BusinessID)
			}
		}
	}

	for _, tx := range w.txs {
		cp := *tx
		s.transactions[tx.ID] = &cp
		if tx.ExternalID != "" {
			s.byExternal[externalKey(tx.BusinessID, tx.ExternalID)] = tx.ID
		}
	}
	for _, e := range w.entries {
		s.journal[e.TransactionID] = append(s.journal[e.TransactionID], e)
	}
	return nil
}

func (s *Store) ExistsByExternalID(_ context.Context, businessID, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byExternal[externalKey(businessID, externalID)]
	return ok, nil
}

func (s *Store) GetTransaction(_ context.Context, businessID, id string) (*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok || tx.BusinessID != businessID {
		return nil, fmt.Errorf("transaction not found: %s", id)
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) ListByDateRange(_ context.Context, businessID string, from, to time.Time) ([]*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Transaction
	for _, tx := range s.transactions {
		if tx.BusinessID != businessID {
			continue
		}
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		cp := *tx
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) ListJournalEntries(_ context.Context, transactionID string) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.journal[transactionID]
	out := make([]model.JournalEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// PutDocument stores or replaces a document. Not part of the engine
// ports; upload handling lives outside this core.
func (s *Store) PutDocument(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.documents[doc.ID] = &cp
}

func (s *Store) GetDocument(_ context.Context, businessID, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok || doc.BusinessID != businessID {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	cp := *doc
	return &cp, nil
}

func (s *Store) SetDocumentTransaction(_ context.Context, documentID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return fmt.Errorf("document not found: %s", documentID)
	}
	doc.TransactionID = transactionID
	return nil
}

func (s *Store) InsertMatches(_ context.Context, matches []*model.DocumentMatch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, m := range matches {
		key := pairKey(m.DocumentID, m.TransactionID)
		if _, dup := s.matchByPair[key]; dup {
			continue
		}
		cp := *m
		s.matches[m.ID] = &cp
		s.matchByPair[key] = m.ID
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListMatchesForTransaction(_ context.Context, transactionID string) ([]*model.DocumentMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.DocumentMatch
	for _, m := range s.matches {
		if m.TransactionID == transactionID {
			cp := *m
			result = append(result, &cp)
		}
	}
	sortMatches(result)
	return result, nil
}

func (s *Store) ListSuggestedMatches(_ context.Context, businessID string, minConfidence float64) ([]*model.DocumentMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.DocumentMatch
	for _, m := range s.matches {
		if m.Status != model.MatchSuggested || m.Confidence < minConfidence {
			continue
		}
		tx, ok := s.transactions[m.TransactionID]
		if !ok || tx.BusinessID != businessID {
			continue
		}
		cp := *m
		result = append(result, &cp)
	}
	sortMatches(result)
	return result, nil
}

func (s *Store) UpdateMatchStatus(_ context.Context, matchID string, status model.MatchStatus, userConfirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return fmt.Errorf("match not found: %s", matchID)
	}
	m.Status = status
	m.IsUserConfirmed = userConfirmed
	return nil
}

func (s *Store) GetStatus(_ context.Context, transactionID string) (*model.ReconciliationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *Store) UpsertStatus(_ context.Context, status *model.ReconciliationStatus) error {
	if status.TransactionID == "" {
		return fmt.Errorf("reconciliation status requires a transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *status
	s.statuses[status.TransactionID] = &cp
	return nil
}

func (s *Store) CreateImport(_ context.Context, doc *model.ImportDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("import document requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.imports[doc.ID] = &cp
	return nil
}

func (s *Store) GetImport(_ context.Context, id string) (*model.ImportDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.imports[id]
	if !ok {
		return nil, fmt.Errorf("import document not found: %s", id)
	}
	cp := *doc
	return &cp, nil
}

func (s *Store) UpdateImportStatus(_ context.Context, id string, status model.ImportStatus, md model.ImportMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.imports[id]
	if !ok {
		return fmt.Errorf("import document not found: %s", id)
	}
	doc.Status = status
	doc.Metadata = md
	now := time.Now()
	doc.ProcessedAt = &now
	return nil
}

func (s *Store) IncrementTransactionCount(_ context.Context, businessID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[businessID] += count
	return nil
}

// UsageCount returns the recorded usage for a business. Test helper.
func (s *Store) UsageCount(businessID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[businessID]
}

func sortMatches(matches []*model.DocumentMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
}

func externalKey(businessID, externalID string) string {
	return businessID + "\x00" + externalID
}

func pairKey(documentID, transactionID string) string {
	return documentID + "\x00" + transactionID
}

var _ store.Store = (*Store)(nil)
