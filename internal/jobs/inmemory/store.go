package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgerline/ledgerline/internal/jobs"
)

// Store is an in-memory implementation of jobs.JobStore. Data is lost
// on restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.RecordUsageJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.RecordUsageJob)}
}

// SaveJob implements jobs.JobStore.
func (s *Store) SaveJob(_ context.Context, job *jobs.RecordUsageJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(_ context.Context, jobID string) (*jobs.RecordUsageJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	cp := *job
	return &cp, nil
}

// ListJobs implements jobs.JobStore.
func (s *Store) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.RecordUsageJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.RecordUsageJob
	for _, job := range s.jobs {
		if filter.BusinessID != "" && job.BusinessID != filter.BusinessID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		cp := *job
		result = append(result, &cp)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.RecordUsageJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
