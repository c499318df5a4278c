package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/jobs"
)

// countingSink is a thread-safe usage recorder for tests.
type countingSink struct {
	mu     sync.Mutex
	counts map[string]int
	fail   int
}

func newCountingSink() *countingSink {
	return &countingSink{counts: make(map[string]int)}
}

func (s *countingSink) IncrementTransactionCount(_ context.Context, businessID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return fmt.Errorf("sink unavailable")
	}
	s.counts[businessID] += count
	return nil
}

func (s *countingSink) total(businessID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[businessID]
}

func TestQueueProcessesUsageJobs(t *testing.T) {
	sink := newCountingSink()
	store := NewStore()
	q := NewQueue(16, store)
	t.Cleanup(func() { _ = q.Close() })

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, jobs.NewUsageHandler(sink)))

	require.NoError(t, q.PublishRecordUsage(ctx, &jobs.RecordUsageJob{BusinessID: "biz-1", Count: 10}))
	require.NoError(t, q.PublishRecordUsage(ctx, &jobs.RecordUsageJob{BusinessID: "biz-1", Count: 5}))

	require.Eventually(t, func() bool {
		return sink.total("biz-1") == 15
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	sink := newCountingSink()
	sink.fail = 1 // first delivery fails, retry succeeds
	q := NewQueue(16, NewStore())
	t.Cleanup(func() { _ = q.Close() })

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, jobs.NewUsageHandler(sink)))
	require.NoError(t, q.PublishRecordUsage(ctx, &jobs.RecordUsageJob{BusinessID: "biz-1", Count: 7}))

	require.Eventually(t, func() bool {
		return sink.total("biz-1") == 7
	}, 5*time.Second, 20*time.Millisecond)
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())

	err := q.PublishRecordUsage(context.Background(), &jobs.RecordUsageJob{BusinessID: "biz-1", Count: 1})
	assert.Error(t, err)
}

func TestStoreTracksJobLifecycle(t *testing.T) {
	sink := newCountingSink()
	store := NewStore()
	q := NewQueue(16, store)
	t.Cleanup(func() { _ = q.Close() })

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, jobs.NewUsageHandler(sink)))

	job := &jobs.RecordUsageJob{BusinessID: "biz-1", Count: 3}
	require.NoError(t, q.PublishRecordUsage(ctx, job))
	require.NotEmpty(t, job.JobID)

	require.Eventually(t, func() bool {
		saved, err := store.GetJob(ctx, job.JobID)
		return err == nil && saved.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
