package jobs

import (
	"context"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/store"
)

// NewUsageHandler returns the JobHandler that applies RecordUsageJobs
// to the usage sink. Wire it into a Consumer at startup.
func NewUsageHandler(sink store.UsageRecorder) JobHandler {
	return func(ctx context.Context, job Job) error {
		usage, ok := job.(*RecordUsageJob)
		if !ok {
			return fmt.Errorf("unexpected job type %q", job.GetType())
		}
		if usage.Count <= 0 {
			return nil
		}
		return sink.IncrementTransactionCount(ctx, usage.BusinessID, usage.Count)
	}
}
