package jobs

import (
	"context"
	"time"

	"turfmania-backend/internal/logger"
)

// ReclaimStuckRequests returns requests that have sat in processing past the
// configured timeout back to the pending queue. An admin action racing the
// sweep wins: the reset only touches rows still matching the stale-processing
// predicate.
func (jr *JobRunner) ReclaimStuckRequests() {
	jr.runWithRecovery("ReclaimStuckRequests", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		timeout := time.Duration(jr.config.Scheduler.StuckTimeoutHours) * time.Hour
		count, err := jr.requests.ResetStuckProcessing(ctx, timeout)
		if err != nil {
			logger.Error("Failed to reclaim stuck organization requests", "error", err)
			return
		}

		if count > 0 {
			logger.Info("Reclaimed stuck organization requests", "count", count, "timeout_hours", jr.config.Scheduler.StuckTimeoutHours)
		} else {
			logger.Debug("No stuck organization requests to reclaim")
		}
	})
}
