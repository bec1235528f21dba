package jobs

import (
	"turfmania-backend/internal/config"
	"turfmania-backend/internal/logger"
	"turfmania-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	requests service.OrganizationRequestService
	config   *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(requests service.OrganizationRequestService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		requests: requests,
		config:   cfg,
	}
}

// Config exposes the runner's configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", jobName)
	jobFunc()
	logger.Debug("Job completed", "job", jobName)
}
