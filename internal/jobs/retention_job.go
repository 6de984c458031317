package jobs

import (
	"context"
	"time"

	"github.com/google/logger"
)

// EventArchiver archives and removes events drawn before the retention window
type EventArchiver interface {
	ArchiveExpired(ctx context.Context, retention time.Duration) (int, error)
}

type RetentionJob struct {
	events    EventArchiver
	retention time.Duration
	interval  time.Duration
}

func NewRetentionJob(events EventArchiver, retention, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		events:    events,
		retention: retention,
		interval:  interval,
	}
}

func (j *RetentionJob) Interval() time.Duration {
	return j.interval
}

// Run archives every expired event once
func (j *RetentionJob) Run(ctx context.Context) int {
	archived, err := j.events.ArchiveExpired(ctx, j.retention)
	if err != nil {
		logger.Errorf("[RetentionJob] Error archiving expired events: %v", err)
		return 0
	}
	if archived > 0 {
		logger.Infof("[RetentionJob] Archived %d events older than %v", archived, j.retention)
	}
	return archived
}
