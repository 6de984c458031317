package jobs

import (
	"context"
	"time"

	"github.com/google/logger"
)

// EventCloser closes open events whose close time has passed
type EventCloser interface {
	CloseDueEvents(ctx context.Context) (int, error)
}

// DeadlineWatcher closes events at their deadline even when nobody submits.
// Coordinators also close lazily on every mutation, so a missed tick only
// delays the Closed notification.
type DeadlineWatcher struct {
	events   EventCloser
	interval time.Duration
}

// NewDeadlineWatcher creates a new deadline watcher job
func NewDeadlineWatcher(events EventCloser, interval time.Duration) *DeadlineWatcher {
	return &DeadlineWatcher{
		events:   events,
		interval: interval,
	}
}

func (w *DeadlineWatcher) Interval() time.Duration {
	return w.interval
}

// Run closes every due event once
func (w *DeadlineWatcher) Run(ctx context.Context) int {
	closed, err := w.events.CloseDueEvents(ctx)
	if err != nil {
		logger.Errorf("[DeadlineWatcher] Error closing due events: %v", err)
		return 0
	}
	if closed > 0 {
		logger.Infof("[DeadlineWatcher] Closed %d events at their deadline", closed)
	}
	return closed
}
