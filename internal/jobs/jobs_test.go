package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeEvents struct {
	closeCalls   atomic.Int32
	archiveCalls atomic.Int32
	retention    time.Duration
	err          error
}

func (f *fakeEvents) CloseDueEvents(context.Context) (int, error) {
	f.closeCalls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func (f *fakeEvents) ArchiveExpired(_ context.Context, retention time.Duration) (int, error) {
	f.archiveCalls.Add(1)
	f.retention = retention
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func TestDeadlineWatcherRun(t *testing.T) {
	events := &fakeEvents{}
	w := NewDeadlineWatcher(events, time.Second)
	if got := w.Run(context.Background()); got != 2 {
		t.Errorf("expected 2 closed, got %d", got)
	}

	events.err = errors.New("db down")
	if got := w.Run(context.Background()); got != 0 {
		t.Errorf("expected 0 on error, got %d", got)
	}
}

func TestRetentionJobPassesRetention(t *testing.T) {
	events := &fakeEvents{}
	j := NewRetentionJob(events, 90*24*time.Hour, time.Hour)
	if got := j.Run(context.Background()); got != 1 {
		t.Errorf("expected 1 archived, got %d", got)
	}
	if events.retention != 90*24*time.Hour {
		t.Errorf("unexpected retention %v", events.retention)
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	events := &fakeEvents{}
	s, err := NewScheduler(map[string]Job{
		"deadline-watcher": NewDeadlineWatcher(events, 20*time.Millisecond),
		"retention":        NewRetentionJob(events, time.Hour, 0),
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for events.closeCalls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if events.closeCalls.Load() < 2 {
		t.Errorf("expected the watcher to run repeatedly, ran %d times", events.closeCalls.Load())
	}
	if events.archiveCalls.Load() != 0 {
		t.Errorf("disabled retention job ran %d times", events.archiveCalls.Load())
	}
}
