package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/logger"
)

// Job is one periodic task
type Job interface {
	Interval() time.Duration
	Run(ctx context.Context) int
}

// Scheduler runs the background jobs. A run that outlasts its interval is
// not overlapped by the next one.
type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers jobs by name; jobs with a non-positive interval
// are left out.
func NewScheduler(jobs map[string]Job) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, ctx: ctx, cancel: cancel}

	for name, job := range jobs {
		if job.Interval() <= 0 {
			logger.Warningf("[Scheduler] Job %s disabled (interval %v)", name, job.Interval())
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(job.Interval()),
			gocron.NewTask(func() { job.Run(s.ctx) }),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			cancel()
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s: %w", name, err)
		}
		logger.Infof("[Scheduler] Scheduled %s every %v", name, job.Interval())
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.sched.Shutdown()
}
