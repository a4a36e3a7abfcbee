package axle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultJobHourUTC is when the daily job fires by default.
const DefaultJobHourUTC = 5

type jobRunnerFunc interface {
	Run(ctx context.Context) (JobResult, error)
}

// Scheduler fires the daily job once per day at the configured UTC
// hour. Missed or overlapping runs are harmless: the job is idempotent
// per (user, day).
type Scheduler struct {
	runner  jobRunnerFunc
	hourUTC int
	done    chan struct{}
}

func NewScheduler(runner jobRunnerFunc, hourUTC int) *Scheduler {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = DefaultJobHourUTC
	}
	return &Scheduler{
		runner:  runner,
		hourUTC: hourUTC,
		done:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) Stop() {
	close(s.done)
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		wait := time.Until(nextRunAt(time.Now(), s.hourUTC))
		log.Debugf("scheduler: next daily job in %s", wait)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			if result, err := s.runner.Run(ctx); err != nil {
				log.Errorf("scheduler: daily job failed: %s", err)
			} else {
				log.Printf("scheduler: daily job done: processed %d, created %d, errors %d",
					result.Processed, result.Created, result.Errors)
			}
		case <-s.done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextRunAt returns the next occurrence of hourUTC strictly after now.
func nextRunAt(now time.Time, hourUTC int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
