package axle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/suggestion"
	"github.com/noble-hunt/axle/internal/telemetry/metrics"
	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"

	log "github.com/sirupsen/logrus"
)

const activeUserWindowDays = 14

// JobResult summarizes one daily job run.
type JobResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Errors    int `json:"errors"`
}

type jobWorkoutsRepo interface {
	ActiveUserIDs(ctx context.Context, days int) ([]string, error)
}

type jobSuggestionService interface {
	ExistsForDay(ctx context.Context, userID string, day time.Time) (bool, error)
	CreateForDay(ctx context.Context, userID string, day time.Time) (bool, *suggestion.SuggestedWorkout, error)
}

type userSyncer interface {
	SyncUser(ctx context.Context, userID string) (*healthreport.HealthReport, error)
}

type jobRunsRepo interface {
	Insert(ctx context.Context, run JobRun) (*JobRun, error)
}

// JobRunner is the daily orchestrator: sync health data and create a
// workout suggestion for every user with recent workout activity.
// All run state is explicit, carried in the JobResult and persisted as
// a job run row; overlapping runs are safe because suggestion inserts
// are guarded by the (user, day) unique constraint.
type JobRunner struct {
	workouts    jobWorkoutsRepo
	suggestions jobSuggestionService
	syncer      userSyncer
	jobRuns     jobRunsRepo
	metrics     *metrics.Manager

	workers int
	now     func() time.Time
}

type JobRunnerParams struct {
	Workouts    jobWorkoutsRepo
	Suggestions jobSuggestionService
	Syncer      userSyncer
	JobRuns     jobRunsRepo
	Metrics     *metrics.Manager

	// Workers bounds how many users are processed concurrently.
	// Defaults to 1, i.e. the sequential behavior.
	Workers int
	Now     func() time.Time
}

func NewJobRunner(params JobRunnerParams) *JobRunner {
	if params.Workers <= 0 {
		params.Workers = 1
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &JobRunner{
		workouts:    params.Workouts,
		suggestions: params.Suggestions,
		syncer:      params.Syncer,
		jobRuns:     params.JobRuns,
		metrics:     params.Metrics,
		workers:     params.Workers,
		now:         params.Now,
	}
}

// Run executes one pass over all active users. The only fatal error is
// the initial active-user query; everything after that is isolated per
// user and only increments the error counter.
func (jr *JobRunner) Run(ctx context.Context) (_ JobResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "axle.job.run")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	startedAt := jr.now()
	today := pkg.DayOf(startedAt)
	log.Debugf("daily job: starting for %s", today.Format("2006-01-02"))

	userIDs, err := jr.workouts.ActiveUserIDs(ctx, activeUserWindowDays)
	if err != nil {
		return JobResult{}, fmt.Errorf("query active users: %w", err)
	}

	var mu sync.Mutex
	var result JobResult

	userCh := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < jr.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range userCh {
				created, userErr := jr.processUser(ctx, userID, today)

				mu.Lock()
				result.Processed++
				if created {
					result.Created++
				}
				if userErr != nil {
					result.Errors++
				}
				mu.Unlock()
			}
		}()
	}

	for _, userID := range userIDs {
		userCh <- userID
	}
	close(userCh)
	wg.Wait()

	duration := jr.now().Sub(startedAt)
	log.Debugf(
		"daily job: done in %s, processed %d, created %d, errors %d",
		duration, result.Processed, result.Created, result.Errors,
	)
	if jr.metrics != nil {
		jr.metrics.HistDailyJobDuration.Observe(duration.Seconds())
	}

	if jr.jobRuns != nil {
		if _, insertErr := jr.jobRuns.Insert(ctx, JobRun{
			Day:        today,
			StartedAt:  startedAt,
			FinishedAt: jr.now(),
			Processed:  result.Processed,
			Created:    result.Created,
			Errors:     result.Errors,
		}); insertErr != nil {
			log.Errorf("daily job: persist run record: %s", insertErr)
		}
	}

	return result, nil
}

// processUser is fully isolated: any error, or even a panic, is
// contained to this user and reported through the returned error.
func (jr *JobRunner) processUser(ctx context.Context, userID string, today time.Time) (created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			log.Errorf("daily job: user %s: %s", userID, err)
			if jr.metrics != nil {
				jr.metrics.CounterJobUserErrors.Inc()
			}
		}
	}()

	exists, err := jr.suggestions.ExistsForDay(ctx, userID, today)
	if err != nil {
		return false, fmt.Errorf("check existing suggestion: %w", err)
	}
	if exists {
		log.Tracef("daily job: user %s already has a suggestion for today", userID)
		return false, nil
	}

	if _, err := jr.syncer.SyncUser(ctx, userID); err != nil {
		return false, fmt.Errorf("health sync: %w", err)
	}

	inserted, _, err := jr.suggestions.CreateForDay(ctx, userID, today)
	if err != nil {
		return false, fmt.Errorf("create suggestion: %w", err)
	}
	if inserted && jr.metrics != nil {
		jr.metrics.CounterSuggestionsCreated.Inc()
	}
	return inserted, nil
}
