package suggestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/internal/workout"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const historyWindowDays = 14

type workoutsRepo interface {
	ListRecent(ctx context.Context, userID string, days int) ([]workout.Workout, error)
}

type reportsRepo interface {
	GetForDay(ctx context.Context, userID string, day time.Time) (*healthreport.HealthReport, error)
}

type suggestionsRepo interface {
	Insert(ctx context.Context, s SuggestedWorkout) (*SuggestedWorkout, error)
	ExistsForDay(ctx context.Context, userID string, day time.Time) (bool, error)
	GetForDay(ctx context.Context, userID string, day time.Time) (*SuggestedWorkout, error)
	MarkStarted(ctx context.Context, id, workoutID int) error
}

type Service struct {
	suggestions suggestionsRepo
	workouts    workoutsRepo
	reports     reportsRepo
}

func NewService(suggestions suggestionsRepo, workouts workoutsRepo, reports reportsRepo) *Service {
	return &Service{
		suggestions: suggestions,
		workouts:    workouts,
		reports:     reports,
	}
}

// GetOrCreateToday returns the user's suggestion for today, computing
// and storing one on demand if the daily job has not created it yet.
func (s *Service) GetOrCreateToday(ctx context.Context, userID string) (_ *SuggestedWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.suggestion.getOrCreateToday")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	today := time.Now()
	existing, err := s.suggestions.GetForDay(ctx, userID, today)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrSuggestionNotFound) {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}

	_, created, err := s.CreateForDay(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateForDay computes and inserts the suggestion for (user, day).
// When another run wins the insert race, the stored row is returned
// with inserted=false; the race is not an error.
func (s *Service) CreateForDay(ctx context.Context, userID string, day time.Time) (inserted bool, _ *SuggestedWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.suggestion.createForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	lastWorkouts, err := s.workouts.ListRecent(ctx, userID, historyWindowDays)
	if err != nil {
		return false, nil, fmt.Errorf("list recent workouts: %w", err)
	}

	report, err := s.reports.GetForDay(ctx, userID, day)
	if err != nil {
		if !errors.Is(err, healthreport.ErrReportNotFound) {
			return false, nil, fmt.Errorf("get health report: %w", err)
		}
		// degraded path: suggestion from workout history alone
		report = nil
		log.Debugf("no health report for user %s today, suggesting without health modulation", userID)
	}

	target := Compute(Inputs{
		Today:        day,
		LastWorkouts: lastWorkouts,
		HealthReport: report,
	})

	stored, err := s.suggestions.Insert(ctx, SuggestedWorkout{
		UserID:      userID,
		Day:         day,
		Category:    target.Category,
		Intensity:   target.Intensity,
		DurationMin: target.DurationMin,
		Rationale:   target.Rationale,
	})
	if err != nil {
		if errors.Is(err, ErrSuggestionExists) {
			span.SetAttributes(attribute.Bool("suggestion.race", true))
			existing, getErr := s.suggestions.GetForDay(ctx, userID, day)
			if getErr != nil {
				return false, nil, fmt.Errorf("get suggestion after insert race: %w", getErr)
			}
			return false, existing, nil
		}
		return false, nil, fmt.Errorf("insert suggestion: %w", err)
	}

	return true, stored, nil
}

// ExistsForDay exposes the repo idempotence check to the daily job.
func (s *Service) ExistsForDay(ctx context.Context, userID string, day time.Time) (bool, error) {
	return s.suggestions.ExistsForDay(ctx, userID, day)
}

// Start links the suggestion to the workout the user materialized it into.
func (s *Service) Start(ctx context.Context, id, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.suggestion.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.suggestions.MarkStarted(ctx, id, workoutID); err != nil {
		return fmt.Errorf("mark suggestion started: %w", err)
	}
	return nil
}
