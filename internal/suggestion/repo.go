package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSuggestionNotFound = errors.New("suggested workout not found")
	// ErrSuggestionExists signals that a row for (user, day) already
	// exists. Callers racing with another job run treat it as success.
	ErrSuggestionExists = errors.New("suggested workout already exists for this day")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Insert writes a new suggestion row. A unique-constraint violation on
// (user_id, day) is mapped to ErrSuggestionExists; everything else is a
// real error.
func (r *Repo) Insert(ctx context.Context, s SuggestedWorkout) (_ *SuggestedWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.suggestion.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", s.UserID))

	rationaleJson, err := json.Marshal(s.Rationale)
	if err != nil {
		return nil, fmt.Errorf("marshal rationale: %w", err)
	}

	day := pkg.DayOf(s.Day)
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO suggested_workout
				(user_id, day, category, intensity, duration_min, rationale, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, now())
			RETURNING id;`,
		s.UserID, day, s.Category, s.Intensity, s.DurationMin, rationaleJson,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrSuggestionExists
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrSuggestionExists
		}
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil && pkg.IsUniqueViolationError(err) {
			return nil, ErrSuggestionExists
		}
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}
	span.SetAttributes(attribute.Int("suggestion.id", id))

	s.ID = id
	s.Day = day
	return &s, nil
}

// ExistsForDay reports whether a suggestion row exists for (user, day).
func (r *Repo) ExistsForDay(ctx context.Context, userID string, day time.Time) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.suggestion.existsForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var exists bool
	err = r.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM suggested_workout WHERE user_id = $1 AND day = $2);`,
		userID, pkg.DayOf(day),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) GetForDay(ctx context.Context, userID string, day time.Time) (_ *SuggestedWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.suggestion.getForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	row := r.db.QueryRow(
		ctx,
		`SELECT id, user_id, day, category, intensity, duration_min, rationale, workout_id, created_at
			FROM suggested_workout
			WHERE user_id = $1 AND day = $2;`,
		userID, pkg.DayOf(day),
	)

	s, err := scanSuggestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MarkStarted links the suggestion to the workout materialized from it.
// Done once, when the user starts the suggested workout.
func (r *Repo) MarkStarted(ctx context.Context, id, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.suggestion.markStarted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("suggestion.id", id),
		attribute.Int("workout.id", workoutID),
	)

	tag, err := r.db.Exec(
		ctx,
		`UPDATE suggested_workout SET workout_id = $1 WHERE id = $2;`,
		workoutID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

func scanSuggestion(row pgx.Row) (*SuggestedWorkout, error) {
	var s SuggestedWorkout
	var rationaleJson []byte
	if err := row.Scan(
		&s.ID, &s.UserID, &s.Day, &s.Category, &s.Intensity, &s.DurationMin,
		&rationaleJson, &s.WorkoutID, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	if len(rationaleJson) > 0 {
		if err := json.Unmarshal(rationaleJson, &s.Rationale); err != nil {
			return nil, fmt.Errorf("unmarshal rationale: %w", err)
		}
	}
	return &s, nil
}
