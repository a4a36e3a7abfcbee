package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutNotFound = errors.New("workout not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, w Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout
				(user_id, category, intensity, duration_min, feedback, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		w.UserID, w.Category, w.Intensity, w.DurationMin, w.Feedback, w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}
	span.SetAttributes(attribute.Int("workout.id", id))

	w.ID = id
	return &w, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	row := r.db.QueryRow(
		ctx,
		`SELECT id, user_id, category, intensity, duration_min, feedback, created_at
			FROM workout WHERE id = $1;`,
		id,
	)

	var w Workout
	err = row.Scan(&w.ID, &w.UserID, &w.Category, &w.Intensity, &w.DurationMin, &w.Feedback, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListRecent returns the user's workouts from the trailing `days` window,
// newest first. The suggestion computer and fatigue math both read this.
func (r *Repo) ListRecent(ctx context.Context, userID string, days int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.listRecent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("days", days),
	)

	from := pkg.DayOf(time.Now()).AddDate(0, 0, -days)
	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, category, intensity, duration_min, feedback, created_at
			FROM workout
			WHERE user_id = $1 AND created_at >= $2
			ORDER BY created_at DESC;`,
		userID, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Category, &w.Intensity, &w.DurationMin, &w.Feedback, &w.CreatedAt,
		); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}

// ActiveUserIDs returns distinct users with any workout in the trailing
// `days` window. Users with no recent activity are never processed by the
// daily job.
func (r *Repo) ActiveUserIDs(ctx context.Context, days int) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.activeUserIDs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	from := pkg.DayOf(time.Now()).AddDate(0, 0, -days)
	rows, err := r.db.Query(
		ctx,
		`SELECT DISTINCT user_id FROM workout WHERE created_at >= $1;`,
		from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return userIDs, nil
}
