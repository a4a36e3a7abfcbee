package axle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrJobRunNotFound = errors.New("job run not found")

// JobRun is one persisted daily job execution record.
type JobRun struct {
	ID         int       `json:"id"`
	Day        time.Time `json:"day"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Errors     int       `json:"errors"`
}

type JobRunsRepo struct {
	db *pgxpool.Pool
}

func NewJobRunsRepo(db *pgxpool.Pool) *JobRunsRepo {
	return &JobRunsRepo{db: db}
}

func (r *JobRunsRepo) Insert(ctx context.Context, run JobRun) (_ *JobRun, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.jobRuns.insert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx,
		`INSERT INTO daily_job_run (day, started_at, finished_at, processed, created, errors)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
		run.Day, run.StartedAt, run.FinishedAt, run.Processed, run.Created, run.Errors,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("unexpected error, failed to insert job run")
	}
	if err := rows.Scan(&run.ID); err != nil {
		return nil, fmt.Errorf("scan job run id: %w", err)
	}
	return &run, nil
}

func (r *JobRunsRepo) Last(ctx context.Context) (_ *JobRun, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.jobRuns.last")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var run JobRun
	err = r.db.QueryRow(ctx,
		`SELECT id, day, started_at, finished_at, processed, created, errors
			FROM daily_job_run
			ORDER BY started_at DESC
			LIMIT 1`,
	).Scan(&run.ID, &run.Day, &run.StartedAt, &run.FinishedAt, &run.Processed, &run.Created, &run.Errors)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobRunNotFound
		}
		return nil, fmt.Errorf("query last job run: %w", err)
	}
	return &run, nil
}
