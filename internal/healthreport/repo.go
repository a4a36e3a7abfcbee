package healthreport

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

var ErrReportNotFound = errors.New("health report not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// UpsertDaily writes the report for (user, day), replacing the metrics,
// summary and suggestions of an existing row. The unique index on
// (user_id, day) makes this the idempotence point of the sync pipeline.
func (r *Repo) UpsertDaily(ctx context.Context, report HealthReport) (_ *HealthReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.healthreport.upsertDaily")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", report.UserID))

	metricsJson, err := json.Marshal(report.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	suggestionsJson, err := json.Marshal(report.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("marshal suggestions: %w", err)
	}

	day := pkg.DayOf(report.Day)
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO health_report
				(user_id, day, metrics, summary, suggestions, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (user_id, day) DO UPDATE
				SET metrics = EXCLUDED.metrics,
					summary = EXCLUDED.summary,
					suggestions = EXCLUDED.suggestions,
					updated_at = now()
			RETURNING id;`,
		report.UserID, day, metricsJson, report.Summary, suggestionsJson,
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
	span.SetAttributes(attribute.Int("report.id", id))

	report.ID = id
	report.Day = day
	return &report, nil
}

// ExistsForDay reports whether a health report already exists for (user, day).
func (r *Repo) ExistsForDay(ctx context.Context, userID string, day time.Time) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.healthreport.existsForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var exists bool
	err = r.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM health_report WHERE user_id = $1 AND day = $2);`,
		userID, pkg.DayOf(day),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) GetForDay(ctx context.Context, userID string, day time.Time) (_ *HealthReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.healthreport.getForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	row := r.db.QueryRow(
		ctx,
		`SELECT id, user_id, day, metrics, summary, suggestions, created_at, updated_at
			FROM health_report
			WHERE user_id = $1 AND day = $2;`,
		userID, pkg.DayOf(day),
	)

	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListRecent returns the user's reports from the trailing `days` window,
// newest first. Used by the baseline computer.
func (r *Repo) ListRecent(ctx context.Context, userID string, days int) (_ []HealthReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.healthreport.listRecent")
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
		`SELECT id, user_id, day, metrics, summary, suggestions, created_at, updated_at
			FROM health_report
			WHERE user_id = $1 AND day >= $2
			ORDER BY day DESC;`,
		userID, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []HealthReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

func scanReport(row pgx.Row) (*HealthReport, error) {
	var report HealthReport
	var metricsJson, suggestionsJson []byte
	if err := row.Scan(
		&report.ID, &report.UserID, &report.Day,
		&metricsJson, &report.Summary, &suggestionsJson,
		&report.CreatedAt, &report.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(metricsJson) > 0 {
		if err := json.Unmarshal(metricsJson, &report.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	if len(suggestionsJson) > 0 {
		if err := json.Unmarshal(suggestionsJson, &report.Suggestions); err != nil {
			return nil, fmt.Errorf("unmarshal suggestions: %w", err)
		}
	}

	// legacy envelopes normalized exactly here, at read time
	report.Metrics.Normalize()

	return &report, nil
}
