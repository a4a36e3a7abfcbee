package wearables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConnectionNotFound = errors.New("wearable connection not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, conn Connection) (_ *Connection, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.wearables.add")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx,
		`INSERT INTO wearable_connection (user_id, provider, access_token, status)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, provider) DO UPDATE
				SET access_token = EXCLUDED.access_token,
					status = EXCLUDED.status,
					last_error = NULL,
					updated_at = now()
			RETURNING id`,
		conn.UserID, conn.Provider, conn.AccessToken, StatusConnected,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("unexpected error, failed to insert wearable connection")
	}
	if err := rows.Scan(&conn.ID); err != nil {
		return nil, fmt.Errorf("scan connection id: %w", err)
	}

	conn.Status = StatusConnected
	return &conn, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []Connection, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.wearables.listForUser")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, provider, access_token, status, last_sync_at, last_error, created_at, updated_at
			FROM wearable_connection
			WHERE user_id = $1
			ORDER BY provider`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

// ListConnected returns the user's connections eligible for syncing,
// i.e. everything not explicitly disconnected. Connections in error
// state are retried on the next sync.
func (r *Repo) ListConnected(ctx context.Context, userID string) (_ []Connection, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.wearables.listConnected")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, provider, access_token, status, last_sync_at, last_error, created_at, updated_at
			FROM wearable_connection
			WHERE user_id = $1 AND status <> $2
			ORDER BY provider`,
		userID, StatusDisconnected,
	)
	if err != nil {
		return nil, fmt.Errorf("query connected: %w", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

func (r *Repo) MarkSynced(ctx context.Context, id int, syncedAt time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.wearables.markSynced")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx,
		`UPDATE wearable_connection
			SET status = $1, last_sync_at = $2, last_error = NULL, updated_at = now()
			WHERE id = $3`,
		StatusConnected, syncedAt, id,
	)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (r *Repo) MarkError(ctx context.Context, id int, syncErr string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.wearables.markError")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx,
		`UPDATE wearable_connection
			SET status = $1, last_error = $2, updated_at = now()
			WHERE id = $3`,
		StatusError, pkg.Truncate(syncErr, 500), id,
	)
	if err != nil {
		return fmt.Errorf("mark error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (r *Repo) Disconnect(ctx context.Context, userID, provider string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.wearables.disconnect")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx,
		`UPDATE wearable_connection
			SET status = $1, updated_at = now()
			WHERE user_id = $2 AND provider = $3`,
		StatusDisconnected, userID, provider,
	)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func scanConnections(rows pgx.Rows) ([]Connection, error) {
	var connections []Connection
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(
			&conn.ID, &conn.UserID, &conn.Provider, &conn.AccessToken,
			&conn.Status, &conn.LastSyncAt, &conn.LastError,
			&conn.CreatedAt, &conn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connections = append(connections, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return connections, nil
}
