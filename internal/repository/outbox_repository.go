package repository

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

// Enqueue inserts a pending event within the provided transaction.
func (r *outboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error {
	query := `
		INSERT INTO order_events (id, order_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`

	_, err := tx.Exec(ctx, query,
		event.ID, event.OrderID, event.Type, []byte(event.Payload), model.EventStatusPending, event.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", event.OrderID.String()).
			Str("event_type", string(event.Type)).
			Msg("failed to enqueue order event")
		return fmt.Errorf("failed to enqueue order event: %w", err)
	}

	r.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Msg("order event enqueued")

	return nil
}

// ClaimPending locks the oldest due pending events with FOR UPDATE SKIP LOCKED.
func (r *outboxRepository) ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error) {
	query := `
		SELECT id, order_id, event_type, payload, status, attempts, last_error, created_at, processed_at
		FROM order_events
		WHERE status = $1 AND next_attempt_at <= NOW()
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, model.EventStatusPending, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query pending events")
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var e model.OrderEvent
		var payload []byte
		err := rows.Scan(&e.ID, &e.OrderID, &e.Type, &payload, &e.Status, &e.Attempts, &e.LastError, &e.CreatedAt, &e.ProcessedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan event row")
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating event rows")
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// MarkSent records a delivered event.
func (r *outboxRepository) MarkSent(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `
		UPDATE order_events
		SET status = $2, attempts = attempts + 1, processed_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, model.EventStatusSent); err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to mark event sent")
		return fmt.Errorf("failed to mark event sent: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter, schedules the retry and parks the
// event once it runs out of attempts.
func (r *outboxRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, maxAttempts int, retryAfter time.Duration) error {
	query := `
		UPDATE order_events
		SET attempts = attempts + 1,
			last_error = $2,
			next_attempt_at = NOW() + make_interval(secs => $5),
			status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END,
			processed_at = CASE WHEN attempts + 1 >= $3 THEN NOW() ELSE processed_at END
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query, id, reason, maxAttempts, string(model.EventStatusFailed), retryAfter.Seconds())
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to mark event failed")
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
