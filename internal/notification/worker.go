package notification

import (
	"context"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// TxBeginner opens the transaction a batch is claimed in.
type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

const maxRetryDelay = time.Hour

// WorkerConfig controls the outbox polling loop.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// RetryBase is the delay before the first retry of a failed event. It
	// doubles with every further attempt. Zero means PollInterval.
	RetryBase time.Duration
}

// Worker delivers outbox events after the transaction that wrote them has
// committed. Rows stay locked while a batch is processed, so several workers
// may run against the same table.
type Worker struct {
	db         TxBeginner
	outbox     repository.OutboxRepository
	dispatcher *Dispatcher
	publisher  events.Publisher
	cfg        WorkerConfig
	logger     zerolog.Logger
}

// NewWorker creates an outbox worker.
func NewWorker(db TxBeginner, outbox repository.OutboxRepository, dispatcher *Dispatcher, publisher events.Publisher, cfg WorkerConfig, logger zerolog.Logger) *Worker {
	return &Worker{
		db:         db,
		outbox:     outbox,
		dispatcher: dispatcher,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.With().Str("component", "outbox-worker").Logger(),
	}
}

// Run polls until ctx is cancelled. A full batch that delivered something is
// followed immediately by another poll; anything else waits for the ticker.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().
		Dur("poll_interval", w.cfg.PollInterval).
		Int("batch_size", w.cfg.BatchSize).
		Msg("outbox worker started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			claimed, delivered, err := w.processBatch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Error().Err(err).Msg("outbox batch failed")
				}
				break
			}
			if claimed < w.cfg.BatchSize || delivered == 0 {
				break
			}
		}

		select {
		case <-ctx.Done():
			w.logger.Info().Msg("outbox worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims and delivers one batch, returning how many events it handled.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	claimed, _, err := w.processBatch(ctx)
	return claimed, err
}

func (w *Worker) processBatch(ctx context.Context) (claimed, delivered int, err error) {
	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return 0, 0, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				w.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	pending, err := w.outbox.ClaimPending(ctx, tx, w.cfg.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	for i := range pending {
		event := &pending[i]

		if deliverErr := w.deliver(ctx, event); deliverErr != nil {
			w.logger.Warn().
				Err(deliverErr).
				Str("event_id", event.ID.String()).
				Str("event_type", string(event.Type)).
				Int("attempt", event.Attempts+1).
				Msg("event delivery failed")

			retryAfter := w.retryDelay(event.Attempts)
			if err = w.outbox.MarkFailed(ctx, tx, event.ID, deliverErr.Error(), w.cfg.MaxAttempts, retryAfter); err != nil {
				return 0, 0, err
			}
			continue
		}

		if err = w.outbox.MarkSent(ctx, tx, event.ID); err != nil {
			return 0, 0, err
		}
		delivered++
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, 0, err
	}

	if len(pending) > 0 {
		w.logger.Debug().Int("count", len(pending)).Int("delivered", delivered).Msg("outbox batch processed")
	}
	return len(pending), delivered, nil
}

// retryDelay is RetryBase doubled once per earlier attempt, capped at an hour.
func (w *Worker) retryDelay(attempts int) time.Duration {
	base := w.cfg.RetryBase
	if base <= 0 {
		base = w.cfg.PollInterval
	}
	if attempts > 16 {
		attempts = 16
	}
	d := base << attempts
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// deliver notifies the buyer, then publishes the event. Publication is
// best-effort and never fails the delivery.
func (w *Worker) deliver(ctx context.Context, event *model.OrderEvent) error {
	if err := w.dispatcher.Dispatch(ctx, event); err != nil {
		return err
	}

	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn().Err(err).Str("event_id", event.ID.String()).Msg("event publication failed")
	}
	return nil
}
