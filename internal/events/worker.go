package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink delivers a batch of custody events to the outbound stream.
type Sink interface {
	Publish(ctx context.Context, batch []Event) error
}

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Worker drains the outbox to a sink. Delivery is at-least-once: a batch is
// only marked published after the sink accepts it, so a crash between the
// two replays the batch.
type Worker struct {
	store    Store
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

type WorkerOption func(w *Worker)

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

func NewWorker(store Store, sink Sink, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:    store,
		sink:     sink,
		logger:   logger,
		interval: defaultPollInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. Sink failures are logged and
// retried on the next tick; they never propagate back to engine callers.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.WarnContext(ctx, "custody event drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		batch, err := w.store.ListPending(ctx, w.batch)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := w.sink.Publish(ctx, batch); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(batch))
		for i, e := range batch {
			ids[i] = e.ID
		}
		if err := w.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		if len(batch) < w.batch {
			return nil
		}
	}
}
