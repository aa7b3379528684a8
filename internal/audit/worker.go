package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher's channel into the configured sink. Append
// failures are logged and skipped; audit delivery is best-effort and must not
// take the service down.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker wires the sink to the event channel.
func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run consumes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"contact_id", event.ContactID,
					"error", err,
				)
			}
		}
	}
}
