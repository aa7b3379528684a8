package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contactgraph/pkg/requestcontext"
)

// Publisher buffers audit events for the worker. Emit never blocks the
// resolver: when the buffer is full the event is dropped and counted in the
// log rather than stalling a request.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit stamps the event with an id, timestamp, and the request id from
// context, then enqueues it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, event dropped",
				"action", event.Action,
				"contact_id", event.ContactID,
			)
		}
	}
}

// Events exposes the buffered channel for the worker.
func (p *Publisher) Events() <-chan Event {
	return p.inbox
}
