package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactgraph/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_EmitStampsEvent(t *testing.T) {
	p := NewPublisher(4, discardLogger())
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	p.Emit(ctx, Event{Action: ActionContactCreated, ContactID: 7})

	event := <-p.Events()
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, ActionContactCreated, event.Action)
	assert.Equal(t, int64(7), event.ContactID)
}

func TestPublisher_EmitKeepsExistingStamps(t *testing.T) {
	p := NewPublisher(4, discardLogger())
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p.Emit(context.Background(), Event{
		ID:        "fixed-id",
		Timestamp: ts,
		RequestID: "fixed-req",
		Action:    ActionContactDeleted,
	})

	event := <-p.Events()
	assert.Equal(t, "fixed-id", event.ID)
	assert.Equal(t, ts, event.Timestamp)
	assert.Equal(t, "fixed-req", event.RequestID)
}

func TestPublisher_EmitDropsWhenFull(t *testing.T) {
	p := NewPublisher(1, discardLogger())

	p.Emit(context.Background(), Event{Action: ActionContactCreated, ContactID: 1})
	// Buffer is full; this must not block.
	done := make(chan struct{})
	go func() {
		p.Emit(context.Background(), Event{Action: ActionContactCreated, ContactID: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	event := <-p.Events()
	assert.Equal(t, int64(1), event.ContactID)
	assert.Empty(t, p.Events())
}

func TestWorker_DrainsToStore(t *testing.T) {
	p := NewPublisher(8, discardLogger())
	sink := NewMemoryStore()
	w := NewWorker(sink, p.Events(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	p.Emit(ctx, Event{Action: ActionContactCreated, ContactID: 1})
	p.Emit(ctx, Event{Action: ActionContactLinked, ContactID: 2, LinkedToID: 1})

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	events := sink.Events()
	assert.Equal(t, ActionContactCreated, events[0].Action)
	assert.Equal(t, ActionContactLinked, events[1].Action)
}

// failingStore always rejects appends.
type failingStore struct{ calls atomic.Int32 }

func (s *failingStore) Append(context.Context, Event) error {
	s.calls.Add(1)
	return errors.New("sink unavailable")
}

func TestWorker_ContinuesAfterAppendFailure(t *testing.T) {
	p := NewPublisher(8, discardLogger())
	sink := &failingStore{}
	w := NewWorker(sink, p.Events(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	defer cancel()

	p.Emit(ctx, Event{Action: ActionContactCreated, ContactID: 1})
	p.Emit(ctx, Event{Action: ActionContactCreated, ContactID: 2})

	require.Eventually(t, func() bool {
		return sink.calls.Load() == 2
	}, time.Second, 10*time.Millisecond)
}
