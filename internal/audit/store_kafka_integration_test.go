//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"contactgraph/pkg/testutil/containers"
)

func TestKafkaStore_AppendAndConsume(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "contactgraph.audit.test"
	store, err := NewKafkaStore(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	events := []Event{
		{ID: "e1", Action: ActionContactCreated, ContactID: 1, Email: "a@x.com", PhoneNumber: "111", RequestID: "req-1", Timestamp: time.Now().UTC()},
		{ID: "e2", Action: ActionContactLinked, ContactID: 2, LinkedToID: 1, Email: "a@x.com", PhoneNumber: "222", RequestID: "req-2", Timestamp: time.Now().UTC()},
	}
	for _, event := range events {
		require.NoError(t, store.Append(ctx, event))
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	var consumed []Event
	for len(consumed) < len(events) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		fetches.EachRecord(func(record *kgo.Record) {
			var event Event
			require.NoError(t, json.Unmarshal(record.Value, &event))
			assert.Equal(t, strconv.FormatInt(event.ContactID, 10), string(record.Key),
				"records are keyed by contact id")
			consumed = append(consumed, event)
		})
	}

	require.Len(t, consumed, 2)
	assert.Equal(t, "e1", consumed[0].ID)
	assert.Equal(t, ActionContactCreated, consumed[0].Action)
	assert.Equal(t, "e2", consumed[1].ID)
	assert.Equal(t, int64(1), consumed[1].LinkedToID)
}

func TestKafkaStore_CreateIsIdempotent(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "contactgraph.audit.idempotent"
	first, err := NewKafkaStore(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	first.Close()

	// Reconnecting against an existing topic must not fail.
	second, err := NewKafkaStore(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	second.Close()
}
