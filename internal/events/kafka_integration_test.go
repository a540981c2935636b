//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"provchain/internal/events"
	id "provchain/pkg/domain"
	"provchain/pkg/testutil/containers"
)

func TestKafkaSinkPublishes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := containers.NewRedpandaContainer(t)
	const topic = "provchain.custody.test"

	sink, err := events.NewKafkaSink(ctx, []string{broker.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	productID := id.NewProductID()
	batch := []events.Event{
		{Type: events.TypeProductRegistered, ProductID: productID, Actor: "0xACME", Owner: "0xACME"},
		{Type: events.TypeProductTransferred, ProductID: productID, Actor: "0xACME", Owner: "0xDIST", Sequence: 0},
	}
	require.NoError(t, sink.Publish(ctx, batch))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var received []events.Event
	for len(received) < len(batch) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		fetches.EachRecord(func(record *kgo.Record) {
			// Same product, same key, same partition: order is preserved.
			require.Equal(t, productID.String(), string(record.Key))
			var e events.Event
			require.NoError(t, json.Unmarshal(record.Value, &e))
			received = append(received, e)
		})
	}

	require.Len(t, received, 2)
	require.Equal(t, events.TypeProductRegistered, received[0].Type)
	require.Equal(t, events.TypeProductTransferred, received[1].Type)
	require.Equal(t, id.Principal("0xDIST"), received[1].Owner)
}
