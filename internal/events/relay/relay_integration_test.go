//go:build integration

package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arisan/internal/events"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/tx"
	"arisan/pkg/testutil/containers"
)

func TestRelayDeliversOutboxToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := containers.NewPostgresContainer(t)
	kafka := containers.NewKafkaContainer(t)
	const topic = "arisan.events.test"
	kafka.CreateTopic(ctx, t, topic)

	outbox := events.NewOutbox(pg.DB)
	seq := tx.NewSQL(pg.DB)

	var published []events.Event
	for _, typ := range []events.Type{events.PoolCreated, events.MemberJoined} {
		e, err := events.New(ctx, typ, "pool-1", id.Address("0xalice"), map[string]string{"k": "v"})
		require.NoError(t, err)
		published = append(published, e)
	}
	require.NoError(t, seq.RunInTx(ctx, func(txCtx context.Context) error {
		return outbox.Publish(txCtx, published...)
	}))

	client, err := NewKafkaClient([]string{kafka.Broker}, topic)
	require.NoError(t, err)
	defer client.Close()

	r, err := New(outbox, client, topic, WithMetrics(NewMetrics(prometheus.NewRegistry())))
	require.NoError(t, err)

	n, err := r.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "relayed events are marked published")

	records := kafka.Consume(ctx, t, topic, 2)
	require.Len(t, records, 2)
	for i, rec := range records {
		assert.Equal(t, "pool-1", string(rec.Key))
		var got events.Event
		require.NoError(t, json.Unmarshal(rec.Value, &got))
		assert.Equal(t, published[i].ID, got.ID)
		assert.Equal(t, published[i].Type, got.Type)
	}

	n, err = r.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
