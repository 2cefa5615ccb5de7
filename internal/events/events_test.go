package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arisan/pkg/requestcontext"
)

func TestNew(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	e, err := New(ctx, MemberJoined, "pool-1", "alice", map[string]int{"position": 3})
	require.NoError(t, err)

	assert.Equal(t, at, e.OccurredAt)
	assert.Equal(t, "pool-1", e.AggregateID)

	var payload map[string]int
	require.NoError(t, e.Decode(&payload))
	assert.Equal(t, 3, payload["position"])
}

func TestNew_UnmarshalablePayload(t *testing.T) {
	_, err := New(context.Background(), PoolCreated, "p", "a", make(chan int))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	a, _ := New(ctx, VouchGiven, "bob", "alice", nil)
	b, _ := New(ctx, VouchRevoked, "bob", "alice", nil)

	require.NoError(t, r.Publish(ctx, a, b))

	assert.Len(t, r.Events(), 2)
	assert.Equal(t, []Type{VouchGiven, VouchRevoked}, r.Types())
	assert.Len(t, r.OfType(VouchRevoked), 1)
}

type failing struct{}

func (failing) Publish(context.Context, ...Event) error { return errors.New("down") }

func TestMulti(t *testing.T) {
	ctx := context.Background()
	e, _ := New(ctx, PoolStarted, "p", "a", nil)

	first, last := NewRecorder(), NewRecorder()
	err := Multi{first, failing{}, last}.Publish(ctx, e)

	assert.Error(t, err)
	assert.Len(t, first.Events(), 1)
	assert.Empty(t, last.Events())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))
	e, _ := New(context.Background(), CycleSettled, "pool-9", "alice", map[string]int{"cycle": 0})

	require.NoError(t, p.Publish(context.Background(), e))
	assert.Contains(t, buf.String(), "cycle_settled")
	assert.Contains(t, buf.String(), "log_type=audit")
}
