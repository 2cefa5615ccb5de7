package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"

	"arisan/internal/events"
	"arisan/internal/events/relay/mocks"
)

// =============================================================================
// Outbox Relay Test Suite
// =============================================================================
// Justification for unit tests: the produce-then-mark ordering decides whether
// delivery is at least once, which integration tests cannot provoke reliably.

type RelaySuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	source   *mocks.MockSource
	producer *mocks.MockProducer
	metrics  *Metrics
	relay    *Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockSource(s.ctrl)
	s.producer = mocks.NewMockProducer(s.ctrl)
	s.metrics = NewMetrics(prometheus.NewRegistry())

	var err error
	s.relay, err = New(s.source, s.producer, "arisan.events",
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithBatchSize(10),
	)
	s.Require().NoError(err)
}

func (s *RelaySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RelaySuite) pending(n int) []events.Event {
	out := make([]events.Event, n)
	for i := range out {
		out[i] = events.Event{
			ID:          uuid.New(),
			Type:        events.MemberJoined,
			AggregateID: "pool-1",
			Actor:       "alice",
			OccurredAt:  time.Now().UTC(),
			Payload:     json.RawMessage(`{"member":"alice"}`),
		}
	}
	return out
}

func (s *RelaySuite) TestNew() {
	s.Run("nil source returns error", func() {
		_, err := New(nil, s.producer, "t")
		s.ErrorContains(err, "outbox source is required")
	})
	s.Run("nil producer returns error", func() {
		_, err := New(s.source, nil, "t")
		s.ErrorContains(err, "producer is required")
	})
	s.Run("empty topic returns error", func() {
		_, err := New(s.source, s.producer, "")
		s.ErrorContains(err, "topic is required")
	})
}

func (s *RelaySuite) TestDrainOnce() {
	ctx := context.Background()

	s.Run("empty outbox produces nothing", func() {
		s.source.EXPECT().Pending(ctx, 10).Return(nil, nil)

		n, err := s.relay.DrainOnce(ctx)
		s.NoError(err)
		s.Zero(n)
	})

	s.Run("produces keyed records then marks them", func() {
		batch := s.pending(2)
		var produced []*kgo.Record
		gomock.InOrder(
			s.source.EXPECT().Pending(ctx, 10).Return(batch, nil),
			s.producer.EXPECT().ProduceSync(ctx, gomock.Any()).DoAndReturn(
				func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
					produced = rs
					return kgo.ProduceResults{}
				}),
			s.source.EXPECT().MarkPublished(ctx, []uuid.UUID{batch[0].ID, batch[1].ID}, gomock.Any()).Return(nil),
		)

		n, err := s.relay.DrainOnce(ctx)
		s.Require().NoError(err)
		s.Equal(2, n)
		s.Require().Len(produced, 2)
		s.Equal("pool-1", string(produced[0].Key))
		s.Equal("arisan.events", produced[0].Topic)
		s.Equal(2.0, testutil.ToFloat64(s.metrics.Relayed))
	})

	s.Run("produce failure leaves events pending", func() {
		batch := s.pending(1)
		s.source.EXPECT().Pending(ctx, 10).Return(batch, nil)
		s.producer.EXPECT().ProduceSync(ctx, gomock.Any()).Return(kgo.ProduceResults{{Err: errors.New("broker down")}})

		_, err := s.relay.DrainOnce(ctx)
		s.ErrorContains(err, "broker down")
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Failures))
	})
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	s.source.EXPECT().Pending(gomock.Any(), 10).DoAndReturn(func(context.Context, int) ([]events.Event, error) {
		cancel()
		return nil, nil
	}).AnyTimes()

	s.NoError(s.relay.Run(ctx))
}
