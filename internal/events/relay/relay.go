// Package relay drains the event outbox to Kafka.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"

	"arisan/internal/events"
)

//go:generate mockgen -source=relay.go -destination=mocks/mocks.go -package=mocks Source,Producer

// Source yields unpublished events and records their delivery.
type Source interface {
	Pending(ctx context.Context, limit int) ([]events.Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer is the subset of *kgo.Client the relay uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Metrics struct {
	Relayed  prometheus.Counter
	Failures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Relayed: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_outbox_events_relayed_total",
			Help: "Total number of outbox events delivered to Kafka",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_outbox_relay_failures_total",
			Help: "Total number of failed outbox relay batches",
		}),
	}
}

// Relay polls the outbox and produces each event to a topic, keyed by
// aggregate so one pool's events stay ordered within a partition.
type Relay struct {
	source   Source
	producer Producer
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func New(source Source, producer Producer, topic string, opts ...Option) (*Relay, error) {
	if source == nil {
		return nil, errors.New("outbox source is required")
	}
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	r := &Relay{
		source:   source,
		producer: producer,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drains the outbox every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.DrainOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
				break
			}
			if n < r.batch {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DrainOnce relays one batch and returns how many events were delivered.
// Delivery is at least once: a crash between produce and mark re-sends.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	pending, err := r.source.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(pending))
	ids := make([]uuid.UUID, 0, len(pending))
	for _, e := range pending {
		value, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(e.AggregateID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.Type)},
				{Key: "event_id", Value: []byte(e.ID.String())},
			},
		})
		ids = append(ids, e.ID)
	}

	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		r.incFailures()
		return 0, fmt.Errorf("produce outbox batch: %w", err)
	}
	if err := r.source.MarkPublished(ctx, ids, r.now().UTC()); err != nil {
		r.incFailures()
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.Relayed.Add(float64(len(ids)))
	}
	return len(ids), nil
}

func (r *Relay) incFailures() {
	if r.metrics != nil {
		r.metrics.Failures.Inc()
	}
}

// NewKafkaClient builds the franz-go client the relay produces with.
func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}
