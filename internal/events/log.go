package events

import (
	"context"
	"log/slog"

	"arisan/pkg/requestcontext"
)

// LogPublisher writes each event as an audit log line.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, string(e.Type),
			"request_id", requestcontext.RequestID(ctx),
			"event_id", e.ID,
			"aggregate_id", e.AggregateID,
			"actor", e.Actor,
			"payload", string(e.Payload),
			"log_type", "audit",
		)
	}
	return nil
}
