package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "arisan/pkg/domain"
	"arisan/pkg/platform/tx"
)

// Outbox is the transactional outbox in PostgreSQL. Publish writes through the
// ambient transaction, so events commit or roll back with the state change
// that produced them.
type Outbox struct {
	db *sql.DB
}

func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Publish(ctx context.Context, events ...Event) error {
	exec := tx.ExecutorFrom(ctx, o.db)
	for _, e := range events {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO event_outbox (id, event_type, aggregate_id, actor, occurred_at, payload)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.ID, string(e.Type), e.AggregateID, e.Actor.String(), e.OccurredAt, []byte(e.Payload))
		if err != nil {
			return fmt.Errorf("insert outbox event %s: %w", e.Type, err)
		}
	}
	return nil
}

// Pending returns up to limit unpublished events in commit order.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, event_type, aggregate_id, actor, occurred_at, payload
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			typ     string
			actor   string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &typ, &e.AggregateID, &actor, &e.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.Type = Type(typ)
		e.Actor = id.Address(actor)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkPublished stamps the events as delivered.
func (o *Outbox) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, v := range ids {
		strs[i] = v.String()
	}
	_, err := o.db.ExecContext(ctx,
		`UPDATE event_outbox SET published_at = $2 WHERE id = ANY($1::uuid[])`,
		pq.Array(strs), at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
