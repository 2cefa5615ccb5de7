// Package events carries the domain events emitted by pool, trust and
// registry operations, and the publishers that deliver them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "arisan/pkg/domain"
	"arisan/pkg/requestcontext"
)

// Type names an event.
type Type string

const (
	PoolCreated          Type = "pool_created"
	MemberJoined         Type = "member_joined"
	PoolStarted          Type = "pool_started"
	ContributionReceived Type = "contribution_received"
	CycleSettled         Type = "cycle_settled"
	PoolCompleted        Type = "pool_completed"

	VouchGiven         Type = "vouch_given"
	VouchRevoked       Type = "vouch_revoked"
	VouchWeightUpdated Type = "vouch_weight_updated"

	DeploymentFeeUpdated Type = "deployment_fee_updated"
	TreasuryUpdated      Type = "treasury_updated"
)

// Event is an immutable fact about a state change that has been committed
// together with it.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Actor       id.Address      `json:"actor"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// New builds an event stamped with the request time.
func New(ctx context.Context, typ Type, aggregateID string, actor id.Address, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:          uuid.New(),
		Type:        typ,
		AggregateID: aggregateID,
		Actor:       actor,
		OccurredAt:  requestcontext.Now(ctx).UTC(),
		Payload:     raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher delivers events. Services call Publish as the last step of an
// operation, inside its transaction.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }

// Multi publishes to every publisher in order and stops at the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events ...Event) error {
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil {
			return err
		}
	}
	return nil
}
