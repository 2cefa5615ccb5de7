package service

import (
	"context"
	"time"

	"arisan/internal/events"
	"arisan/internal/pool/models"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
)

type pendingEvent struct {
	typ     events.Type
	payload any
}

type memberJoinedPayload struct {
	PoolID      id.PoolID  `json:"pool_id"`
	Member      id.Address `json:"member"`
	MemberCount int        `json:"member_count"`
}

type poolStartedPayload struct {
	PoolID         id.PoolID    `json:"pool_id"`
	Members        []id.Address `json:"members"`
	CycleStartedAt time.Time    `json:"cycle_started_at"`
}

type contributionPayload struct {
	PoolID id.PoolID  `json:"pool_id"`
	Member id.Address `json:"member"`
	Cycle  int        `json:"cycle"`
	Amount uint64     `json:"amount"`
}

type cycleSettledPayload struct {
	PoolID id.PoolID `json:"pool_id"`
	models.Settlement
}

type poolCompletedPayload struct {
	PoolID    id.PoolID `json:"pool_id"`
	Cycles    int       `json:"cycles"`
	TotalFees uint64    `json:"total_fees"`
}

// publish emits the operation's events in order as one batch.
func (s *Service) publish(ctx context.Context, poolID id.PoolID, actor id.Address, pending ...pendingEvent) error {
	batch := make([]events.Event, 0, len(pending))
	for _, p := range pending {
		e, err := events.New(ctx, p.typ, poolID.String(), actor, p.payload)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
		}
		batch = append(batch, e)
	}
	if err := s.publisher.Publish(ctx, batch...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish events")
	}
	return nil
}
