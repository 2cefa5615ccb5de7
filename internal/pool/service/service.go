package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"arisan/internal/events"
	"arisan/internal/pool/metrics"
	"arisan/internal/pool/models"
	"arisan/internal/token"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
	"arisan/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,TrustScorer,Ledger

// Store loads and saves pool snapshots. GetForUpdate must hold the pool
// against other writers until the ambient transaction ends.
type Store interface {
	Get(ctx context.Context, poolID id.PoolID) (*models.Pool, error)
	GetForUpdate(ctx context.Context, poolID id.PoolID) (*models.Pool, error)
	Update(ctx context.Context, p *models.Pool) error
}

// TrustScorer is the part of the trust graph a join consults.
type TrustScorer interface {
	TrustScore(ctx context.Context, addr id.Address) (uint64, error)
}

// Ledger moves funding tokens.
type Ledger interface {
	Apply(ctx context.Context, transfers ...token.Transfer) error
	BalanceOf(ctx context.Context, addr id.Address) (uint64, error)
}

// Service runs the rotation engine for every pool.
type Service struct {
	store     Store
	trust     TrustScorer
	ledger    Ledger
	seq       tx.Sequencer
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, trust TrustScorer, ledger Ledger, seq tx.Sequencer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("pool store is required")
	}
	if trust == nil {
		return nil, errors.New("trust scorer is required")
	}
	if ledger == nil {
		return nil, errors.New("token ledger is required")
	}
	if seq == nil {
		return nil, errors.New("sequencer is required")
	}
	svc := &Service{
		store:     store,
		trust:     trust,
		ledger:    ledger,
		seq:       seq,
		publisher: events.Nop{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("arisan/pool"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// JoinPool appends caller to the payout order. The join that fills the pool
// also starts its first cycle.
func (s *Service) JoinPool(ctx context.Context, poolID id.PoolID, caller id.Address) (*models.Member, error) {
	ctx, span := s.startSpan(ctx, "pool.JoinPool", poolID, caller)
	defer span.End()

	var (
		joined  models.Member
		started bool
	)
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.load(txCtx, poolID)
		if err != nil {
			return err
		}
		if err := current.CheckJoin(caller); err != nil {
			return err
		}
		if current.Config.RequiresVouching {
			score, err := s.trust.TrustScore(txCtx, caller)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read trust score")
			}
			if score < current.Config.MinVouchScore {
				return models.ErrInsufficientTrust
			}
		}

		next := current.Clone()
		now := requestcontext.Now(txCtx)
		started, err = next.Join(caller, now)
		if err != nil {
			return err
		}
		if err := s.save(txCtx, next); err != nil {
			return err
		}

		evs := []pendingEvent{{events.MemberJoined, memberJoinedPayload{PoolID: poolID, Member: caller, MemberCount: len(next.Members)}}}
		if started {
			evs = append(evs, pendingEvent{events.PoolStarted, poolStartedPayload{PoolID: poolID, Members: next.MemberAddresses(), CycleStartedAt: now}})
		}
		joined = *next.Member(caller)
		return s.publish(txCtx, poolID, caller, evs...)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "join", err, poolID, caller)
	}

	if s.metrics != nil {
		s.metrics.IncrementJoins(started)
	}
	s.logger.InfoContext(ctx, "member_joined",
		"request_id", requestcontext.RequestID(ctx),
		"pool_id", poolID,
		"member", caller,
		"pool_started", started,
		"log_type", "audit",
	)
	return &joined, nil
}

// ContributionResult reports a contribution and the settlement it triggered, if any.
type ContributionResult struct {
	Member     models.Member      `json:"member"`
	Cycle      int                `json:"cycle"`
	Settlement *models.Settlement `json:"settlement,omitempty"`
	State      models.State       `json:"state"`
}

// Contribute pulls the contribution from caller into pool custody. The last
// contribution of a cycle settles it in the same operation.
func (s *Service) Contribute(ctx context.Context, poolID id.PoolID, caller id.Address) (*ContributionResult, error) {
	ctx, span := s.startSpan(ctx, "pool.Contribute", poolID, caller)
	defer span.End()

	var result ContributionResult
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.load(txCtx, poolID)
		if err != nil {
			return err
		}
		next := current.Clone()
		now := requestcontext.Now(txCtx)
		settlement, err := next.Contribute(caller, now)
		if err != nil {
			return err
		}

		if err := s.ledger.Apply(txCtx, next.ContributionPlan(caller, settlement)...); err != nil {
			var de *dErrors.Error
			if errors.As(err, &de) {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to move tokens")
		}
		if err := s.save(txCtx, next); err != nil {
			return err
		}

		evs := []pendingEvent{{events.ContributionReceived, contributionPayload{
			PoolID: poolID, Member: caller, Cycle: current.CurrentCycle, Amount: next.Config.ContributionAmount,
		}}}
		if settlement != nil {
			evs = append(evs, pendingEvent{events.CycleSettled, cycleSettledPayload{PoolID: poolID, Settlement: *settlement}})
		}
		if next.State == models.Completed {
			evs = append(evs, pendingEvent{events.PoolCompleted, poolCompletedPayload{PoolID: poolID, Cycles: next.CurrentCycle, TotalFees: next.TotalFees}})
		}

		result = ContributionResult{Member: *next.Member(caller), Cycle: current.CurrentCycle, Settlement: settlement, State: next.State}
		return s.publish(txCtx, poolID, caller, evs...)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "contribute", err, poolID, caller)
	}

	if s.metrics != nil {
		s.metrics.IncrementContributions()
		if result.Settlement != nil {
			s.metrics.RecordSettlement(result.Settlement.Fee, result.State == models.Completed)
		}
	}
	s.logger.InfoContext(ctx, "contribution_received",
		"request_id", requestcontext.RequestID(ctx),
		"pool_id", poolID,
		"member", caller,
		"cycle", result.Cycle,
		"log_type", "audit",
	)
	if st := result.Settlement; st != nil {
		s.logger.InfoContext(ctx, "cycle_settled",
			"request_id", requestcontext.RequestID(ctx),
			"pool_id", poolID,
			"cycle", st.Cycle,
			"recipient", st.Recipient,
			"payout", st.Payout,
			"fee", st.Fee,
			"pool_state", result.State,
			"log_type", "audit",
		)
	}
	return &result, nil
}

// Info is the read view of one pool.
type Info struct {
	ID                 id.PoolID    `json:"id"`
	Name               string       `json:"name"`
	Creator            id.Address   `json:"creator"`
	Treasury           id.Address   `json:"treasury"`
	CustodyAddress     id.Address   `json:"custody_address"`
	ContributionAmount uint64       `json:"contribution_amount"`
	MaxMembers         int          `json:"max_members"`
	CycleDurationSec   int64        `json:"cycle_duration_seconds"`
	UjrahRateBps       uint32       `json:"ujrah_rate_bps"`
	RequiresVouching   bool         `json:"requires_vouching"`
	MinVouchScore      uint64       `json:"min_vouch_score"`
	State              models.State `json:"state"`
	CurrentCycle       int          `json:"current_cycle"`
	MemberCount        int          `json:"member_count"`
	ContributedCount   int          `json:"contributed_this_cycle"`
	TotalFees          uint64       `json:"total_fees"`
	CustodyBalance     uint64       `json:"custody_balance"`
	CreatedAt          time.Time    `json:"created_at"`
	CycleDeadline      *time.Time   `json:"cycle_deadline,omitempty"`
}

func (s *Service) GetPoolInfo(ctx context.Context, poolID id.PoolID) (*Info, error) {
	p, err := s.get(ctx, poolID)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.BalanceOf(ctx, p.Address())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read custody balance")
	}
	info := &Info{
		ID:                 p.ID,
		Name:               p.Config.Name,
		Creator:            p.Creator,
		Treasury:           p.Treasury,
		CustodyAddress:     p.Address(),
		ContributionAmount: p.Config.ContributionAmount,
		MaxMembers:         p.Config.MaxMembers,
		CycleDurationSec:   int64(p.Config.CycleDuration / time.Second),
		UjrahRateBps:       p.Config.UjrahRateBps,
		RequiresVouching:   p.Config.RequiresVouching,
		MinVouchScore:      p.Config.MinVouchScore,
		State:              p.State,
		CurrentCycle:       p.CurrentCycle,
		MemberCount:        len(p.Members),
		ContributedCount:   len(p.Contributed),
		TotalFees:          p.TotalFees,
		CustodyBalance:     balance,
		CreatedAt:          p.CreatedAt,
	}
	if deadline, ok := p.CycleDeadline(); ok {
		info.CycleDeadline = &deadline
	}
	return info, nil
}

// GetAllMembers lists member addresses in payout order.
func (s *Service) GetAllMembers(ctx context.Context, poolID id.PoolID) ([]id.Address, error) {
	p, err := s.get(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return p.MemberAddresses(), nil
}

func (s *Service) GetMemberInfo(ctx context.Context, poolID id.PoolID, addr id.Address) (*models.Member, error) {
	p, err := s.get(ctx, poolID)
	if err != nil {
		return nil, err
	}
	m := p.Member(addr)
	if m == nil {
		return nil, dErrors.Wrap(models.ErrNotAMember, dErrors.CodeNotFound, "member not found")
	}
	out := *m
	return &out, nil
}

func (s *Service) GetMemberCount(ctx context.Context, poolID id.PoolID) (int, error) {
	p, err := s.get(ctx, poolID)
	if err != nil {
		return 0, err
	}
	return len(p.Members), nil
}

// GetSettlements returns the settled cycles, oldest first.
func (s *Service) GetSettlements(ctx context.Context, poolID id.PoolID) ([]models.Settlement, error) {
	p, err := s.get(ctx, poolID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Settlement, len(p.Settlements))
	copy(out, p.Settlements)
	return out, nil
}

func (s *Service) load(ctx context.Context, poolID id.PoolID) (*models.Pool, error) {
	p, err := s.store.GetForUpdate(ctx, poolID)
	return p, mapStoreError(err)
}

func (s *Service) get(ctx context.Context, poolID id.PoolID) (*models.Pool, error) {
	p, err := s.store.Get(ctx, poolID)
	return p, mapStoreError(err)
}

func (s *Service) save(ctx context.Context, p *models.Pool) error {
	if err := s.store.Update(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save pool")
	}
	return nil
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return models.ErrPoolNotFound
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pool")
	}
}

func (s *Service) startSpan(ctx context.Context, name string, poolID id.PoolID, caller id.Address) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("pool.id", poolID.String()),
		attribute.String("pool.caller", caller.String()),
	))
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error, poolID id.PoolID, caller id.Address) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, operation+" rejected")
	reason := dErrors.ReasonOf(err)
	if s.metrics != nil {
		s.metrics.IncrementRejection(operation, reason)
	}
	s.logger.WarnContext(ctx, operation+" rejected",
		"request_id", requestcontext.RequestID(ctx),
		"pool_id", poolID,
		"caller", caller,
		"reason", reason,
		"error", err,
	)
	return err
}
