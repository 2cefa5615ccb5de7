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
	"arisan/internal/trust/metrics"
	"arisan/internal/trust/models"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
	"arisan/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store persists vouch edges. Implementations return sentinel errors:
// ErrAlreadyUsed on a duplicate pair, ErrNotFound on a missing one.
type Store interface {
	Create(ctx context.Context, v *models.Vouch) error
	Find(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error)
	Update(ctx context.Context, voucher, vouchee id.Address, fn func(*models.Vouch) error) (*models.Vouch, error)
	Delete(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error)
	ListIncoming(ctx context.Context, vouchee id.Address) ([]*models.Vouch, error)
	ListOutgoing(ctx context.Context, voucher id.Address) ([]*models.Vouch, error)
}

// Service is the trust graph: it records vouches and derives scores from the
// live edge set on every read.
type Service struct {
	store     Store
	seq       tx.Sequencer
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	params    models.Params
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

func WithParams(p models.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

func New(store Store, seq tx.Sequencer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("vouch store is required")
	}
	if seq == nil {
		return nil, errors.New("sequencer is required")
	}
	svc := &Service{
		store:     store,
		seq:       seq,
		publisher: events.Nop{},
		logger:    slog.Default(),
		params:    models.DefaultParams(),
		tracer:    otel.Tracer("arisan/trust"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Params returns the bounds the graph enforces.
func (s *Service) Params() models.Params {
	return s.params
}

type vouchPayload struct {
	Voucher   id.Address `json:"voucher"`
	Vouchee   id.Address `json:"vouchee"`
	Weight    uint32     `json:"weight"`
	OldWeight uint32     `json:"old_weight,omitempty"`
}

// VouchFor records a vouch from voucher to vouchee.
func (s *Service) VouchFor(ctx context.Context, voucher, vouchee id.Address, weight uint32, note string) (*models.Vouch, error) {
	ctx, span := s.startSpan(ctx, "trust.VouchFor", voucher, vouchee)
	defer span.End()

	var created *models.Vouch
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := models.NewVouch(voucher, vouchee, weight, note, requestcontext.Now(txCtx), s.params)
		if err != nil {
			return err
		}
		if err := s.store.Create(txCtx, v); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return models.ErrAlreadyVouched
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save vouch")
		}
		if err := s.publish(txCtx, events.VouchGiven, voucher, vouchPayload{Voucher: voucher, Vouchee: vouchee, Weight: weight}); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "vouch rejected", err, voucher, vouchee)
	}

	if s.metrics != nil {
		s.metrics.IncrementVouchesGiven()
	}
	s.logger.InfoContext(ctx, "vouch_given",
		"request_id", requestcontext.RequestID(ctx),
		"voucher", voucher,
		"vouchee", vouchee,
		"weight", weight,
		"log_type", "audit",
	)
	return created, nil
}

// RevokeVouch removes the vouch from voucher to vouchee.
func (s *Service) RevokeVouch(ctx context.Context, voucher, vouchee id.Address) error {
	ctx, span := s.startSpan(ctx, "trust.RevokeVouch", voucher, vouchee)
	defer span.End()

	var removed *models.Vouch
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := s.store.Delete(txCtx, voucher, vouchee)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrVouchNotFound
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete vouch")
		}
		removed = v
		return s.publish(txCtx, events.VouchRevoked, voucher, vouchPayload{Voucher: voucher, Vouchee: vouchee, Weight: v.Weight})
	})
	if err != nil {
		return s.fail(ctx, span, "revoke rejected", err, voucher, vouchee)
	}

	if s.metrics != nil {
		s.metrics.IncrementVouchesRevoked()
	}
	s.logger.InfoContext(ctx, "vouch_revoked",
		"request_id", requestcontext.RequestID(ctx),
		"voucher", voucher,
		"vouchee", vouchee,
		"weight", removed.Weight,
		"log_type", "audit",
	)
	return nil
}

// UpdateVouchWeight replaces the weight of an existing vouch.
func (s *Service) UpdateVouchWeight(ctx context.Context, voucher, vouchee id.Address, weight uint32) (*models.Vouch, error) {
	ctx, span := s.startSpan(ctx, "trust.UpdateVouchWeight", voucher, vouchee)
	defer span.End()

	var updated *models.Vouch
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		var old uint32
		v, err := s.store.Update(txCtx, voucher, vouchee, func(v *models.Vouch) error {
			old = v.Weight
			return v.SetWeight(weight, requestcontext.Now(txCtx), s.params)
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrVouchNotFound
			}
			var de *dErrors.Error
			if errors.As(err, &de) {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update vouch")
		}
		updated = v
		return s.publish(txCtx, events.VouchWeightUpdated, voucher, vouchPayload{Voucher: voucher, Vouchee: vouchee, Weight: weight, OldWeight: old})
	})
	if err != nil {
		return nil, s.fail(ctx, span, "weight update rejected", err, voucher, vouchee)
	}

	if s.metrics != nil {
		s.metrics.IncrementWeightUpdates()
	}
	s.logger.InfoContext(ctx, "vouch_weight_updated",
		"request_id", requestcontext.RequestID(ctx),
		"voucher", voucher,
		"vouchee", vouchee,
		"weight", weight,
		"log_type", "audit",
	)
	return updated, nil
}

// TrustScore is the live sum of incoming vouch weights.
func (s *Service) TrustScore(ctx context.Context, addr id.Address) (uint64, error) {
	start := time.Now()
	incoming, err := s.store.ListIncoming(ctx, addr)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vouches")
	}
	if s.metrics != nil {
		s.metrics.ObserveScoreCompute(time.Since(start).Seconds())
	}
	return models.Score(incoming), nil
}

// IsVerified reports whether the score has reached the verification threshold.
func (s *Service) IsVerified(ctx context.Context, addr id.Address) (bool, error) {
	score, err := s.TrustScore(ctx, addr)
	if err != nil {
		return false, err
	}
	return score >= s.params.VerificationThreshold, nil
}

func (s *Service) GetVouch(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	v, err := s.store.Find(ctx, voucher, vouchee)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(models.ErrVouchNotFound, dErrors.CodeNotFound, "vouch not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vouch")
	}
	return v, nil
}

// VouchersOf lists who vouched for addr, oldest first.
func (s *Service) VouchersOf(ctx context.Context, addr id.Address) ([]id.Address, error) {
	incoming, err := s.store.ListIncoming(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vouches")
	}
	out := make([]id.Address, len(incoming))
	for i, v := range incoming {
		out[i] = v.Voucher
	}
	return out, nil
}

// VoucheesOf lists whom addr vouched for, oldest first.
func (s *Service) VoucheesOf(ctx context.Context, addr id.Address) ([]id.Address, error) {
	outgoing, err := s.store.ListOutgoing(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vouches")
	}
	out := make([]id.Address, len(outgoing))
	for i, v := range outgoing {
		out[i] = v.Vouchee
	}
	return out, nil
}

// Profile gathers the derived trust view of addr.
func (s *Service) Profile(ctx context.Context, addr id.Address) (*models.Profile, error) {
	incoming, err := s.store.ListIncoming(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vouches")
	}
	outgoing, err := s.store.ListOutgoing(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vouches")
	}
	score := models.Score(incoming)
	return &models.Profile{
		Address:      addr,
		Score:        score,
		Verified:     score >= s.params.VerificationThreshold,
		VoucherCount: len(incoming),
		VoucheeCount: len(outgoing),
	}, nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, actor id.Address, payload vouchPayload) error {
	e, err := events.New(ctx, typ, payload.Vouchee.String(), actor, payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish event")
	}
	return nil
}

func (s *Service) startSpan(ctx context.Context, name string, voucher, vouchee id.Address) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("trust.voucher", voucher.String()),
		attribute.String("trust.vouchee", vouchee.String()),
	))
}

func (s *Service) fail(ctx context.Context, span trace.Span, msg string, err error, voucher, vouchee id.Address) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	reason := dErrors.ReasonOf(err)
	if s.metrics != nil {
		s.metrics.IncrementRejection(reason)
	}
	s.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"voucher", voucher,
		"vouchee", vouchee,
		"reason", reason,
		"error", err,
	)
	return err
}
