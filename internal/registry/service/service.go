// Package service is the registry: it validates and creates pools, indexes
// them, and holds the owner-controlled settings.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"arisan/internal/events"
	poolmodels "arisan/internal/pool/models"
	"arisan/internal/registry/metrics"
	"arisan/internal/registry/models"
	"arisan/internal/token"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
	"arisan/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks PoolStore,SettingsStore,Ledger

// PoolStore is the pool index the registry writes to and lists from.
type PoolStore interface {
	Create(ctx context.Context, p *poolmodels.Pool) error
	List(ctx context.Context) ([]poolmodels.Metadata, error)
	ListByCreator(ctx context.Context, creator id.Address) ([]poolmodels.Metadata, error)
	Metadata(ctx context.Context, poolID id.PoolID) (poolmodels.Metadata, error)
	Count(ctx context.Context) (int, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
	SetDeploymentFee(ctx context.Context, fee uint64) error
	SetTreasury(ctx context.Context, treasury id.Address) error
}

// Ledger collects the deployment fee.
type Ledger interface {
	Apply(ctx context.Context, transfers ...token.Transfer) error
}

type Service struct {
	pools     PoolStore
	settings  SettingsStore
	ledger    Ledger
	seq       tx.Sequencer
	address   id.Address
	params    models.Params
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

func WithParams(p models.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

// New builds the registry. address is the spender identity creators approve
// for the deployment fee.
func New(pools PoolStore, settings SettingsStore, ledger Ledger, seq tx.Sequencer, address id.Address, opts ...Option) (*Service, error) {
	if pools == nil {
		return nil, errors.New("pool store is required")
	}
	if settings == nil {
		return nil, errors.New("settings store is required")
	}
	if ledger == nil {
		return nil, errors.New("token ledger is required")
	}
	if seq == nil {
		return nil, errors.New("sequencer is required")
	}
	if address.IsZero() {
		return nil, errors.New("registry address is required")
	}
	svc := &Service{
		pools:     pools,
		settings:  settings,
		ledger:    ledger,
		seq:       seq,
		address:   address,
		params:    models.DefaultParams(),
		publisher: events.Nop{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("arisan/registry"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type poolCreatedPayload struct {
	PoolID        id.PoolID         `json:"pool_id"`
	Creator       id.Address        `json:"creator"`
	Treasury      id.Address        `json:"treasury"`
	DeploymentFee uint64            `json:"deployment_fee"`
	Config        poolmodels.Config `json:"config"`
}

// CreatePool validates cfg, collects the deployment fee from caller and
// registers a recruiting pool.
func (s *Service) CreatePool(ctx context.Context, caller id.Address, cfg poolmodels.Config) (id.PoolID, error) {
	ctx, span := s.tracer.Start(ctx, "registry.CreatePool", trace.WithAttributes(
		attribute.String("registry.caller", caller.String()),
	))
	defer span.End()

	var (
		created *poolmodels.Pool
		fee     uint64
	)
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		if err := models.ValidateConfig(cfg, s.params); err != nil {
			return err
		}
		settings, err := s.loadSettings(txCtx)
		if err != nil {
			return err
		}
		fee = settings.DeploymentFee
		if fee > 0 {
			err := s.ledger.Apply(txCtx, token.Transfer{From: caller, To: settings.Treasury, Amount: fee, Spender: s.address})
			if err != nil {
				var de *dErrors.Error
				if errors.As(err, &de) {
					return err
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to collect deployment fee")
			}
		}

		p := poolmodels.New(id.NewPoolID(), caller, settings.Treasury, cfg, requestcontext.Now(txCtx))
		if err := s.pools.Create(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save pool")
		}
		created = p
		return s.publish(txCtx, events.PoolCreated, p.ID.String(), caller, poolCreatedPayload{
			PoolID:        p.ID,
			Creator:       caller,
			Treasury:      settings.Treasury,
			DeploymentFee: fee,
			Config:        cfg,
		})
	})
	if err != nil {
		return id.PoolID{}, s.fail(ctx, span, "create pool rejected", err, caller)
	}

	span.SetAttributes(attribute.String("pool.id", created.ID.String()))
	if s.metrics != nil {
		s.metrics.RecordPoolCreated(fee)
	}
	s.logger.InfoContext(ctx, "pool_created",
		"request_id", requestcontext.RequestID(ctx),
		"pool_id", created.ID,
		"creator", caller,
		"name", cfg.Name,
		"max_members", cfg.MaxMembers,
		"deployment_fee", fee,
		"log_type", "audit",
	)
	return created.ID, nil
}

type feeUpdatedPayload struct {
	Old uint64 `json:"old"`
	New uint64 `json:"new"`
}

type treasuryUpdatedPayload struct {
	Old id.Address `json:"old"`
	New id.Address `json:"new"`
}

// SetDeploymentFee changes the flat fee charged by CreatePool. Owner only.
func (s *Service) SetDeploymentFee(ctx context.Context, caller id.Address, fee uint64) error {
	return s.admin(ctx, "registry.SetDeploymentFee", "deployment_fee", caller, func(txCtx context.Context, current models.Settings) error {
		if err := s.settings.SetDeploymentFee(txCtx, fee); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save deployment fee")
		}
		return s.publish(txCtx, events.DeploymentFeeUpdated, s.address.String(), caller, feeUpdatedPayload{Old: current.DeploymentFee, New: fee})
	})
}

// SetTreasury changes where fees go for pools created afterwards. Existing
// pools keep the treasury they were created with. Owner only.
func (s *Service) SetTreasury(ctx context.Context, caller, treasury id.Address) error {
	return s.admin(ctx, "registry.SetTreasury", "treasury", caller, func(txCtx context.Context, current models.Settings) error {
		if treasury.IsZero() {
			return dErrors.New(dErrors.CodeBadRequest, "treasury address is required")
		}
		if err := s.settings.SetTreasury(txCtx, treasury); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save treasury")
		}
		return s.publish(txCtx, events.TreasuryUpdated, s.address.String(), caller, treasuryUpdatedPayload{Old: current.Treasury, New: treasury})
	})
}

func (s *Service) admin(ctx context.Context, spanName, setting string, caller id.Address, apply func(context.Context, models.Settings) error) error {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("registry.caller", caller.String()),
	))
	defer span.End()

	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.loadSettings(txCtx)
		if err != nil {
			return err
		}
		if caller != current.Owner {
			return models.ErrUnauthorized
		}
		return apply(txCtx, current)
	})
	if err != nil {
		return s.fail(ctx, span, setting+" change rejected", err, caller)
	}

	if s.metrics != nil {
		s.metrics.IncrementSettingChange(setting)
	}
	s.logger.InfoContext(ctx, setting+"_updated",
		"request_id", requestcontext.RequestID(ctx),
		"caller", caller,
		"log_type", "audit",
	)
	return nil
}

// SettingsView is the public registry configuration.
type SettingsView struct {
	models.Settings
	RegistryAddress id.Address    `json:"registry_address"`
	Params          models.Params `json:"params"`
}

func (s *Service) Settings(ctx context.Context) (*SettingsView, error) {
	current, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsView{Settings: current, RegistryAddress: s.address, Params: s.params}, nil
}

// GetAllPools lists every pool in creation order.
func (s *Service) GetAllPools(ctx context.Context) ([]poolmodels.Metadata, error) {
	out, err := s.pools.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pools")
	}
	return out, nil
}

func (s *Service) GetPoolsByCreator(ctx context.Context, creator id.Address) ([]poolmodels.Metadata, error) {
	out, err := s.pools.ListByCreator(ctx, creator)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pools")
	}
	return out, nil
}

func (s *Service) GetPoolMetadata(ctx context.Context, poolID id.PoolID) (*poolmodels.Metadata, error) {
	m, err := s.pools.Metadata(ctx, poolID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, poolmodels.ErrPoolNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pool")
	}
	return &m, nil
}

func (s *Service) GetTotalPools(ctx context.Context) (int, error) {
	n, err := s.pools.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count pools")
	}
	return n, nil
}

func (s *Service) loadSettings(ctx context.Context) (models.Settings, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return models.Settings{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read registry settings")
	}
	return current, nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, aggregateID string, actor id.Address, payload any) error {
	e, err := events.New(ctx, typ, aggregateID, actor, payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish event")
	}
	return nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, msg string, err error, caller id.Address) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	reason := dErrors.ReasonOf(err)
	if s.metrics != nil {
		s.metrics.IncrementRejection(reason)
	}
	s.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"caller", caller,
		"reason", reason,
		"error", err,
	)
	return err
}
