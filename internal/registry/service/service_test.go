package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"arisan/internal/events"
	poolmodels "arisan/internal/pool/models"
	poolstore "arisan/internal/pool/store"
	"arisan/internal/registry/metrics"
	"arisan/internal/registry/models"
	"arisan/internal/registry/service/mocks"
	"arisan/internal/registry/store/settings"
	"arisan/internal/token"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/tx"
	"arisan/pkg/requestcontext"
)

const (
	owner    id.Address = "0xowner"
	treasury id.Address = "0xtreasury"
	registry id.Address = "0xregistry"
	alice    id.Address = "0xa11ce"
	bob      id.Address = "0xb0b"
)

// Justification for unit tests: fee collection and pool registration must
// commit together, and owner gating is pure service logic.
type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	pools    *poolstore.InMemory
	settings *settings.InMemory
	ledger   *token.InMemory
	recorder *events.Recorder
	metrics  *metrics.Metrics
	service  *Service
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.pools = poolstore.NewInMemory()
	s.settings = settings.NewInMemory(models.Settings{Owner: owner, Treasury: treasury})
	s.ledger = token.NewInMemory()
	s.recorder = events.NewRecorder()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = s.newService(s.ledger)
}

func (s *ServiceSuite) newService(ledger Ledger) *Service {
	svc, err := New(s.pools, s.settings, ledger, tx.NewSerial(), registry,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPublisher(s.recorder),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	return svc
}

func config(name string) poolmodels.Config {
	return poolmodels.Config{
		Name:               name,
		ContributionAmount: 1000,
		MaxMembers:         5,
		CycleDuration:      30 * 24 * time.Hour,
		UjrahRateBps:       50,
	}
}

func (s *ServiceSuite) balance(addr id.Address) uint64 {
	b, err := s.ledger.BalanceOf(s.ctx, addr)
	s.Require().NoError(err)
	return b
}

// =============================================================================
// Construction
// =============================================================================

func (s *ServiceSuite) TestNew() {
	seq := tx.NewSerial()
	_, err := New(nil, s.settings, s.ledger, seq, registry)
	s.ErrorContains(err, "pool store is required")
	_, err = New(s.pools, nil, s.ledger, seq, registry)
	s.ErrorContains(err, "settings store is required")
	_, err = New(s.pools, s.settings, nil, seq, registry)
	s.ErrorContains(err, "token ledger is required")
	_, err = New(s.pools, s.settings, s.ledger, nil, registry)
	s.ErrorContains(err, "sequencer is required")
	_, err = New(s.pools, s.settings, s.ledger, seq, "")
	s.ErrorContains(err, "registry address is required")
}

// =============================================================================
// CreatePool
// =============================================================================

func (s *ServiceSuite) TestCreatePool() {
	s.Run("free deployment", func() {
		poolID, err := s.service.CreatePool(s.ctx, alice, config("RT 05"))
		s.Require().NoError(err)

		meta, err := s.service.GetPoolMetadata(s.ctx, poolID)
		s.Require().NoError(err)
		s.Equal(alice, meta.Creator)
		s.Equal(poolmodels.Recruiting, meta.State)
		s.Equal(0, meta.MemberCount)
		s.Equal(5, meta.MaxMembers)
		s.Equal(s.now, meta.CreatedAt)

		p, err := s.pools.Get(s.ctx, poolID)
		s.Require().NoError(err)
		s.Equal(treasury, p.Treasury)

		evs := s.recorder.OfType(events.PoolCreated)
		s.Require().Len(evs, 1)
		s.Equal(poolID.String(), evs[0].AggregateID)
	})

	s.Run("invalid config creates nothing", func() {
		cfg := config("")
		_, err := s.service.CreatePool(s.ctx, alice, cfg)
		s.ErrorIs(err, models.ErrEmptyName)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		n, err := s.service.GetTotalPools(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("empty_name")))
	})
}

func (s *ServiceSuite) TestCreatePool_DeploymentFee() {
	s.Require().NoError(s.service.SetDeploymentFee(s.ctx, owner, 300))

	s.Run("without allowance nothing is created", func() {
		s.Require().NoError(s.ledger.Mint(s.ctx, bob, 1000))
		_, err := s.service.CreatePool(s.ctx, bob, config("no approval"))
		s.ErrorIs(err, token.ErrInsufficientAllowance)

		n, err := s.service.GetTotalPools(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
		s.Equal(uint64(1000), s.balance(bob))
		s.Empty(s.recorder.OfType(events.PoolCreated))
	})

	s.Run("fee pulled to treasury with registry as spender", func() {
		s.Require().NoError(s.ledger.Approve(s.ctx, bob, registry, 300))
		_, err := s.service.CreatePool(s.ctx, bob, config("paid"))
		s.Require().NoError(err)

		s.Equal(uint64(700), s.balance(bob))
		s.Equal(uint64(300), s.balance(treasury))
		left, err := s.ledger.Allowance(s.ctx, bob, registry)
		s.Require().NoError(err)
		s.Zero(left)
		s.Equal(float64(300), testutil.ToFloat64(s.metrics.DeploymentFees))
	})
}

func (s *ServiceSuite) TestCreatePool_TreasurySnapshot() {
	first, err := s.service.CreatePool(s.ctx, alice, config("before"))
	s.Require().NoError(err)

	s.Require().NoError(s.service.SetTreasury(s.ctx, owner, "0xnewtreasury"))
	second, err := s.service.CreatePool(s.ctx, alice, config("after"))
	s.Require().NoError(err)

	p1, err := s.pools.Get(s.ctx, first)
	s.Require().NoError(err)
	p2, err := s.pools.Get(s.ctx, second)
	s.Require().NoError(err)
	s.Equal(treasury, p1.Treasury)
	s.Equal(id.Address("0xnewtreasury"), p2.Treasury)
}

func (s *ServiceSuite) TestCreatePool_LedgerFailure() {
	ctrl := gomock.NewController(s.T())
	ledger := mocks.NewMockLedger(ctrl)
	svc := s.newService(ledger)
	s.Require().NoError(s.settings.SetDeploymentFee(s.ctx, 5))

	ledger.EXPECT().Apply(gomock.Any(), token.Transfer{From: alice, To: treasury, Amount: 5, Spender: registry}).
		Return(errors.New("timeout"))
	_, err := svc.CreatePool(s.ctx, alice, config("x"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	n, err := svc.GetTotalPools(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, ...events.Event) error {
	return errors.New("publisher down")
}

func (s *ServiceSuite) TestPublishFailureRollsBackEverything() {
	down, err := New(s.pools, s.settings, s.ledger, tx.NewSerial(), registry,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPublisher(failingPublisher{}),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.service.SetDeploymentFee(s.ctx, owner, 300))
	s.Require().NoError(s.ledger.Mint(s.ctx, bob, 1000))
	s.Require().NoError(s.ledger.Approve(s.ctx, bob, registry, 300))

	s.Run("create pool", func() {
		_, err := down.CreatePool(s.ctx, bob, config("unpublished"))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))

		n, err := s.service.GetTotalPools(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
		s.Equal(uint64(1000), s.balance(bob))
		s.Zero(s.balance(treasury))
		left, err := s.ledger.Allowance(s.ctx, bob, registry)
		s.Require().NoError(err)
		s.Equal(uint64(300), left)
	})

	s.Run("settings", func() {
		s.Require().Error(down.SetDeploymentFee(s.ctx, owner, 1))
		s.Require().Error(down.SetTreasury(s.ctx, owner, "0xt9"))

		view, err := s.service.Settings(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(300), view.DeploymentFee)
		s.Equal(treasury, view.Treasury)
	})
}

// =============================================================================
// Admin
// =============================================================================

func (s *ServiceSuite) TestAdmin() {
	s.Run("non owner cannot change fee", func() {
		err := s.service.SetDeploymentFee(s.ctx, alice, 10)
		s.ErrorIs(err, models.ErrUnauthorized)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("non owner cannot change treasury", func() {
		err := s.service.SetTreasury(s.ctx, alice, alice)
		s.ErrorIs(err, models.ErrUnauthorized)
	})

	s.Run("owner gate runs before treasury validation", func() {
		err := s.service.SetTreasury(s.ctx, alice, "")
		s.ErrorIs(err, models.ErrUnauthorized)
	})

	s.Run("owner changes both", func() {
		s.Require().NoError(s.service.SetDeploymentFee(s.ctx, owner, 42))
		s.Require().NoError(s.service.SetTreasury(s.ctx, owner, "0xt2"))

		view, err := s.service.Settings(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(42), view.DeploymentFee)
		s.Equal(id.Address("0xt2"), view.Treasury)
		s.Equal(owner, view.Owner)
		s.Equal(registry, view.RegistryAddress)
		s.Equal(models.DefaultParams(), view.Params)

		s.Equal([]events.Type{events.DeploymentFeeUpdated, events.TreasuryUpdated}, s.recorder.Types())
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.SettingChanges.WithLabelValues("treasury")))
	})

	s.Run("empty treasury is rejected", func() {
		err := s.service.SetTreasury(s.ctx, owner, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

// =============================================================================
// Queries
// =============================================================================

func (s *ServiceSuite) TestQueries() {
	a1, err := s.service.CreatePool(s.ctx, alice, config("a1"))
	s.Require().NoError(err)
	_, err = s.service.CreatePool(s.ctx, bob, config("b1"))
	s.Require().NoError(err)
	a2, err := s.service.CreatePool(s.ctx, alice, config("a2"))
	s.Require().NoError(err)

	s.Run("all pools in creation order", func() {
		all, err := s.service.GetAllPools(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 3)
		s.Equal("a1", all[0].Name)
		s.Equal("a2", all[2].Name)
	})

	s.Run("by creator", func() {
		mine, err := s.service.GetPoolsByCreator(s.ctx, alice)
		s.Require().NoError(err)
		s.Require().Len(mine, 2)
		s.Equal(a1, mine[0].ID)
		s.Equal(a2, mine[1].ID)
	})

	s.Run("total", func() {
		n, err := s.service.GetTotalPools(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, n)
	})

	s.Run("unknown pool", func() {
		_, err := s.service.GetPoolMetadata(s.ctx, id.NewPoolID())
		s.ErrorIs(err, poolmodels.ErrPoolNotFound)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
