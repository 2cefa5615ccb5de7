package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"arisan/internal/pool/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
)

type store interface {
	Create(ctx context.Context, p *models.Pool) error
	Get(ctx context.Context, poolID id.PoolID) (*models.Pool, error)
	GetForUpdate(ctx context.Context, poolID id.PoolID) (*models.Pool, error)
	Update(ctx context.Context, p *models.Pool) error
	List(ctx context.Context) ([]models.Metadata, error)
	ListByCreator(ctx context.Context, creator id.Address) ([]models.Metadata, error)
	Metadata(ctx context.Context, poolID id.PoolID) (models.Metadata, error)
	Count(ctx context.Context) (int, error)
}

// StoreContractSuite runs against any backend; concrete suites set newStore.
type StoreContractSuite struct {
	suite.Suite
	newStore func() store
	store    store
	ctx      context.Context
	now      time.Time
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s.store = s.newStore()
}

func (s *StoreContractSuite) pool(creator id.Address, name string) *models.Pool {
	return models.New(id.NewPoolID(), creator, "0xtreasury", models.Config{
		Name:               name,
		ContributionAmount: 100,
		MaxMembers:         4,
		CycleDuration:      time.Hour,
		UjrahRateBps:       100,
	}, s.now)
}

func (s *StoreContractSuite) TestCreateAndGet() {
	p := s.pool("0xalice", "kampung")
	s.Require().NoError(s.store.Create(s.ctx, p))

	got, err := s.store.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal("kampung", got.Config.Name)
	s.Equal(models.Recruiting, got.State)

	s.ErrorIs(s.store.Create(s.ctx, p), sentinel.ErrAlreadyUsed)

	_, err = s.store.Get(s.ctx, id.NewPoolID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestUpdateRefreshesProjection() {
	p := s.pool("0xalice", "kampung")
	s.Require().NoError(s.store.Create(s.ctx, p))

	for _, m := range []id.Address{"0xm1", "0xm2", "0xm3", "0xm4"} {
		_, err := p.Join(m, s.now)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Update(s.ctx, p))

	meta, err := s.store.Metadata(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(4, meta.MemberCount)
	s.Equal(models.Active, meta.State)
	s.Equal(id.Address("0xalice"), meta.Creator)

	got, err := s.store.GetForUpdate(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.MemberAddresses(), got.MemberAddresses())

	s.ErrorIs(s.store.Update(s.ctx, s.pool("0xbob", "ghost")), sentinel.ErrNotFound)
	_, err = s.store.Metadata(s.ctx, id.NewPoolID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestListings() {
	a1 := s.pool("0xalice", "a1")
	b1 := s.pool("0xbob", "b1")
	a2 := s.pool("0xalice", "a2")
	for _, p := range []*models.Pool{a1, b1, a2} {
		s.Require().NoError(s.store.Create(s.ctx, p))
	}

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"a1", "b1", "a2"}, names(all))

	mine, err := s.store.ListByCreator(s.ctx, "0xalice")
	s.Require().NoError(err)
	s.Equal([]string{"a1", "a2"}, names(mine))

	none, err := s.store.ListByCreator(s.ctx, "0xnobody")
	s.Require().NoError(err)
	s.Empty(none)

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}

func names(ms []models.Metadata) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
