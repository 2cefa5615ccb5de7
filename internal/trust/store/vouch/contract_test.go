package vouch

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"arisan/internal/trust/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

// store is the behaviour every backend must share.
type store interface {
	Create(ctx context.Context, v *models.Vouch) error
	Find(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error)
	Update(ctx context.Context, voucher, vouchee id.Address, fn func(*models.Vouch) error) (*models.Vouch, error)
	Delete(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error)
	ListIncoming(ctx context.Context, vouchee id.Address) ([]*models.Vouch, error)
	ListOutgoing(ctx context.Context, voucher id.Address) ([]*models.Vouch, error)
}

// StoreContractSuite runs against any backend; concrete suites set newStore
// and, for SQL backends, the sequencer that owns their transactions.
type StoreContractSuite struct {
	suite.Suite
	newStore func() store
	seq      tx.Sequencer
	store    store
	ctx      context.Context
	now      time.Time
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s.store = s.newStore()
	if s.seq == nil {
		s.seq = tx.NewSerial()
	}
}

func (s *StoreContractSuite) vouch(voucher, vouchee string, weight uint32) *models.Vouch {
	s.now = s.now.Add(time.Second)
	v, err := models.NewVouch(id.Address(voucher), id.Address(vouchee), weight, "note from "+voucher, s.now, models.DefaultParams())
	s.Require().NoError(err)
	return v
}

func (s *StoreContractSuite) TestCreateAndFind() {
	v := s.vouch("alice", "bob", 7)
	s.Require().NoError(s.store.Create(s.ctx, v))

	got, err := s.store.Find(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(uint32(7), got.Weight)
	s.Equal("note from alice", got.Note)
	s.True(v.CreatedAt.Equal(got.CreatedAt))

	_, err = s.store.Find(s.ctx, "bob", "alice")
	s.ErrorIs(err, sentinel.ErrNotFound, "edges are directed")
}

func (s *StoreContractSuite) TestCreateDuplicate() {
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "bob", 1)))
	s.ErrorIs(s.store.Create(s.ctx, s.vouch("alice", "bob", 2)), sentinel.ErrAlreadyUsed)

	got, err := s.store.Find(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(uint32(1), got.Weight, "duplicate must not overwrite")
}

func (s *StoreContractSuite) TestUpdate() {
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "bob", 3)))

	s.Run("applies mutation", func() {
		got, err := s.store.Update(s.ctx, "alice", "bob", func(v *models.Vouch) error {
			v.Weight = 9
			return nil
		})
		s.Require().NoError(err)
		s.Equal(uint32(9), got.Weight)

		stored, err := s.store.Find(s.ctx, "alice", "bob")
		s.Require().NoError(err)
		s.Equal(uint32(9), stored.Weight)
		s.Equal("note from alice", stored.Note)
	})

	s.Run("failed mutation is discarded", func() {
		boom := errors.New("boom")
		_, err := s.store.Update(s.ctx, "alice", "bob", func(v *models.Vouch) error {
			v.Weight = 1
			return boom
		})
		s.ErrorIs(err, boom)

		stored, err := s.store.Find(s.ctx, "alice", "bob")
		s.Require().NoError(err)
		s.Equal(uint32(9), stored.Weight)
	})

	s.Run("missing edge", func() {
		_, err := s.store.Update(s.ctx, "carol", "bob", func(*models.Vouch) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreContractSuite) TestDeleteAndRecreate() {
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "bob", 4)))

	removed, err := s.store.Delete(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(uint32(4), removed.Weight)

	_, err = s.store.Delete(s.ctx, "alice", "bob")
	s.ErrorIs(err, sentinel.ErrNotFound)

	incoming, err := s.store.ListIncoming(s.ctx, "bob")
	s.Require().NoError(err)
	s.Empty(incoming)

	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "bob", 2)))
	incoming, err = s.store.ListIncoming(s.ctx, "bob")
	s.Require().NoError(err)
	s.Require().Len(incoming, 1)
	s.Equal(uint32(2), incoming[0].Weight)
}

func (s *StoreContractSuite) TestListsKeepCreationOrder() {
	for _, voucher := range []string{"carol", "alice", "dave"} {
		s.Require().NoError(s.store.Create(s.ctx, s.vouch(voucher, "bob", 5)))
	}
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "zed", 5)))
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "eve", 5)))
	_, err := s.store.Delete(s.ctx, "alice", "bob")
	s.Require().NoError(err)

	incoming, err := s.store.ListIncoming(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal([]id.Address{"carol", "dave"}, vouchers(incoming))

	outgoing, err := s.store.ListOutgoing(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(outgoing, 2)
	s.Equal(id.Address("zed"), outgoing[0].Vouchee)
	s.Equal(id.Address("eve"), outgoing[1].Vouchee)
}

func (s *StoreContractSuite) TestFailedOperationLeavesNoTrace() {
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("carol", "bob", 3)))
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "bob", 4)))
	boom := errors.New("boom")

	err := s.seq.RunInTx(s.ctx, func(txCtx context.Context) error {
		s.Require().NoError(s.store.Create(txCtx, s.vouch("dave", "bob", 5)))
		_, err := s.store.Update(txCtx, "carol", "bob", func(v *models.Vouch) error {
			v.Weight = 10
			return nil
		})
		s.Require().NoError(err)
		_, err = s.store.Delete(txCtx, "alice", "bob")
		s.Require().NoError(err)
		return boom
	})
	s.Require().ErrorIs(err, boom)

	incoming, err := s.store.ListIncoming(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal([]id.Address{"carol", "alice"}, vouchers(incoming))
	s.Equal(uint32(3), incoming[0].Weight)
	s.Equal(uint32(4), incoming[1].Weight)

	_, err = s.store.Find(s.ctx, "dave", "bob")
	s.ErrorIs(err, sentinel.ErrNotFound)
	outgoing, err := s.store.ListOutgoing(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(outgoing, 1)
}

func (s *StoreContractSuite) TestSeparatorsDoNotCollide() {
	s.Require().NoError(s.store.Create(s.ctx, s.vouch("a:b", "c", 1)))
	_, err := s.store.Find(s.ctx, "a", "b:c")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func vouchers(list []*models.Vouch) []id.Address {
	out := make([]id.Address, len(list))
	for i, v := range list {
		out[i] = v.Voucher
	}
	return out
}
