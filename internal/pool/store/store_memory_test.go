package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"arisan/pkg/platform/tx"
)

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() store { return NewInMemory() }})
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	s := &StoreContractSuite{newStore: func() store { return NewInMemory() }}
	s.SetT(t)
	s.SetupTest()

	p := s.pool("0xalice", "kampung")
	s.Require().NoError(s.store.Create(s.ctx, p))
	p.Config.Name = "mutated"

	got, err := s.store.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("kampung", got.Config.Name)

	_, err = got.Join("0xm1", s.now)
	s.Require().NoError(err)
	again, err := s.store.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(again.Members)
}

func TestInMemoryStore_RollbackRestoresArena(t *testing.T) {
	s := &StoreContractSuite{newStore: func() store { return NewInMemory() }}
	s.SetT(t)
	s.SetupTest()

	kept := s.pool("0xalice", "kampung")
	s.Require().NoError(s.store.Create(s.ctx, kept))

	err := tx.NewSerial().RunInTx(s.ctx, func(txCtx context.Context) error {
		changed := kept.Clone()
		_, err := changed.Join("0xm1", s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Update(txCtx, changed))
		s.Require().NoError(s.store.Create(txCtx, s.pool("0xalice", "discarded")))
		return errors.New("boom")
	})
	s.Require().Error(err)

	got, err := s.store.Get(s.ctx, kept.ID)
	s.Require().NoError(err)
	s.Empty(got.Members)
	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
	byCreator, err := s.store.ListByCreator(s.ctx, "0xalice")
	s.Require().NoError(err)
	s.Require().Len(byCreator, 1)
	s.Equal(kept.ID, byCreator[0].ID)
}
