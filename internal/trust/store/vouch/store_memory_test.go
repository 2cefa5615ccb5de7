package vouch

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() store { return NewInMemory() }})
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	s := &StoreContractSuite{newStore: func() store { return NewInMemory() }}
	s.SetT(t)
	s.SetupTest()

	s.Require().NoError(s.store.Create(s.ctx, s.vouch("alice", "bob", 3)))
	got, err := s.store.Find(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	got.Weight = 10

	again, err := s.store.Find(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(uint32(3), again.Weight)
}
