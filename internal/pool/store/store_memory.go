// Package store persists pools together with the creator and global indexes
// the registry lists from.
package store

import (
	"context"
	"sync"

	"arisan/internal/pool/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

// InMemory is the pool arena. Pools are stored and returned as copies so a
// caller's clone never aliases stored state. Writes are undone through
// tx.OnRollback when the enclosing operation fails.
type InMemory struct {
	mu        sync.RWMutex
	pools     map[id.PoolID]*models.Pool
	order     []id.PoolID
	byCreator map[id.Address][]id.PoolID
}

func NewInMemory() *InMemory {
	return &InMemory{
		pools:     make(map[id.PoolID]*models.Pool),
		byCreator: make(map[id.Address][]id.PoolID),
	}
}

func (s *InMemory) Create(ctx context.Context, p *models.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.pools[p.ID] = p.Clone()
	s.order = append(s.order, p.ID)
	s.byCreator[p.Creator] = append(s.byCreator[p.Creator], p.ID)
	tx.OnRollback(ctx, func() { s.remove(p.ID, p.Creator) })
	return nil
}

// remove drops the most recently created pool. Pools are created and undone
// under the same sequencer, so it is always the tail of both indexes.
func (s *InMemory) remove(poolID id.PoolID, creator id.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pools, poolID)
	s.order = dropLast(s.order, poolID)
	s.byCreator[creator] = dropLast(s.byCreator[creator], poolID)
	if len(s.byCreator[creator]) == 0 {
		delete(s.byCreator, creator)
	}
}

func dropLast(ids []id.PoolID, poolID id.PoolID) []id.PoolID {
	if n := len(ids); n > 0 && ids[n-1] == poolID {
		return ids[:n-1]
	}
	return ids
}

func (s *InMemory) Get(_ context.Context, poolID id.PoolID) (*models.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[poolID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// GetForUpdate is Get: the in-memory sequencer already excludes other writers.
func (s *InMemory) GetForUpdate(ctx context.Context, poolID id.PoolID) (*models.Pool, error) {
	return s.Get(ctx, poolID)
}

func (s *InMemory) Update(ctx context.Context, p *models.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.pools[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.pools[p.ID] = p.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pools[p.ID] = prev
	})
	return nil
}

func (s *InMemory) List(_ context.Context) ([]models.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata(s.order), nil
}

func (s *InMemory) ListByCreator(_ context.Context, creator id.Address) ([]models.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata(s.byCreator[creator]), nil
}

func (s *InMemory) Metadata(_ context.Context, poolID id.PoolID) (models.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[poolID]
	if !ok {
		return models.Metadata{}, sentinel.ErrNotFound
	}
	return p.Metadata(), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *InMemory) metadata(ids []id.PoolID) []models.Metadata {
	out := make([]models.Metadata, 0, len(ids))
	for _, poolID := range ids {
		out = append(out, s.pools[poolID].Metadata())
	}
	return out
}
