// Package settings stores the single registry settings record.
package settings

import (
	"context"
	"sync"

	"arisan/internal/registry/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/tx"
)

type InMemory struct {
	mu       sync.RWMutex
	settings models.Settings
}

func NewInMemory(initial models.Settings) *InMemory {
	return &InMemory{settings: initial}
}

func (s *InMemory) Get(_ context.Context) (models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *InMemory) SetDeploymentFee(ctx context.Context, fee uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal(ctx)
	s.settings.DeploymentFee = fee
	return nil
}

func (s *InMemory) SetTreasury(ctx context.Context, treasury id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal(ctx)
	s.settings.Treasury = treasury
	return nil
}

// journal records the current record for restore on rollback. Callers hold mu.
func (s *InMemory) journal(ctx context.Context) {
	prev := s.settings
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.settings = prev
	})
}
