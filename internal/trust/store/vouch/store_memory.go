// Package vouch stores vouch edges with indexes by vouchee and by voucher.
package vouch

import (
	"context"
	"sync"

	"arisan/internal/trust/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

type edgeKey struct {
	voucher id.Address
	vouchee id.Address
}

// InMemory keeps edges in a map plus per-address adjacency lists in creation
// order, so a score is computed from the vouchee's list alone. Each write
// registers a restore of the touched edge and lists with tx.OnRollback.
type InMemory struct {
	mu       sync.RWMutex
	edges    map[edgeKey]*models.Vouch
	incoming map[id.Address][]id.Address
	outgoing map[id.Address][]id.Address
}

func NewInMemory() *InMemory {
	return &InMemory{
		edges:    make(map[edgeKey]*models.Vouch),
		incoming: make(map[id.Address][]id.Address),
		outgoing: make(map[id.Address][]id.Address),
	}
}

func (s *InMemory) Create(ctx context.Context, v *models.Vouch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{voucher: v.Voucher, vouchee: v.Vouchee}
	if _, ok := s.edges[k]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.journal(ctx, k)
	c := *v
	s.edges[k] = &c
	s.incoming[v.Vouchee] = append(s.incoming[v.Vouchee], v.Voucher)
	s.outgoing[v.Voucher] = append(s.outgoing[v.Voucher], v.Vouchee)
	return nil
}

func (s *InMemory) Find(_ context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.edges[edgeKey{voucher: voucher, vouchee: vouchee}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *v
	return &c, nil
}

// Update runs fn on a copy of the edge and stores the copy only if fn succeeds.
func (s *InMemory) Update(ctx context.Context, voucher, vouchee id.Address, fn func(*models.Vouch) error) (*models.Vouch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{voucher: voucher, vouchee: vouchee}
	v, ok := s.edges[k]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *v
	if err := fn(&c); err != nil {
		return nil, err
	}
	s.journal(ctx, k)
	s.edges[k] = &c
	out := c
	return &out, nil
}

func (s *InMemory) Delete(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{voucher: voucher, vouchee: vouchee}
	v, ok := s.edges[k]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	s.journal(ctx, k)
	delete(s.edges, k)
	s.incoming[vouchee] = without(s.incoming[vouchee], voucher)
	s.outgoing[voucher] = without(s.outgoing[voucher], vouchee)
	return v, nil
}

func (s *InMemory) ListIncoming(_ context.Context, vouchee id.Address) ([]*models.Vouch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vouch, 0, len(s.incoming[vouchee]))
	for _, voucher := range s.incoming[vouchee] {
		c := *s.edges[edgeKey{voucher: voucher, vouchee: vouchee}]
		out = append(out, &c)
	}
	return out, nil
}

func (s *InMemory) ListOutgoing(_ context.Context, voucher id.Address) ([]*models.Vouch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vouch, 0, len(s.outgoing[voucher]))
	for _, vouchee := range s.outgoing[voucher] {
		c := *s.edges[edgeKey{voucher: voucher, vouchee: vouchee}]
		out = append(out, &c)
	}
	return out, nil
}

// journal snapshots the edge k and both adjacency lists it appears in so a
// rollback restores creation order too. Callers hold mu.
func (s *InMemory) journal(ctx context.Context, k edgeKey) {
	edge, hadEdge := s.edges[k]
	in := append([]id.Address(nil), s.incoming[k.vouchee]...)
	out := append([]id.Address(nil), s.outgoing[k.voucher]...)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if hadEdge {
			s.edges[k] = edge
		} else {
			delete(s.edges, k)
		}
		s.incoming[k.vouchee] = in
		s.outgoing[k.voucher] = out
	})
}

func without(list []id.Address, a id.Address) []id.Address {
	for i, x := range list {
		if x == a {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
