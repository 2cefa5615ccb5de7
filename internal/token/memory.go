package token

import (
	"context"
	"math"
	"sync"

	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/tx"
)

// InMemory is a process-local ledger. Every write registers its inverse with
// tx.OnRollback so a failed operation leaves balances as they were.
type InMemory struct {
	mu         sync.RWMutex
	balances   map[id.Address]uint64
	allowances map[allowanceKey]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		balances:   make(map[id.Address]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

func (l *InMemory) Apply(ctx context.Context, transfers ...Transfer) error {
	if err := validateTransfers(transfers); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	addrs, keys := involved(transfers)
	b := newBook()
	for _, a := range addrs {
		b.balances[a] = l.balances[a]
	}
	for _, k := range keys {
		b.allowances[k] = l.allowances[k]
	}
	prev := newBook()
	for a, v := range b.balances {
		prev.balances[a] = v
	}
	for k, v := range b.allowances {
		prev.allowances[k] = v
	}
	if err := b.apply(transfers); err != nil {
		return err
	}
	tx.OnRollback(ctx, func() { l.restore(prev) })
	for a, v := range b.balances {
		l.balances[a] = v
	}
	for k, v := range b.allowances {
		l.allowances[k] = v
	}
	return nil
}

func (l *InMemory) restore(b *book) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for a, v := range b.balances {
		l.balances[a] = v
	}
	for k, v := range b.allowances {
		l.allowances[k] = v
	}
}

func (l *InMemory) BalanceOf(_ context.Context, addr id.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr], nil
}

func (l *InMemory) Allowance(_ context.Context, owner, spender id.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey{owner: owner, spender: spender}], nil
}

// Approve sets the allowance to amount, replacing any previous value.
func (l *InMemory) Approve(ctx context.Context, owner, spender id.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := allowanceKey{owner: owner, spender: spender}
	prev := newBook()
	prev.allowances[k] = l.allowances[k]
	tx.OnRollback(ctx, func() { l.restore(prev) })
	l.allowances[k] = amount
	return nil
}

func (l *InMemory) Mint(ctx context.Context, to id.Address, amount uint64) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "mint recipient is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[to] > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	prev := newBook()
	prev.balances[to] = l.balances[to]
	tx.OnRollback(ctx, func() { l.restore(prev) })
	l.balances[to] += amount
	return nil
}
