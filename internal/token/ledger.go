// Package token models the funding token the pools custody: balances,
// allowances, and push/pull transfers applied all-or-nothing.
package token

import (
	"context"
	"fmt"
	"math"

	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
)

var (
	ErrInsufficientBalance   = dErrors.NewKind(dErrors.CodeInsufficientFunds, "insufficient_balance", "insufficient token balance")
	ErrInsufficientAllowance = dErrors.NewKind(dErrors.CodeInsufficientFunds, "insufficient_allowance", "insufficient token allowance")
	ErrBalanceOverflow       = dErrors.NewKind(dErrors.CodeValidation, "balance_overflow", "token balance would overflow")
)

// Transfer moves Amount from From to To. An empty Spender is a push transfer
// made by From itself. A non-empty Spender pulls the funds and consumes
// allowance[From][Spender].
type Transfer struct {
	From    id.Address
	To      id.Address
	Amount  uint64
	Spender id.Address
}

// IsPull reports whether the transfer spends an allowance.
func (t Transfer) IsPull() bool { return !t.Spender.IsZero() }

// Ledger is the fungible token capability.
//
// Apply is atomic: either every transfer takes effect in order or none does.
// Implementations join an ambient SQL transaction from the context when one is
// open, so a later failure in the same unit of work undoes the transfers.
type Ledger interface {
	Apply(ctx context.Context, transfers ...Transfer) error
	BalanceOf(ctx context.Context, addr id.Address) (uint64, error)
	Allowance(ctx context.Context, owner, spender id.Address) (uint64, error)
	Approve(ctx context.Context, owner, spender id.Address, amount uint64) error
	Mint(ctx context.Context, to id.Address, amount uint64) error
}

type allowanceKey struct {
	owner   id.Address
	spender id.Address
}

// book is a working copy of the balances and allowances a batch touches.
type book struct {
	balances   map[id.Address]uint64
	allowances map[allowanceKey]uint64
}

func newBook() *book {
	return &book{
		balances:   make(map[id.Address]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

// involved lists the accounts and allowances a batch reads, in first-use order.
func involved(transfers []Transfer) ([]id.Address, []allowanceKey) {
	seenAddr := make(map[id.Address]struct{})
	seenKey := make(map[allowanceKey]struct{})
	var addrs []id.Address
	var keys []allowanceKey
	for _, t := range transfers {
		for _, a := range [2]id.Address{t.From, t.To} {
			if _, ok := seenAddr[a]; !ok {
				seenAddr[a] = struct{}{}
				addrs = append(addrs, a)
			}
		}
		if t.IsPull() {
			k := allowanceKey{owner: t.From, spender: t.Spender}
			if _, ok := seenKey[k]; !ok {
				seenKey[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	return addrs, keys
}

// apply runs the batch against the book. On error the book is partially
// modified and must be discarded.
func (b *book) apply(transfers []Transfer) error {
	for _, t := range transfers {
		if t.Amount == 0 {
			continue
		}
		if t.IsPull() {
			k := allowanceKey{owner: t.From, spender: t.Spender}
			if b.allowances[k] < t.Amount {
				return ErrInsufficientAllowance.WithMessage(fmt.Sprintf(
					"allowance of %s for %s is %d, need %d", t.From, t.Spender, b.allowances[k], t.Amount))
			}
			b.allowances[k] -= t.Amount
		}
		if b.balances[t.From] < t.Amount {
			return ErrInsufficientBalance.WithMessage(fmt.Sprintf(
				"balance of %s is %d, need %d", t.From, b.balances[t.From], t.Amount))
		}
		b.balances[t.From] -= t.Amount
		if b.balances[t.To] > math.MaxUint64-t.Amount {
			return ErrBalanceOverflow
		}
		b.balances[t.To] += t.Amount
	}
	return nil
}

func validateTransfers(transfers []Transfer) error {
	for _, t := range transfers {
		if t.From.IsZero() || t.To.IsZero() {
			return dErrors.New(dErrors.CodeBadRequest, "transfer endpoints are required")
		}
	}
	return nil
}
