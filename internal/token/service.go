package token

import (
	"context"
	"errors"
	"log/slog"

	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/tx"
	"arisan/pkg/requestcontext"
)

var ErrFaucetDisabled = dErrors.NewKind(dErrors.CodeForbidden, "faucet_disabled", "faucet is disabled")

// Balance is a read model for one account.
type Balance struct {
	Address id.Address `json:"address"`
	Balance uint64     `json:"balance"`
}

// Service exposes the caller-facing token operations: approvals, the
// development faucet and balance reads.
type Service struct {
	ledger        Ledger
	seq           tx.Sequencer
	logger        *slog.Logger
	faucetEnabled bool
	faucetAmount  uint64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFaucet enables minting amount to any caller that asks.
func WithFaucet(enabled bool, amount uint64) Option {
	return func(s *Service) {
		s.faucetEnabled = enabled
		s.faucetAmount = amount
	}
}

func NewService(ledger Ledger, seq tx.Sequencer, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, errors.New("token ledger is required")
	}
	if seq == nil {
		return nil, errors.New("sequencer is required")
	}
	svc := &Service{ledger: ledger, seq: seq, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Approve lets spender pull up to amount from owner. Pools pull contributions
// with their custody address as spender, the registry pulls the deployment fee
// with its own address.
func (s *Service) Approve(ctx context.Context, owner, spender id.Address, amount uint64) error {
	if owner == spender {
		return dErrors.New(dErrors.CodeBadRequest, "cannot approve yourself")
	}
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		return s.ledger.Approve(txCtx, owner, spender, amount)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeOf(err), "failed to approve")
	}
	s.logger.InfoContext(ctx, "token_approved",
		"request_id", requestcontext.RequestID(ctx),
		"owner", owner,
		"spender", spender,
		"amount", amount,
	)
	return nil
}

// Faucet mints the configured amount to the caller.
func (s *Service) Faucet(ctx context.Context, to id.Address) (uint64, error) {
	if !s.faucetEnabled {
		return 0, ErrFaucetDisabled
	}
	err := s.seq.RunInTx(ctx, func(txCtx context.Context) error {
		return s.ledger.Mint(txCtx, to, s.faucetAmount)
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeOf(err), "failed to mint")
	}
	s.logger.InfoContext(ctx, "token_minted",
		"request_id", requestcontext.RequestID(ctx),
		"to", to,
		"amount", s.faucetAmount,
	)
	return s.faucetAmount, nil
}

func (s *Service) Balance(ctx context.Context, addr id.Address) (*Balance, error) {
	v, err := s.ledger.BalanceOf(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return &Balance{Address: addr, Balance: v}, nil
}

func (s *Service) Allowance(ctx context.Context, owner, spender id.Address) (uint64, error) {
	v, err := s.ledger.Allowance(ctx, owner, spender)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allowance")
	}
	return v, nil
}
