package models

import (
	"fmt"
	"math"
	"strings"

	poolmodels "arisan/internal/pool/models"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
)

var (
	ErrEmptyName                 = dErrors.NewKind(dErrors.CodeValidation, "empty_name", "pool name is required")
	ErrBadMemberBound            = dErrors.NewKind(dErrors.CodeValidation, "bad_member_bound", "max members out of range")
	ErrFeeTooHigh                = dErrors.NewKind(dErrors.CodeValidation, "fee_too_high", "ujrah rate too high")
	ErrInvalidContributionAmount = dErrors.NewKind(dErrors.CodeValidation, "invalid_contribution_amount", "invalid contribution amount")
	ErrInvalidCycleDuration      = dErrors.NewKind(dErrors.CodeValidation, "invalid_cycle_duration", "cycle duration must be positive")
	ErrUnauthorized              = dErrors.NewKind(dErrors.CodeForbidden, "unauthorized", "only the registry owner may do this")
)

// Params bound the pool configurations the registry accepts.
type Params struct {
	MinMembers  int    `json:"min_members"`
	MaxMembers  int    `json:"max_members"`
	MaxUjrahBps uint32 `json:"max_ujrah_bps"`
}

func DefaultParams() Params {
	return Params{MinMembers: 4, MaxMembers: 50, MaxUjrahBps: 500}
}

// ValidateConfig checks cfg in a fixed order and reports the first failure.
func ValidateConfig(cfg poolmodels.Config, p Params) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return ErrEmptyName
	}
	if cfg.MaxMembers < p.MinMembers || cfg.MaxMembers > p.MaxMembers {
		return ErrBadMemberBound.WithMessage(fmt.Sprintf("max members must be between %d and %d", p.MinMembers, p.MaxMembers))
	}
	if cfg.UjrahRateBps > p.MaxUjrahBps {
		return ErrFeeTooHigh.WithMessage(fmt.Sprintf("ujrah rate must be at most %d bps", p.MaxUjrahBps))
	}
	if cfg.ContributionAmount == 0 {
		return ErrInvalidContributionAmount.WithMessage("contribution amount must be positive")
	}
	if cfg.ContributionAmount > math.MaxUint64/uint64(cfg.MaxMembers) {
		return ErrInvalidContributionAmount.WithMessage("contribution amount times max members overflows")
	}
	if cfg.CycleDuration <= 0 {
		return ErrInvalidCycleDuration
	}
	return nil
}

// Settings are the owner-controlled registry values.
type Settings struct {
	Owner         id.Address `json:"owner"`
	Treasury      id.Address `json:"treasury"`
	DeploymentFee uint64     `json:"deployment_fee"`
}
