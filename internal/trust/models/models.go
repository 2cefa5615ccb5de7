package models

import (
	"fmt"
	"time"

	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
)

var (
	ErrSelfVouch      = dErrors.NewKind(dErrors.CodeValidation, "self_vouch", "cannot vouch for yourself")
	ErrInvalidWeight  = dErrors.NewKind(dErrors.CodeValidation, "invalid_weight", "vouch weight out of range")
	ErrAlreadyVouched = dErrors.NewKind(dErrors.CodeInvalidState, "already_vouched", "already vouched for this address")
	ErrVouchNotFound  = dErrors.NewKind(dErrors.CodeInvalidState, "vouch_not_found", "vouch not found")
)

// Params are the trust graph bounds.
type Params struct {
	MinWeight             uint32 `json:"min_vouch_weight"`
	MaxWeight             uint32 `json:"max_vouch_weight"`
	VerificationThreshold uint64 `json:"verification_threshold"`
}

// DefaultParams mirrors the protocol defaults.
func DefaultParams() Params {
	return Params{MinWeight: 1, MaxWeight: 10, VerificationThreshold: 50}
}

// CheckWeight rejects weights outside [MinWeight, MaxWeight].
func (p Params) CheckWeight(weight uint32) error {
	if weight < p.MinWeight || weight > p.MaxWeight {
		return ErrInvalidWeight.WithMessage(fmt.Sprintf("weight must be between %d and %d", p.MinWeight, p.MaxWeight))
	}
	return nil
}

// Vouch is a weighted, directed endorsement. At most one exists per ordered
// (Voucher, Vouchee) pair, and Voucher never equals Vouchee.
type Vouch struct {
	Voucher   id.Address `json:"voucher"`
	Vouchee   id.Address `json:"vouchee"`
	Weight    uint32     `json:"weight"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewVouch validates and builds a vouch.
func NewVouch(voucher, vouchee id.Address, weight uint32, note string, now time.Time, p Params) (*Vouch, error) {
	if voucher == vouchee {
		return nil, ErrSelfVouch
	}
	if err := p.CheckWeight(weight); err != nil {
		return nil, err
	}
	return &Vouch{
		Voucher:   voucher,
		Vouchee:   vouchee,
		Weight:    weight,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetWeight replaces the weight in place. Note and CreatedAt are untouched.
func (v *Vouch) SetWeight(weight uint32, now time.Time, p Params) error {
	if err := p.CheckWeight(weight); err != nil {
		return err
	}
	v.Weight = weight
	v.UpdatedAt = now
	return nil
}

// Score sums the weights of the given incoming vouches.
func Score(incoming []*Vouch) uint64 {
	var total uint64
	for _, v := range incoming {
		total += uint64(v.Weight)
	}
	return total
}

// Profile is the derived trust view of one address.
type Profile struct {
	Address      id.Address `json:"address"`
	Score        uint64     `json:"trust_score"`
	Verified     bool       `json:"verified"`
	VoucherCount int        `json:"voucher_count"`
	VoucheeCount int        `json:"vouchee_count"`
}
