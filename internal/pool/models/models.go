// Package models holds the pool rotation state machine. Every mutation runs
// on a clone owned by the caller; nothing here touches storage or tokens.
package models

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"slices"
	"time"

	"arisan/internal/token"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
)

// BpsDenominator is the basis-point scale of UjrahRateBps.
const BpsDenominator = 10_000

var (
	ErrPoolNotFound       = dErrors.NewKind(dErrors.CodeNotFound, "pool_not_found", "pool not found")
	ErrNotRecruiting      = dErrors.NewKind(dErrors.CodeInvalidState, "not_recruiting", "pool is not recruiting")
	ErrNotActive          = dErrors.NewKind(dErrors.CodeInvalidState, "not_active", "pool is not active")
	ErrAlreadyMember      = dErrors.NewKind(dErrors.CodeInvalidState, "already_member", "already a member")
	ErrNotAMember         = dErrors.NewKind(dErrors.CodeInvalidState, "not_a_member", "not a member of this pool")
	ErrAlreadyContributed = dErrors.NewKind(dErrors.CodeInvalidState, "already_contributed", "already contributed this cycle")
	ErrInsufficientTrust  = dErrors.NewKind(dErrors.CodeInvalidState, "insufficient_trust", "trust score below pool minimum")
)

// State is the pool lifecycle position.
type State int

const (
	Recruiting State = iota
	Active
	Completed
)

var stateNames = [...]string{"recruiting", "active", "completed"}

func (s State) String() string {
	if s < Recruiting || s > Completed {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState reads the text form written by String.
func ParseState(v string) (State, error) {
	for i, name := range stateNames {
		if name == v {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pool state %q", v)
}

// Config is frozen once a pool is created.
type Config struct {
	Name               string        `json:"name"`
	ContributionAmount uint64        `json:"contribution_amount"`
	MaxMembers         int           `json:"max_members"`
	CycleDuration      time.Duration `json:"cycle_duration"`
	UjrahRateBps       uint32        `json:"ujrah_rate_bps"`
	RequiresVouching   bool          `json:"requires_vouching"`
	MinVouchScore      uint64        `json:"min_vouch_score"`
}

type Member struct {
	Address           id.Address `json:"address"`
	JoinedAt          time.Time  `json:"joined_at"`
	IsActive          bool       `json:"is_active"`
	TotalContributed  uint64     `json:"total_contributed"`
	HasReceivedPayout bool       `json:"has_received_payout"`
}

// Settlement records one settled cycle.
type Settlement struct {
	Cycle     int        `json:"cycle"`
	Recipient id.Address `json:"recipient"`
	Pot       uint64     `json:"pot"`
	Fee       uint64     `json:"fee"`
	Payout    uint64     `json:"payout"`
	SettledAt time.Time  `json:"settled_at"`
}

// Pool is one rotating savings group. Members are kept in join order, which
// is also payout order.
type Pool struct {
	ID             id.PoolID    `json:"id"`
	Creator        id.Address   `json:"creator"`
	Treasury       id.Address   `json:"treasury"`
	Config         Config       `json:"config"`
	State          State        `json:"state"`
	Members        []Member     `json:"members"`
	CurrentCycle   int          `json:"current_cycle"`
	Contributed    []id.Address `json:"contributed"`
	TotalFees      uint64       `json:"total_fees"`
	CreatedAt      time.Time    `json:"created_at"`
	CycleStartedAt *time.Time   `json:"cycle_started_at,omitempty"`
	Settlements    []Settlement `json:"settlements"`
}

// New builds a recruiting pool. cfg must already be validated.
func New(poolID id.PoolID, creator, treasury id.Address, cfg Config, now time.Time) *Pool {
	return &Pool{
		ID:        poolID,
		Creator:   creator,
		Treasury:  treasury,
		Config:    cfg,
		State:     Recruiting,
		CreatedAt: now,
	}
}

// Address is the custody account holding contributions between settlements.
func (p *Pool) Address() id.Address {
	return id.PoolAddress(p.ID)
}

func (p *Pool) Clone() *Pool {
	c := *p
	c.Members = slices.Clone(p.Members)
	c.Contributed = slices.Clone(p.Contributed)
	c.Settlements = slices.Clone(p.Settlements)
	if p.CycleStartedAt != nil {
		t := *p.CycleStartedAt
		c.CycleStartedAt = &t
	}
	return &c
}

// Member returns the member record for addr, or nil.
func (p *Pool) Member(addr id.Address) *Member {
	for i := range p.Members {
		if p.Members[i].Address == addr {
			return &p.Members[i]
		}
	}
	return nil
}

func (p *Pool) MemberAddresses() []id.Address {
	out := make([]id.Address, len(p.Members))
	for i, m := range p.Members {
		out[i] = m.Address
	}
	return out
}

// CheckJoin reports why addr cannot join, ignoring trust.
func (p *Pool) CheckJoin(addr id.Address) error {
	if p.State != Recruiting {
		return ErrNotRecruiting
	}
	if p.Member(addr) != nil {
		return ErrAlreadyMember
	}
	return nil
}

// Join appends addr to the payout order. It returns true when the join filled
// the pool and started the first cycle.
func (p *Pool) Join(addr id.Address, now time.Time) (bool, error) {
	if err := p.CheckJoin(addr); err != nil {
		return false, err
	}
	p.Members = append(p.Members, Member{Address: addr, JoinedAt: now, IsActive: true})
	if len(p.Members) < p.Config.MaxMembers {
		return false, nil
	}
	p.State = Active
	started := now
	p.CycleStartedAt = &started
	return true, nil
}

// Contribute records addr's payment for the current cycle. When it is the
// last one outstanding the cycle settles and the returned Settlement is set.
func (p *Pool) Contribute(addr id.Address, now time.Time) (*Settlement, error) {
	if p.State != Active {
		return nil, ErrNotActive
	}
	m := p.Member(addr)
	if m == nil || !m.IsActive {
		return nil, ErrNotAMember
	}
	if slices.Contains(p.Contributed, addr) {
		return nil, ErrAlreadyContributed
	}
	m.TotalContributed += p.Config.ContributionAmount
	p.Contributed = append(p.Contributed, addr)
	if len(p.Contributed) < p.activeCount() {
		return nil, nil
	}
	return p.settle(now), nil
}

func (p *Pool) settle(now time.Time) *Settlement {
	pot := p.Config.ContributionAmount * uint64(len(p.Contributed))
	fee := Fee(pot, p.Config.UjrahRateBps)
	recipient := p.nextRecipient()
	recipient.HasReceivedPayout = true

	s := Settlement{
		Cycle:     p.CurrentCycle,
		Recipient: recipient.Address,
		Pot:       pot,
		Fee:       fee,
		Payout:    pot - fee,
		SettledAt: now,
	}
	p.Settlements = append(p.Settlements, s)
	p.TotalFees += fee
	p.Contributed = nil
	p.CurrentCycle++

	if len(p.Settlements) >= p.Config.MaxMembers {
		p.State = Completed
		p.CycleStartedAt = nil
	} else {
		started := now
		p.CycleStartedAt = &started
	}
	return &s
}

func (p *Pool) nextRecipient() *Member {
	for i := range p.Members {
		if p.Members[i].IsActive && !p.Members[i].HasReceivedPayout {
			return &p.Members[i]
		}
	}
	// Unreachable while the settlement count stays below the member count.
	panic("pool: no unpaid member left to settle")
}

func (p *Pool) activeCount() int {
	n := 0
	for _, m := range p.Members {
		if m.IsActive {
			n++
		}
	}
	return n
}

// ContributionPlan is the token movement for one contribution, including the
// settlement payouts when s is non-nil.
func (p *Pool) ContributionPlan(from id.Address, s *Settlement) []token.Transfer {
	custody := p.Address()
	plan := []token.Transfer{{From: from, To: custody, Amount: p.Config.ContributionAmount, Spender: custody}}
	if s == nil {
		return plan
	}
	return append(plan,
		token.Transfer{From: custody, To: p.Treasury, Amount: s.Fee},
		token.Transfer{From: custody, To: s.Recipient, Amount: s.Payout},
	)
}

// CycleDeadline is when the current cycle is expected to close. It is
// informational; nothing is forfeited when it passes.
func (p *Pool) CycleDeadline() (time.Time, bool) {
	if p.State != Active || p.CycleStartedAt == nil {
		return time.Time{}, false
	}
	return p.CycleStartedAt.Add(p.Config.CycleDuration), true
}

// Fee is floor(pot * bps / 10000) without intermediate overflow.
func Fee(pot uint64, bps uint32) uint64 {
	hi, lo := bits.Mul64(pot, uint64(bps))
	q, _ := bits.Div64(hi, lo, BpsDenominator)
	return q
}

// Metadata is the cheap listing projection of a pool.
type Metadata struct {
	ID          id.PoolID  `json:"id"`
	Creator     id.Address `json:"creator"`
	Name        string     `json:"name"`
	MemberCount int        `json:"member_count"`
	MaxMembers  int        `json:"max_members"`
	State       State      `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (p *Pool) Metadata() Metadata {
	return Metadata{
		ID:          p.ID,
		Creator:     p.Creator,
		Name:        p.Config.Name,
		MemberCount: len(p.Members),
		MaxMembers:  p.Config.MaxMembers,
		State:       p.State,
		CreatedAt:   p.CreatedAt,
	}
}

// Marshal encodes the snapshot stored by durable backends.
func (p *Pool) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

func Unmarshal(b []byte) (*Pool, error) {
	var p Pool
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode pool snapshot: %w", err)
	}
	return &p, nil
}
