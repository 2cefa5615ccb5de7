package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "arisan/pkg/domain-errors"
)

// maxAddressLen bounds address input at trust boundaries.
const maxAddressLen = 128

// Address identifies a participant or account. It is opaque: equality is the
// only operation the protocol needs. Hex addresses ("0x...") are lowercased so
// that checksummed and plain spellings compare equal.
type Address string

// ParseAddress validates an address at a trust boundary.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "address is required")
	}
	if len(s) > maxAddressLen {
		return "", dErrors.New(dErrors.CodeBadRequest, "address is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "address must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return "", dErrors.New(dErrors.CodeBadRequest, "address contains invalid characters")
		}
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = "0x" + strings.ToLower(s[2:])
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == "" }

// PoolID identifies a savings pool.
type PoolID uuid.UUID

// NewPoolID returns a fresh random pool id.
func NewPoolID() PoolID { return PoolID(uuid.New()) }

// ParsePoolID validates a pool id at a trust boundary.
func ParsePoolID(s string) (PoolID, error) {
	if s == "" {
		return PoolID{}, dErrors.New(dErrors.CodeBadRequest, "pool id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return PoolID{}, dErrors.New(dErrors.CodeBadRequest, "invalid pool id")
	}
	if parsed == uuid.Nil {
		return PoolID{}, dErrors.New(dErrors.CodeBadRequest, "pool id cannot be nil")
	}
	return PoolID(parsed), nil
}

func (id PoolID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero UUID.
func (id PoolID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id PoolID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *PoolID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = PoolID(parsed)
	return nil
}

// PoolAddress is the custody account of a pool. Members approve this address
// as spender before contributing.
func PoolAddress(id PoolID) Address {
	return Address("pool:" + id.String())
}
