package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseAddress checks that parsing never panics and accepted addresses
// are stable under re-parsing.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x52908400098527886E0F7030069857D2E4169EE7")
	f.Add("alice")
	f.Add("'; DROP TABLE vouches;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("0xabc​")

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		again, err := ParseAddress(addr.String())
		if err != nil {
			t.Errorf("accepted address failed round-trip: %v", err)
		}
		if again != addr {
			t.Error("round-trip changed address value")
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

func FuzzParsePoolID(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParsePoolID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("nil pool id was accepted")
		}
		roundTrip, err := ParsePoolID(id.String())
		if err != nil || roundTrip != id {
			t.Errorf("pool id failed round-trip: %v", err)
		}
	})
}
