package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	poolmodels "arisan/internal/pool/models"
)

func validConfig() poolmodels.Config {
	return poolmodels.Config{
		Name:               "RT 05",
		ContributionAmount: 1000,
		MaxMembers:         5,
		CycleDuration:      time.Hour,
		UjrahRateBps:       50,
	}
}

func TestValidateConfig(t *testing.T) {
	p := DefaultParams()
	cases := []struct {
		name   string
		mutate func(*poolmodels.Config)
		want   error
	}{
		{"valid", func(*poolmodels.Config) {}, nil},
		{"blank name", func(c *poolmodels.Config) { c.Name = "  " }, ErrEmptyName},
		{"too few members", func(c *poolmodels.Config) { c.MaxMembers = 3 }, ErrBadMemberBound},
		{"too many members", func(c *poolmodels.Config) { c.MaxMembers = 51 }, ErrBadMemberBound},
		{"bounds inclusive low", func(c *poolmodels.Config) { c.MaxMembers = 4 }, nil},
		{"bounds inclusive high", func(c *poolmodels.Config) { c.MaxMembers = 50 }, nil},
		{"fee cap inclusive", func(c *poolmodels.Config) { c.UjrahRateBps = 500 }, nil},
		{"fee too high", func(c *poolmodels.Config) { c.UjrahRateBps = 501 }, ErrFeeTooHigh},
		{"zero contribution", func(c *poolmodels.Config) { c.ContributionAmount = 0 }, ErrInvalidContributionAmount},
		{"pot overflow", func(c *poolmodels.Config) { c.ContributionAmount = math.MaxUint64/5 + 1 }, ErrInvalidContributionAmount},
		{"largest pot", func(c *poolmodels.Config) { c.ContributionAmount = math.MaxUint64 / 5 }, nil},
		{"zero duration", func(c *poolmodels.Config) { c.CycleDuration = 0 }, ErrInvalidCycleDuration},
		{"name checked before members", func(c *poolmodels.Config) { c.Name = ""; c.MaxMembers = 1 }, ErrEmptyName},
		{"members checked before fee", func(c *poolmodels.Config) { c.MaxMembers = 1; c.UjrahRateBps = 9999 }, ErrBadMemberBound},
		{"fee checked before amount", func(c *poolmodels.Config) { c.UjrahRateBps = 9999; c.ContributionAmount = 0 }, ErrFeeTooHigh},
		{"amount checked before duration", func(c *poolmodels.Config) { c.ContributionAmount = 0; c.CycleDuration = 0 }, ErrInvalidContributionAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(cfg, p)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
