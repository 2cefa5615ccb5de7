//go:build integration

package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arisan/internal/registry/models"
	"arisan/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, pg.Truncate(ctx, "registry_settings"))
	s := NewPostgres(pg.DB)

	require.NoError(t, s.Init(ctx, models.Settings{Owner: "0xowner", Treasury: "0xt1", DeploymentFee: 18446744073709551615}))

	t.Run("init keeps existing row", func(t *testing.T) {
		require.NoError(t, s.Init(ctx, models.Settings{Owner: "0xother", Treasury: "0xt9", DeploymentFee: 1}))
		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Settings{Owner: "0xowner", Treasury: "0xt1", DeploymentFee: 18446744073709551615}, got)
	})

	t.Run("updates", func(t *testing.T) {
		require.NoError(t, s.SetDeploymentFee(ctx, 7))
		require.NoError(t, s.SetTreasury(ctx, "0xt2"))
		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Settings{Owner: "0xowner", Treasury: "0xt2", DeploymentFee: 7}, got)
	})
}
