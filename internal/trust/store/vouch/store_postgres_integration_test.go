//go:build integration

package vouch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"arisan/pkg/platform/tx"
	"arisan/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	suite.Run(t, &StoreContractSuite{newStore: func() store {
		if err := pg.Truncate(context.Background(), "vouches"); err != nil {
			t.Fatalf("truncate vouches: %v", err)
		}
		return NewPostgres(pg.DB)
	}, seq: tx.NewSQL(pg.DB)})
}
