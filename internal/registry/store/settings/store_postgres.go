package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"arisan/internal/registry/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

// PostgresStore keeps the settings in the one-row registry_settings table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init writes initial unless a row already exists. Values changed through the
// admin endpoints survive restarts.
func (s *PostgresStore) Init(ctx context.Context, initial models.Settings) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registry_settings (id, owner, treasury, deployment_fee)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, initial.Owner.String(), initial.Treasury.String(), strconv.FormatUint(initial.DeploymentFee, 10))
	if err != nil {
		return fmt.Errorf("init registry settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context) (models.Settings, error) {
	var owner, treasury, fee string
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT owner, treasury, deployment_fee::text FROM registry_settings WHERE id = 1`,
	).Scan(&owner, &treasury, &fee)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("select registry settings: %w", err)
	}
	parsed, err := strconv.ParseUint(fee, 10, 64)
	if err != nil {
		return models.Settings{}, fmt.Errorf("parse deployment fee %q: %w", fee, err)
	}
	return models.Settings{Owner: id.Address(owner), Treasury: id.Address(treasury), DeploymentFee: parsed}, nil
}

func (s *PostgresStore) SetDeploymentFee(ctx context.Context, fee uint64) error {
	return s.update(ctx, `UPDATE registry_settings SET deployment_fee = $1 WHERE id = 1`, strconv.FormatUint(fee, 10))
}

func (s *PostgresStore) SetTreasury(ctx context.Context, treasury id.Address) error {
	return s.update(ctx, `UPDATE registry_settings SET treasury = $1 WHERE id = 1`, treasury.String())
}

func (s *PostgresStore) update(ctx context.Context, query string, arg any) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("update registry settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registry settings: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
