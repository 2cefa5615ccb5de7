package vouch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"arisan/internal/platform/postgres"
	"arisan/internal/trust/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

// PostgresStore persists vouches in PostgreSQL. Writes join the ambient
// transaction so vouch changes commit together with their outbox events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const vouchColumns = `voucher, vouchee, weight, note, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, v *models.Vouch) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO vouches (voucher, vouchee, weight, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.Voucher.String(), v.Vouchee.String(), int64(v.Weight), v.Note, v.CreatedAt, v.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert vouch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+vouchColumns+` FROM vouches WHERE voucher = $1 AND vouchee = $2`,
		voucher.String(), vouchee.String())
	return scanVouch(row)
}

func (s *PostgresStore) Update(ctx context.Context, voucher, vouchee id.Address, fn func(*models.Vouch) error) (*models.Vouch, error) {
	var updated *models.Vouch
	err := tx.NewSQL(s.db).RunInTx(ctx, func(txCtx context.Context) error {
		exec := tx.ExecutorFrom(txCtx, s.db)
		v, err := scanVouch(exec.QueryRowContext(txCtx,
			`SELECT `+vouchColumns+` FROM vouches WHERE voucher = $1 AND vouchee = $2 FOR UPDATE`,
			voucher.String(), vouchee.String()))
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
		if _, err := exec.ExecContext(txCtx,
			`UPDATE vouches SET weight = $3, note = $4, updated_at = $5 WHERE voucher = $1 AND vouchee = $2`,
			voucher.String(), vouchee.String(), int64(v.Weight), v.Note, v.UpdatedAt); err != nil {
			return fmt.Errorf("update vouch: %w", err)
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`DELETE FROM vouches WHERE voucher = $1 AND vouchee = $2 RETURNING `+vouchColumns,
		voucher.String(), vouchee.String())
	return scanVouch(row)
}

func (s *PostgresStore) ListIncoming(ctx context.Context, vouchee id.Address) ([]*models.Vouch, error) {
	return s.list(ctx, `SELECT `+vouchColumns+` FROM vouches WHERE vouchee = $1 ORDER BY seq`, vouchee)
}

func (s *PostgresStore) ListOutgoing(ctx context.Context, voucher id.Address) ([]*models.Vouch, error) {
	return s.list(ctx, `SELECT `+vouchColumns+` FROM vouches WHERE voucher = $1 ORDER BY seq`, voucher)
}

func (s *PostgresStore) list(ctx context.Context, query string, addr id.Address) ([]*models.Vouch, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, addr.String())
	if err != nil {
		return nil, fmt.Errorf("list vouches: %w", err)
	}
	defer rows.Close()
	out := []*models.Vouch{}
	for rows.Next() {
		v, err := scanVouch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVouch(row scanner) (*models.Vouch, error) {
	var (
		voucher, vouchee string
		weight           int64
		out              models.Vouch
	)
	err := row.Scan(&voucher, &vouchee, &weight, &out.Note, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan vouch: %w", err)
	}
	out.Voucher = id.Address(voucher)
	out.Vouchee = id.Address(vouchee)
	out.Weight = uint32(weight)
	return &out, nil
}
