package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"arisan/internal/platform/postgres"
	"arisan/internal/pool/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

// PostgresStore keeps each pool as a JSONB snapshot plus the projection
// columns listings read. Both are written by the same statement, so the
// projection never lags the snapshot.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const metadataColumns = `id, creator, name, member_count, max_members, state, created_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Pool) error {
	snapshot, err := p.Marshal()
	if err != nil {
		return err
	}
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO pools (id, creator, name, state, member_count, max_members, created_at, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(p.ID), p.Creator.String(), p.Config.Name, p.State.String(), len(p.Members), p.Config.MaxMembers, p.CreatedAt, snapshot)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, poolID id.PoolID) (*models.Pool, error) {
	return s.get(ctx, `SELECT snapshot FROM pools WHERE id = $1`, poolID)
}

// GetForUpdate locks the row until the ambient transaction ends, so two
// contributions to one pool apply one after the other.
func (s *PostgresStore) GetForUpdate(ctx context.Context, poolID id.PoolID) (*models.Pool, error) {
	return s.get(ctx, `SELECT snapshot FROM pools WHERE id = $1 FOR UPDATE`, poolID)
}

func (s *PostgresStore) get(ctx context.Context, query string, poolID id.PoolID) (*models.Pool, error) {
	var snapshot []byte
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(poolID)).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select pool: %w", err)
	}
	return models.Unmarshal(snapshot)
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Pool) error {
	snapshot, err := p.Marshal()
	if err != nil {
		return err
	}
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE pools SET state = $2, member_count = $3, snapshot = $4 WHERE id = $1
	`, uuid.UUID(p.ID), p.State.String(), len(p.Members), snapshot)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Metadata, error) {
	return s.list(ctx, `SELECT `+metadataColumns+` FROM pools ORDER BY seq`)
}

func (s *PostgresStore) ListByCreator(ctx context.Context, creator id.Address) ([]models.Metadata, error) {
	return s.list(ctx, `SELECT `+metadataColumns+` FROM pools WHERE creator = $1 ORDER BY seq`, creator.String())
}

func (s *PostgresStore) Metadata(ctx context.Context, poolID id.PoolID) (models.Metadata, error) {
	m, err := scanMetadata(tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+metadataColumns+` FROM pools WHERE id = $1`, uuid.UUID(poolID)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Metadata{}, sentinel.ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM pools`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pools: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]models.Metadata, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()
	out := []models.Metadata{}
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row scanner) (models.Metadata, error) {
	var (
		poolID  uuid.UUID
		creator string
		state   string
		m       models.Metadata
	)
	if err := row.Scan(&poolID, &creator, &m.Name, &m.MemberCount, &m.MaxMembers, &state, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, err
		}
		return m, fmt.Errorf("scan pool metadata: %w", err)
	}
	parsed, err := models.ParseState(state)
	if err != nil {
		return m, err
	}
	m.ID = id.PoolID(poolID)
	m.Creator = id.Address(creator)
	m.State = parsed
	return m, nil
}
