package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/lib/pq"

	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/tx"
)

// PostgresLedger persists balances and allowances in PostgreSQL. Amounts are
// NUMERIC(20,0) and travel as decimal strings so the full uint64 range fits.
type PostgresLedger struct {
	db  *sql.DB
	seq tx.Sequencer
}

// NewPostgres constructs a PostgreSQL-backed ledger.
func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db, seq: tx.NewSQL(db)}
}

func (l *PostgresLedger) Apply(ctx context.Context, transfers ...Transfer) error {
	if err := validateTransfers(transfers); err != nil {
		return err
	}
	return l.seq.RunInTx(ctx, func(txCtx context.Context) error {
		exec := tx.ExecutorFrom(txCtx, l.db)
		addrs, keys := involved(transfers)

		b, err := l.lockBook(txCtx, exec, addrs, keys)
		if err != nil {
			return err
		}
		if err := b.apply(transfers); err != nil {
			return err
		}
		for a, v := range b.balances {
			if _, err := exec.ExecContext(txCtx,
				`UPDATE token_balances SET amount = $2::numeric WHERE address = $1`,
				a.String(), formatAmount(v)); err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
		}
		for k, v := range b.allowances {
			if _, err := exec.ExecContext(txCtx,
				`UPDATE token_allowances SET amount = $3::numeric WHERE owner = $1 AND spender = $2`,
				k.owner.String(), k.spender.String(), formatAmount(v)); err != nil {
				return fmt.Errorf("update allowance: %w", err)
			}
		}
		return nil
	})
}

// lockBook loads and row-locks every account the batch touches. Rows are
// locked in address order so concurrent batches cannot deadlock each other.
func (l *PostgresLedger) lockBook(ctx context.Context, exec tx.Executor, addrs []id.Address, keys []allowanceKey) (*book, error) {
	b := newBook()

	names := make([]string, len(addrs))
	for i, a := range addrs {
		names[i] = a.String()
	}
	slices.Sort(names)
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO token_balances (address, amount) SELECT unnest($1::text[]), 0 ON CONFLICT DO NOTHING`,
		pq.Array(names)); err != nil {
		return nil, fmt.Errorf("ensure balances: %w", err)
	}
	rows, err := exec.QueryContext(ctx,
		`SELECT address, amount::text FROM token_balances WHERE address = ANY($1) ORDER BY address FOR UPDATE`,
		pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("lock balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr, raw string
		if err := rows.Scan(&addr, &raw); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		v, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		b.balances[id.Address(addr)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}

	slices.SortFunc(keys, func(x, y allowanceKey) int {
		if c := strings.Compare(x.owner.String(), y.owner.String()); c != 0 {
			return c
		}
		return strings.Compare(x.spender.String(), y.spender.String())
	})
	for _, k := range keys {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO token_allowances (owner, spender, amount) VALUES ($1, $2, 0) ON CONFLICT DO NOTHING`,
			k.owner.String(), k.spender.String()); err != nil {
			return nil, fmt.Errorf("ensure allowance: %w", err)
		}
		var raw string
		if err := exec.QueryRowContext(ctx,
			`SELECT amount::text FROM token_allowances WHERE owner = $1 AND spender = $2 FOR UPDATE`,
			k.owner.String(), k.spender.String()).Scan(&raw); err != nil {
			return nil, fmt.Errorf("lock allowance: %w", err)
		}
		v, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		b.allowances[k] = v
	}
	return b, nil
}

func (l *PostgresLedger) BalanceOf(ctx context.Context, addr id.Address) (uint64, error) {
	var raw string
	err := tx.ExecutorFrom(ctx, l.db).QueryRowContext(ctx,
		`SELECT amount::text FROM token_balances WHERE address = $1`, addr.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return parseAmount(raw)
}

func (l *PostgresLedger) Allowance(ctx context.Context, owner, spender id.Address) (uint64, error) {
	var raw string
	err := tx.ExecutorFrom(ctx, l.db).QueryRowContext(ctx,
		`SELECT amount::text FROM token_allowances WHERE owner = $1 AND spender = $2`,
		owner.String(), spender.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read allowance: %w", err)
	}
	return parseAmount(raw)
}

// Approve sets the allowance to amount, replacing any previous value.
func (l *PostgresLedger) Approve(ctx context.Context, owner, spender id.Address, amount uint64) error {
	_, err := tx.ExecutorFrom(ctx, l.db).ExecContext(ctx, `
		INSERT INTO token_allowances (owner, spender, amount)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount
	`, owner.String(), spender.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Mint(ctx context.Context, to id.Address, amount uint64) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "mint recipient is required")
	}
	return l.seq.RunInTx(ctx, func(txCtx context.Context) error {
		var raw string
		err := tx.ExecutorFrom(txCtx, l.db).QueryRowContext(txCtx, `
			INSERT INTO token_balances (address, amount)
			VALUES ($1, $2::numeric)
			ON CONFLICT (address) DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
			RETURNING amount::text
		`, to.String(), formatAmount(amount)).Scan(&raw)
		if err != nil {
			return fmt.Errorf("mint: %w", err)
		}
		// NUMERIC(20,0) holds values past uint64; returning here rolls the mint back.
		if _, err := parseAmount(raw); err != nil {
			return ErrBalanceOverflow
		}
		return nil
	})
}

func formatAmount(v uint64) string { return strconv.FormatUint(v, 10) }

func parseAmount(raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return v, nil
}
