package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	dErrors "arisan/pkg/domain-errors"
)

// Sequencer applies each public operation as one indivisible unit relative to
// all others. fn either completes and its effects become visible, or returns an
// error and none of them do. Nested calls with the context handed to fn join the
// outer unit.
type Sequencer interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// defaultTxTimeout bounds how long an operation may wait for and hold the sequencer.
const defaultTxTimeout = 5 * time.Second

type serialKey struct{}

// Serial is the in-memory sequencer: a single process-wide lock that totally
// orders operations in submission order. Stores used under Serial register an
// undo step with OnRollback for every write; a failing fn replays them before
// the lock is released.
type Serial struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewSerial constructs an in-memory sequencer.
func NewSerial() *Serial {
	return &Serial{timeout: defaultTxTimeout}
}

func (s *Serial) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) (err error) {
	if owner, ok := ctx.Value(serialKey{}).(*Serial); ok && owner == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	txCtx, j := withJournal(context.WithValue(ctx, serialKey{}, s))
	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
		if err != nil {
			j.rollback()
		}
	}()
	return fn(txCtx)
}

// SQL runs each operation in a database transaction. Stores pick the
// transaction up from context via ExecutorFrom, so a rollback discards every
// write made by fn, including token movements and outbox rows. Undo steps
// registered with OnRollback run when the transaction does not commit.
type SQL struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewSQL constructs a database-backed sequencer.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}}
}

func (s *SQL) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) (err error) {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := s.db.BeginTx(ctx, s.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txCtx, j := withJournal(WithTx(ctx, sqlTx))
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			j.rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			j.rollback()
		}
	}()

	if err = fn(txCtx); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
