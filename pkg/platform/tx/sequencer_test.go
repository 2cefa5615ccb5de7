package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "arisan/pkg/domain-errors"
)

func TestSerial_NestedCallsJoinOuterUnit(t *testing.T) {
	seq := NewSerial()
	calls := 0

	err := seq.RunInTx(context.Background(), func(txCtx context.Context) error {
		calls++
		return seq.RunInTx(txCtx, func(context.Context) error {
			calls++
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSerial_PropagatesError(t *testing.T) {
	seq := NewSerial()
	boom := errors.New("boom")

	err := seq.RunInTx(context.Background(), func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
}

func TestSerial_RejectsCancelledContext(t *testing.T) {
	seq := NewSerial()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := seq.RunInTx(ctx, func(context.Context) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

// Operations must never interleave: the read-modify-write below loses updates
// if two closures run concurrently.
func TestSerial_OperationsDoNotInterleave(t *testing.T) {
	seq := NewSerial()
	counter := 0
	const workers = 50

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = seq.RunInTx(context.Background(), func(context.Context) error {
				v := counter
				v++
				counter = v
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestSerial_RollbackReplaysUndoInReverse(t *testing.T) {
	seq := NewSerial()
	var undone []string

	err := seq.RunInTx(context.Background(), func(txCtx context.Context) error {
		OnRollback(txCtx, func() { undone = append(undone, "first") })
		return seq.RunInTx(txCtx, func(inner context.Context) error {
			OnRollback(inner, func() { undone = append(undone, "second") })
			return errors.New("boom")
		})
	})

	require.Error(t, err)
	assert.Equal(t, []string{"second", "first"}, undone)
}

func TestSerial_CommitDropsUndo(t *testing.T) {
	seq := NewSerial()
	undone := false

	err := seq.RunInTx(context.Background(), func(txCtx context.Context) error {
		OnRollback(txCtx, func() { undone = true })
		return nil
	})

	require.NoError(t, err)
	assert.False(t, undone)
}

func TestSerial_PanicReplaysUndo(t *testing.T) {
	seq := NewSerial()
	undone := false

	assert.Panics(t, func() {
		_ = seq.RunInTx(context.Background(), func(txCtx context.Context) error {
			OnRollback(txCtx, func() { undone = true })
			panic("boom")
		})
	})
	assert.True(t, undone)
}

func TestOnRollback_OutsideUnitIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		OnRollback(context.Background(), func() { t.Fatal("must not run") })
	})
}
