package tx

import "context"

type journalKey struct{}

// journal collects undo steps for writes that a database rollback cannot reach.
type journal struct {
	undo []func()
}

func withJournal(ctx context.Context) (context.Context, *journal) {
	j := &journal{}
	return context.WithValue(ctx, journalKey{}, j), j
}

// OnRollback registers undo to run if the enclosing unit fails. Undo steps run
// in reverse order of registration. Outside a unit it does nothing, so a write
// made without a sequencer is final.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
