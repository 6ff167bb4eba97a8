package types

import "errors"

// Error kinds from the error-handling design. MBHM invariant
// violations are panicked with one of these wrapped by pkg/errors at
// the call site; ErrRollbackBelowDurable is returned, since rewind is
// a recoverable, pacemaker-triggered event.
var (
	ErrInvalidGenesis      = errors.New("invalid genesis insert")
	ErrBlockOutOfOrder     = errors.New("block out of order")
	ErrCannotFinalizePrior = errors.New("cannot finalize prior to last committed")
	ErrRollbackBelowDurable = errors.New("rollback below persisted round")
	ErrMissingHash         = errors.New("missing hash for expected key")
	ErrCorruptDOS          = errors.New("durable store key exceeds persisted round")
	ErrDurability          = errors.New("durable store commit failed")
)
