package wal

import "errors"

// Sentinel errors wrapped by FatalError values. Compare with errors.Is
// against a recovered FatalError's Unwrap() result.
var (
	ErrInvalidParams          = errors.New("invalid params")
	ErrHeaderTooLarge         = errors.New("header does not fit in one block")
	ErrShortBlock             = errors.New("block buffer shorter than BSIZE")
	ErrNotInTransaction       = errors.New("log_write called outside a transaction")
	ErrWriteWhileCommitting   = errors.New("log_write called while committing")
	ErrLogFull                = errors.New("transaction exceeds LOGSIZE or log region size")
	ErrOutstandingNegative    = errors.New("end called without a matching begin")
	ErrAlreadyCommitting      = errors.New("end observed committing already true")
	ErrBlockOutOfRange        = errors.New("block number outside the log region")
)

// FatalError is the panic value raised for every condition this design
// classifies as fatal: invariant violations, configuration errors, and
// underlying block I/O failures. The log API never returns these as errors
// from Init/Begin/End/LogWrite; callers that want to observe them (tests, or
// a supervisor process deciding whether to remount) must recover the panic.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return "wal: fatal in " + e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// fatal raises a FatalError. Every call site corresponds to either an
// invariant violation or a durability failure — both are fatal in this
// design, there is no recoverable path.
func fatal(op string, err error) {
	panic(&FatalError{Op: op, Err: err})
}
