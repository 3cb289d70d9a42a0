package lockmgr

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Transaction Outcomes
// --------------------------------------------------------------------------

// Outcome describes how a transaction was concluded. It is delivered exactly
// once on the channel returned by IOwner.Watch, written by whichever actor
// ended the transaction. Forced terminations are never signalled by raising
// on a background task's own execution context, the original acquirer (or its
// supervisor) observes them through this channel.
type Outcome uint8

const (
	// OutcomeReleased means the holder ended the transaction normally.
	OutcomeReleased Outcome = iota + 1

	// OutcomeTimedOut means the max-duration guard force-ended the
	// transaction because it overstayed the configured maximum.
	OutcomeTimedOut

	// OutcomeAborted means the deadlock resolver force-ended the transaction
	// to break a wait-for cycle.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReleased:
		return "Released"
	case OutcomeTimedOut:
		return "TimedOut"
	case OutcomeAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Err maps a forced outcome to its sentinel error. OutcomeReleased maps to
// nil since a normal release is not a failure.
func (o Outcome) Err() error {
	switch o {
	case OutcomeTimedOut:
		return ErrTxnTimedOut
	case OutcomeAborted:
		return ErrTxnAborted
	default:
		return nil
	}
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// Sentinel errors for the two forced termination conditions. They are
// distinguishable from each other and from a normal release via errors.Is.
var (
	ErrTxnAborted    = errors.New("lockmgr: transaction aborted to break a deadlock")
	ErrTxnTimedOut   = errors.New("lockmgr: transaction exceeded the max lock duration")
	ErrManagerClosed = errors.New("lockmgr: manager is closed")
)

// RetCode classifies lockmgr errors at the API boundary.
type RetCode int

const (
	RetCInternalError RetCode = iota + 1
	RetCManagerClosed
	RetCUnsupportedOperation
)

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCManagerClosed:
		errorCode = "ManagerClosed"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("LockManagerError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new lockmgr error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}
