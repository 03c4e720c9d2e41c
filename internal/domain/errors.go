package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSequenceViolation = errors.New("floors must be unlocked sequentially")
	ErrUnknownFloor      = errors.New("unknown floor")
	ErrFloorLocked       = errors.New("floor is locked")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSelfSteal         = errors.New("cannot steal from yourself")
	ErrUnknownTask       = errors.New("unknown task")
	ErrTaskCompleted     = errors.New("task already completed")
	ErrDuplicateRequest  = errors.New("duplicate request")

	// Both are still ErrInsufficientFunds for errors.Is.
	ErrInsufficientBalance = fmt.Errorf("%w: balance", ErrInsufficientFunds)
	ErrInsufficientFee     = fmt.Errorf("%w: fee", ErrInsufficientFunds)

	// ErrConflict means a guard saw state that changed since it was read.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrTransient is retryable (serialization failure, lost connection).
	ErrTransient = errors.New("transient store error")
)

// Message returns the short user-facing text for an error category.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "User not found."
	case errors.Is(err, ErrSequenceViolation):
		return "You must unlock floors sequentially."
	case errors.Is(err, ErrUnknownFloor):
		return "Floor not found."
	case errors.Is(err, ErrFloorLocked):
		return "Floor is locked."
	case errors.Is(err, ErrInsufficientFee):
		return "Not enough diamonds for withdrawal fee!"
	case errors.Is(err, ErrInsufficientBalance):
		return "Not enough TON balance!"
	case errors.Is(err, ErrInsufficientFunds):
		return "Not enough diamonds!"
	case errors.Is(err, ErrSelfSteal):
		return "You cannot steal from yourself."
	case errors.Is(err, ErrUnknownTask):
		return "Task not found!"
	case errors.Is(err, ErrTaskCompleted):
		return "Task already completed!"
	case errors.Is(err, ErrDuplicateRequest):
		return "Request already processed."
	case errors.Is(err, ErrInvalidInput):
		return "Invalid request."
	case errors.Is(err, ErrTransient), errors.Is(err, ErrConflict):
		return "Server is busy, please try again."
	default:
		return "Server error"
	}
}
