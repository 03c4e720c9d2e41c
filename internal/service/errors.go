package service

import (
	"errors"

	"ton_miner/internal/domain"
)

// isValidationError reports caller mistakes and business rejections, which are
// returned as-is without an error log.
func isValidationError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrSequenceViolation,
		domain.ErrUnknownFloor,
		domain.ErrFloorLocked,
		domain.ErrInsufficientFunds,
		domain.ErrInvalidInput,
		domain.ErrSelfSteal,
		domain.ErrUnknownTask,
		domain.ErrTaskCompleted,
		domain.ErrDuplicateRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
