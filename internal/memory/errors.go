package memory

import "errors"

// Admission and lookup failures. Callers match them with errors.Is; the
// returned errors carry the record id as context.
var (
	ErrTierMismatch       = errors.New("memory: record tier does not match this tier")
	ErrInvalidTier        = errors.New("memory: invalid tier")
	ErrUnsigned           = errors.New("memory: unsigned record rejected")
	ErrSignatureInvalid   = errors.New("memory: signature verification failed")
	ErrIntegrityViolation = errors.New("memory: integrity check failed")
	ErrExpiryInvalid      = errors.New("memory: expiry missing or not in the future")
	ErrNotFound           = errors.New("memory: record not found")
	ErrDuplicateID        = errors.New("memory: record id already present")
)
