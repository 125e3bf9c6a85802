package sentinel

import "errors"

// Sentinel errors for storage facts. Ledger stores return these (optionally
// wrapped) and services translate them into domain failures:
//   - ErrNotFound: row does not exist
//   - ErrAlreadyUsed: a unique key (identity number, document number, folder id) is taken
//   - ErrConflict: the row changed underneath the caller
//   - ErrInvalidState: row is in the wrong state for the requested operation
//   - ErrUnavailable: the store aborted the transaction (deadlock, serialization failure)
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
