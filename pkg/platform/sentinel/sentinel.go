package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: unique key already taken
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing store or cache temporarily unreachable
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
