package domain

import "errors"

// Sentinel errors shared across the engine. Callers match them with
// errors.Is after unwrapping.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a dictionary mutation lost a race with a
	// concurrent edit or delete. The operation left no dangling state and
	// is safe to retry.
	ErrConflict = errors.New("conflicting concurrent modification")

	// ErrInvalidWeight indicates a weight outside the 0-3 range.
	ErrInvalidWeight = errors.New("weight must be between 0 and 3")

	// ErrInvalidStrength indicates an unknown strength tier.
	ErrInvalidStrength = errors.New("strength must be strong or weak")

	// ErrNoUserStorage indicates the user has no storage overlay yet.
	ErrNoUserStorage = errors.New("user storage does not exist")
)
