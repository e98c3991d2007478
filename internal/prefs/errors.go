package prefs

import "errors"

var (
	// ErrReservedPrefix is returned when a string value begins with one of
	// the magic prefixes. Nothing is written.
	ErrReservedPrefix = errors.New("string clashes with a reserved identifier prefix")

	// ErrIO is returned when a list value cannot be (de)serialized, or when a
	// legacy entry could not be migrated.
	ErrIO = errors.New("preferences i/o error")

	// ErrCommitFailed is returned when the host store did not persist a batch.
	ErrCommitFailed = errors.New("commit failed")

	// ErrInvalidKey is returned for an empty key or one equal to the namespace.
	ErrInvalidKey = errors.New("invalid preference key")

	// ErrNonFinite is returned when a double is NaN or infinite. Such values
	// cannot be carried over the JSON surfaces, so they are never written.
	ErrNonFinite = errors.New("double must be finite")
)
