package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a document is not found.
	ErrNotFound = errors.New("document not found")

	// ErrExists is returned by Insert when a document with the same
	// identity key is already present. The allocator relies on this for
	// its uniqueness guarantee.
	ErrExists = errors.New("document already exists")

	// ErrNoOperator is returned when an update envelope contains no
	// $-prefixed operator.
	ErrNoOperator = errors.New("update contains no $ operator")

	// ErrBadUpdate is returned when an update operator is malformed.
	ErrBadUpdate = errors.New("malformed update")
)
