package services

import "errors"

// Sentinel errors for the service layer. Handlers translate these into
// stable HTTP status codes with errors.Is.
var (
	// ErrNotFound covers both a missing record and a record owned by
	// someone else; the two cases must stay indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists signals a duplicate email at registration.
	ErrAlreadyExists = errors.New("already exists")
)
