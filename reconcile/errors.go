package reconcile

import "errors"

var (
	// ErrNotFound covers both a missing loan and a loan the caller may not read.
	ErrNotFound = errors.New("loan not found")
	// ErrInputInvalid means stored loan inputs cannot support a local computation.
	ErrInputInvalid = errors.New("invalid loan input")
)
