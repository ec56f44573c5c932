package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Record store errors
	ErrRowNotSingle = errors.New("expected exactly one matching row")

	// Verification flow errors
	ErrNoIdentifiers = errors.New("no identifiers available for this user")
	ErrNotAdmin      = errors.New("admin access required")
	ErrNoSession     = errors.New("no active session")
)
