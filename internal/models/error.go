package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrPasswordManagedByProvider = errors.New("PASSWORD_MANAGED_BY_PROVIDER")

	// ErrUpstream is returned when the external authorization endpoint fails.
	ErrUpstream = errors.New("upstream authorization failed")
)
