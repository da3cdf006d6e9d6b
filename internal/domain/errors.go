package domain

import "errors"

// Sentinel errors wrapped by lower layers with %w so callers can classify
// outcomes without string matching.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrConflict     = errors.New("conflict")
)
