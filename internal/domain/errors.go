package domain

import "errors"

// Error categories surfaced to clients. Concrete errors elsewhere wrap one of
// these with %w so the transport layer can map them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
