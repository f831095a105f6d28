package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrInvalidInput indicates a write was rejected before reaching storage.
	ErrInvalidInput = errors.New("repository: invalid input")
)
