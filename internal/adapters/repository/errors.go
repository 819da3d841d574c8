package repository

import "errors"

// Sentinel kinds for session lookups.
var (
	ErrNotFound  = errors.New("session not found")
	ErrEmptyUser = errors.New("empty user id")
)
