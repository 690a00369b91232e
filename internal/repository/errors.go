package repository

import "errors"

var (
	// ErrNotFound is returned when a record id does not exist in the active backend.
	ErrNotFound = errors.New("record not found")
	// ErrMissingCourse is returned when a discipline references a course that does not exist.
	ErrMissingCourse = errors.New("referenced course does not exist")
	// ErrDuplicateEmail is returned when registering an e-mail the registry already holds.
	ErrDuplicateEmail = errors.New("email already registered")
)
