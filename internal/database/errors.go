package database

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDatabaseNotExist is returned by Open when the file is missing and
	// creation is disabled.
	ErrDatabaseNotExist = errors.New("database does not exist")

	// ErrNilPage is returned when a nil page is saved.
	ErrNilPage = errors.New("page must not be nil")
)
