package db

import "errors"

var (
	// ErrDocumentNotFound is returned when no document has the requested id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnknownDriver is returned by Open for an unsupported DB_DRIVER.
	ErrUnknownDriver = errors.New("unknown database driver")
)
