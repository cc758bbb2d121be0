package repository

import "errors"

var (
	// ErrExportNotFound is returned when an export job cannot be found.
	ErrExportNotFound = errors.New("export job not found")

	// ErrDuplicateExport is returned when attempting to create an export job that already exists.
	ErrDuplicateExport = errors.New("export job already exists")

	// ErrObjectNotFound is returned when an object does not exist in storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
