package dataset

import "errors"

var (
	ErrMissingColumn = errors.New("missing column")

	ErrDuplicateColumn = errors.New("duplicate column")

	ErrRowLength = errors.New("row length does not match header")

	ErrNoHeader = errors.New("csv header row is required")
)
