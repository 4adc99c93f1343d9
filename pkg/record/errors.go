package record

import "errors"

var (
	// ErrCorrupted indicates a CRC32 mismatch on a decoded record.
	ErrCorrupted = errors.New("record: corrupted entry")

	// ErrTruncated indicates a record shorter than its declared header/length.
	ErrTruncated = errors.New("record: truncated entry")
)
