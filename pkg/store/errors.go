package store

import "errors"

var (
	// ErrDuplicate is returned by Insert when one of the document's
	// index keys already claims a different key in the hash index.
	ErrDuplicate = errors.New("store: duplicate index key")

	// ErrNotReady is returned by Insert or Remove attempted before Open
	// has finished recovering.
	ErrNotReady = errors.New("store: datastore not ready")

	// ErrClosed is returned by Insert or Remove attempted after Close.
	ErrClosed = errors.New("store: datastore closed")
)
