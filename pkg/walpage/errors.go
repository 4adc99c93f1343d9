package walpage

import "errors"

var (
	// ErrEnd is returned by GetPage when the requested page index does not
	// exist yet. It is an internal sentinel, not a user error: recovery
	// loops on it to know it has reached the end of the log.
	ErrEnd = errors.New("walpage: end of log")

	// ErrClosed is returned when Log is called after Close.
	ErrClosed = errors.New("walpage: manager closed")

	// ErrTimeout is returned when the worker did not answer an admitted
	// request within the bounded window. The record may still have been
	// written; the caller only knows it was not confirmed in time.
	ErrTimeout = errors.New("walpage: request timed out")

	// ErrFull is returned when the admission-control queue stayed
	// saturated for the whole submit window and the request was never
	// admitted.
	ErrFull = errors.New("walpage: request queue full")
)
