package router

import "errors"

var (
	// ErrTimeout is returned when a register or dispatch request could
	// not be handed to the router's worker, or a Dispatch caller could not
	// get an in-flight slot, within the bounded timeout. A subscriber send
	// that times out is logged by the worker and does not surface here.
	ErrTimeout = errors.New("router: timeout")

	// ErrClosed is returned when the router has been closed.
	ErrClosed = errors.New("router: closed")

	// ErrAlreadyRegistered is returned by Register when the given
	// channel (by identity) is already a subscriber.
	ErrAlreadyRegistered = errors.New("router: channel already registered")

	// ErrReporterIsOff is returned by Register when the router was
	// constructed with reporting disabled.
	ErrReporterIsOff = errors.New("router: reporter is off")
)
