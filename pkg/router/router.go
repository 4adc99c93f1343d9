// ABOUTME: Multi-subscriber broadcast of mutation events, one worker
// ABOUTME: goroutine owning the subscriber list and dispatching serially.

package router

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/arlojs/nestdb/internal/logger"
	"github.com/arlojs/nestdb/internal/metrics"
)

// DefaultTimeout bounds every hop between a caller, the router's worker,
// and a subscriber's channel.
const DefaultTimeout = 5 * time.Second

// DefaultMaxInFlightDispatches bounds how many callers may be
// concurrently blocked inside Dispatch awaiting the worker's serial
// send-to-every-subscriber loop. Past this, Dispatch waits up to
// DefaultTimeout for a slot and then fails with ErrTimeout, instead of
// piling up unboundedly behind a slow subscriber.
const DefaultMaxInFlightDispatches = 1000

type registerReq[E any] struct {
	ch   chan E
	done chan error
}

type dispatchReq[E any] struct {
	event E
	done  chan error
}

// Router fans out events of type E to every registered subscriber, in
// registration order, from a single dedicated goroutine. A slow
// subscriber's channel slows the whole dispatch — head-of-line blocking
// is an accepted tradeoff, matching the single-task broadcast model this
// is ported from.
type Router[E any] struct {
	store string

	reporterOff bool

	registers   chan registerReq[E]
	dispatches  chan dispatchReq[E]
	dispatchSem *semaphore.Weighted

	closed chan struct{}
	done   chan struct{}

	log     *logger.Logger
	metrics *metrics.Metrics
}

// Options configures a Router.
type Options struct {
	// Store names the owning datastore, for logging and metric labels.
	Store string

	// ReporterOff disables dispatch and subscription entirely. The
	// router is still constructed (so a datastore always has one to
	// reference) but Register always fails with ErrReporterIsOff and
	// Dispatch is a cheap no-op, eliminating per-mutation clone and
	// channel-send overhead.
	ReporterOff bool

	Metrics *metrics.Metrics
}

// New creates a Router and launches its worker goroutine.
func New[E any](opts Options) *Router[E] {
	r := &Router[E]{
		store:       opts.Store,
		reporterOff: opts.ReporterOff,
		registers:   make(chan registerReq[E], 64),
		dispatches:  make(chan dispatchReq[E], 1024),
		dispatchSem: semaphore.NewWeighted(DefaultMaxInFlightDispatches),
		closed:      make(chan struct{}),
		done:        make(chan struct{}),
		log:         logger.GetGlobalLogger().WithFields(map[string]interface{}{"component": "router", "store": opts.Store}),
		metrics:     opts.Metrics,
	}
	go r.run()
	return r
}

// Register adds ch as a subscriber, rejected if an identical channel
// (by identity) is already registered, or if the reporter is off.
func (r *Router[E]) Register(ch chan E) error {
	if r.reporterOff {
		return ErrReporterIsOff
	}

	req := registerReq[E]{ch: ch, done: make(chan error, 1)}
	select {
	case r.registers <- req:
	case <-time.After(DefaultTimeout):
		return ErrTimeout
	case <-r.closed:
		return ErrClosed
	}

	select {
	case err := <-req.done:
		return err
	case <-r.closed:
		return ErrClosed
	}
}

// Dispatch broadcasts event to every registered subscriber in
// registration order. With the reporter off, this is a no-op. The
// number of callers concurrently blocked inside Dispatch is bounded by
// dispatchSem — past DefaultMaxInFlightDispatches, Dispatch waits up to
// DefaultTimeout for a slot and then fails with ErrTimeout rather than
// piling up behind a slow subscriber.
func (r *Router[E]) Dispatch(event E) error {
	if r.reporterOff {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := r.dispatchSem.Acquire(ctx, 1); err != nil {
		r.recordDispatch("timeout")
		return ErrTimeout
	}
	defer r.dispatchSem.Release(1)

	req := dispatchReq[E]{event: event, done: make(chan error, 1)}
	select {
	case r.dispatches <- req:
	case <-time.After(DefaultTimeout):
		r.recordDispatch("timeout")
		return ErrTimeout
	case <-r.closed:
		return ErrClosed
	}

	select {
	case err := <-req.done:
		return err
	case <-r.closed:
		return ErrClosed
	}
}

// Close stops the worker goroutine. Pending requests already queued are
// still processed before the worker exits.
func (r *Router[E]) Close() {
	select {
	case <-r.closed:
		return
	default:
		close(r.closed)
	}
	<-r.done
}

func (r *Router[E]) run() {
	defer close(r.done)

	var subscribers []chan E

	for {
		select {
		case req := <-r.registers:
			subscribers = r.handleRegister(subscribers, req)
		case req := <-r.dispatches:
			r.handleDispatch(subscribers, req)
		case <-r.closed:
			r.drainOnClose(subscribers)
			return
		}
	}
}

// drainOnClose services whatever is already queued so no pending caller
// hangs waiting on req.done after Close fires.
func (r *Router[E]) drainOnClose(subscribers []chan E) {
	for {
		select {
		case req := <-r.registers:
			subscribers = r.handleRegister(subscribers, req)
		case req := <-r.dispatches:
			r.handleDispatch(subscribers, req)
		default:
			return
		}
	}
}

func (r *Router[E]) handleRegister(subscribers []chan E, req registerReq[E]) []chan E {
	for _, existing := range subscribers {
		if sameChannel(existing, req.ch) {
			req.done <- ErrAlreadyRegistered
			return subscribers
		}
	}
	subscribers = append(subscribers, req.ch)
	req.done <- nil
	return subscribers
}

// handleDispatch sends event to every subscriber in registration order.
// A per-subscriber send failure (timeout or closed channel) is logged and
// swallowed — the rest of the list is still served, and the caller's
// Dispatch call still reports success, since consumers must not be able
// to affect a producer's correctness.
func (r *Router[E]) handleDispatch(subscribers []chan E, req dispatchReq[E]) {
	for _, sub := range subscribers {
		func() {
			defer func() {
				if recover() != nil {
					r.log.Warn("subscriber channel closed, dropping for this subscriber only").Send()
				}
			}()
			select {
			case sub <- req.event:
			case <-time.After(DefaultTimeout):
				r.log.Warn("subscriber send timed out, dropping for this subscriber only").Send()
			}
		}()
	}
	r.recordDispatch("ok")
	req.done <- nil
}

func (r *Router[E]) recordDispatch(status string) {
	if r.metrics != nil {
		r.metrics.RecordDispatch(r.store, status)
	}
}

// sameChannel reports whether a and b refer to the same underlying
// channel, mirroring Register's same-channel-identity dedup contract.
func sameChannel[E any](a, b chan E) bool {
	return a == b
}
