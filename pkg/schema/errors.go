package schema

import "errors"

var (
	// ErrDatastoreAlreadyExist is returned by WithDatastore when the
	// requested Name is already taken, or a datastore keyed by the same
	// (K, D) type pair is already registered — a Schema holds at most
	// one datastore per type pair, mirroring the AnyMap-backed registry
	// this is ported from.
	ErrDatastoreAlreadyExist = errors.New("schema: datastore already exists")

	// ErrDataStoreNotFound is returned by a Handle operation when no
	// datastore registered under the (K, D) type pair its type
	// parameters select.
	ErrDataStoreNotFound = errors.New("schema: datastore not found")

	// ErrAlreadyBuilt is returned by WithDatastore once Build has been
	// called; a Schema is immutable after Build.
	ErrAlreadyBuilt = errors.New("schema: already built")

	// ErrUnimplemented is reserved for dispatch against a registered
	// engine kind this Handle does not know how to forward to — there
	// is none in the core (every registered entry is a store.Datastore),
	// but the sentinel exists for hosts that extend Handle with other
	// engines (vector, expiring cache) outside this package's scope.
	ErrUnimplemented = errors.New("schema: unimplemented operation")
)
