// ABOUTME: Type-keyed registry composing many datastores behind one
// ABOUTME: handle — at most one datastore per (K, D) type pair.

package schema

import (
	"reflect"
	"sync"

	"github.com/arlojs/nestdb/pkg/document"
	"github.com/arlojs/nestdb/pkg/store"
)

// typeKey identifies a datastore by the Go types of its key and document,
// the Go analogue of the AnyMap-keyed registry this is ported from: a
// Schema holds at most one datastore per distinct (K, D) pair.
type typeKey struct {
	k, d reflect.Type
}

func typeKeyOf[K comparable, D document.Document]() typeKey {
	var k K
	var d D
	return typeKey{k: reflect.TypeOf(&k).Elem(), d: reflect.TypeOf(&d).Elem()}
}

// Schema is a builder that installs datastores one at a time, each under
// a unique name and a unique (K, D) type pair, then freezes into an
// immutable Handle.
type Schema struct {
	mu     sync.Mutex
	built  bool
	names  map[string]struct{}
	stores map[typeKey]any
}

// New creates an empty Schema.
func New() *Schema {
	return &Schema{
		names:  make(map[string]struct{}),
		stores: make(map[typeKey]any),
	}
}

// WithDatastore opens a datastore under opts and installs it in s, unless
// opts.Name is already taken or a datastore of the same (K, D) type pair
// is already registered — either case returns ErrDatastoreAlreadyExist
// without opening anything. Returns ErrAlreadyBuilt once Build has run.
func WithDatastore[K comparable, D document.Document](s *Schema, opts store.Options[K, D], codec store.Codec[K, D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return ErrAlreadyBuilt
	}
	if _, ok := s.names[opts.Name]; ok {
		return ErrDatastoreAlreadyExist
	}

	tk := typeKeyOf[K, D]()
	if _, ok := s.stores[tk]; ok {
		return ErrDatastoreAlreadyExist
	}

	ds, err := store.Open(opts, codec)
	if err != nil {
		return err
	}

	s.names[opts.Name] = struct{}{}
	s.stores[tk] = ds
	return nil
}

// Build freezes s into an immutable Handle. s may not be used again via
// WithDatastore afterwards.
func (s *Schema) Build() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.built = true

	stores := make(map[typeKey]any, len(s.stores))
	for k, v := range s.stores {
		stores[k] = v
	}
	return &Handle{stores: stores}
}

// Handle exposes the datastore API generically over every datastore a
// Schema installed: each package-level operation (Insert, Lookup, ...)
// looks up its datastore by the (K, D) type parameters the caller
// supplies and forwards to it. A type pair with no registered datastore
// yields ErrDataStoreNotFound.
type Handle struct {
	stores map[typeKey]any
}

type closer interface {
	Close() error
}

// Close closes every datastore the Handle holds, collecting (not
// stopping at) the first error.
func (h *Handle) Close() error {
	var first error
	for _, v := range h.stores {
		if c, ok := v.(closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func datastoreFor[K comparable, D document.Document](h *Handle) (*store.Datastore[K, D], error) {
	v, ok := h.stores[typeKeyOf[K, D]()]
	if !ok {
		return nil, ErrDataStoreNotFound
	}
	ds, ok := v.(*store.Datastore[K, D])
	if !ok {
		return nil, ErrDataStoreNotFound
	}
	return ds, nil
}

// Insert forwards to the (K, D)-typed datastore's Insert.
func Insert[K comparable, D document.Document](h *Handle, k K, d D) error {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return err
	}
	return ds.Insert(k, d)
}

// Remove forwards to the (K, D)-typed datastore's Remove.
func Remove[K comparable, D document.Document](h *Handle, k K) error {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return err
	}
	return ds.Remove(k)
}

// Lookup forwards to the (K, D)-typed datastore's Lookup.
func Lookup[K comparable, D document.Document](h *Handle, k K) (D, bool, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		var zero D
		return zero, false, err
	}
	d, ok := ds.Lookup(k)
	return d, ok, nil
}

// LookupByIndex forwards to the (K, D)-typed datastore's LookupByIndex.
func LookupByIndex[K comparable, D document.Document](h *Handle, s string) (D, bool, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		var zero D
		return zero, false, err
	}
	d, ok := ds.LookupByIndex(s)
	return d, ok, nil
}

// LookupByTag forwards to the (K, D)-typed datastore's LookupByTag.
func LookupByTag[K comparable, D document.Document](h *Handle, tag string) ([]D, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return nil, err
	}
	return ds.LookupByTag(tag), nil
}

// FetchView forwards to the (K, D)-typed datastore's FetchView.
func FetchView[K comparable, D document.Document](h *Handle, view string) ([]D, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return nil, err
	}
	return ds.FetchView(view), nil
}

// Range forwards to the (K, D)-typed datastore's Range.
func Range[K comparable, D document.Document](h *Handle, field, from, to string) ([]D, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return nil, err
	}
	return ds.Range(field, from, to), nil
}

// Search forwards to the (K, D)-typed datastore's Search.
func Search[K comparable, D document.Document](h *Handle, text string) ([]D, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return nil, err
	}
	return ds.Search(text), nil
}

// Gets forwards to the (K, D)-typed datastore's Gets.
func Gets[K comparable, D document.Document](h *Handle, ks []K) ([]D, error) {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return nil, err
	}
	return ds.Gets(ks), nil
}

// Iter forwards to the (K, D)-typed datastore's Iter.
func Iter[K comparable, D document.Document](h *Handle, fn func(K, D) bool) error {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return err
	}
	ds.Iter(fn)
	return nil
}

// Subscribe forwards to the (K, D)-typed datastore's Subscribe.
func Subscribe[K comparable, D document.Document](h *Handle, ch chan store.Event[K, D]) error {
	ds, err := datastoreFor[K, D](h)
	if err != nil {
		return err
	}
	return ds.Subscribe(ch)
}
