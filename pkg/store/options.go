package store

import (
	"github.com/arlojs/nestdb/internal/metrics"
	"github.com/arlojs/nestdb/pkg/shardmap"
	"github.com/arlojs/nestdb/pkg/walpage"
)

// Kind selects whether a datastore persists and replays its WAL.
type Kind int

const (
	// Memory stores skip recovery on open, though a WAL session is
	// still opened underneath (a prior durable run may have left pages
	// a later tool wants to read).
	Memory Kind = iota

	// Durable stores replay their WAL on open and append every
	// mutation to it.
	Durable
)

// Options configures Open.
type Options[K comparable, D any] struct {
	// Path is the parent directory containing the datastore's folder.
	Path string

	// Name is the folder name inside Path, and the label used on
	// metrics and logs. Uniqueness across a process is the caller's
	// responsibility (a Schema enforces it across its datastores).
	Name string

	// PageSize bounds records per WAL page; clamped to walpage.MinPageSize.
	PageSize int

	// StoreKind selects Memory or Durable behavior.
	StoreKind Kind

	// OffReporter disables the event router: Subscribe always fails
	// and Insert/Remove skip dispatch entirely.
	OffReporter bool

	// KeyHash reduces a key to a shard selector for the primary
	// collection. Nil selects shardmap.HashAny, which hashes the key's
	// default string formatting; shardmap.HashString is cheaper for
	// string keys.
	KeyHash func(K) uint64

	Metrics *metrics.Metrics
}

func (o *Options[K, D]) toWalpageOptions() walpage.Options {
	return walpage.Options{
		Root:     o.Path,
		Name:     o.Name,
		PageSize: o.PageSize,
		Metrics:  o.Metrics,
	}
}

func (o *Options[K, D]) keyHash() shardmap.Hasher[K] {
	if o.KeyHash != nil {
		return o.KeyHash
	}
	return shardmap.HashAny[K]
}
