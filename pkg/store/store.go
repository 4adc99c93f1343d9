// ABOUTME: Datastore owns the primary key->document map and its four
// ABOUTME: secondary indexes, the WAL session, and recovery on open.

package store

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/arlojs/nestdb/internal/logger"
	"github.com/arlojs/nestdb/internal/metrics"
	"github.com/arlojs/nestdb/pkg/document"
	"github.com/arlojs/nestdb/pkg/index"
	"github.com/arlojs/nestdb/pkg/record"
	"github.com/arlojs/nestdb/pkg/router"
	"github.com/arlojs/nestdb/pkg/shardmap"
	"github.com/arlojs/nestdb/pkg/walpage"
)

// state is the datastore's lifecycle stage. Only Ready accepts public
// operations.
type state int32

const (
	stateOpening state = iota
	stateRecovering
	stateReady
	stateClosed
)

// Datastore is a single embeddable collection of key/document pairs, with
// a unique hash index, a multi-valued tag index (also holding
// materialized views), an ordered range index, an inverted full-text
// index, an optional durable WAL, and an optional event router.
type Datastore[K comparable, D document.Document] struct {
	name  string
	opts  Options[K, D]
	codec Codec[K, D]

	collection *shardmap.Map[K, D]
	hash       *index.HashIndex[K]
	tag        *index.TagIndex[K]
	rng        *index.RangeIndex[K]
	inverted   *index.InvertedIndex[K]

	wal    *walpage.Manager
	router *router.Router[Event[K, D]]

	state   atomic.Int32
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Open creates or resumes a datastore. The WAL session is always opened,
// even for Memory stores — a prior Durable run may have left pages a
// later recovery or tool wants to read. Durable stores replay their WAL
// before accepting public operations.
func Open[K comparable, D document.Document](opts Options[K, D], codec Codec[K, D]) (*Datastore[K, D], error) {
	ds := &Datastore[K, D]{
		name:       opts.Name,
		opts:       opts,
		codec:      codec,
		collection: shardmap.New[K, D](opts.keyHash()),
		hash:       index.NewHashIndex[K](),
		tag:        index.NewTagIndex[K](),
		rng:        index.NewRangeIndex[K](),
		inverted:   index.NewInvertedIndex[K](),
		log:        logger.GetGlobalLogger().StoreLogger(opts.Name),
		metrics:    opts.Metrics,
	}
	ds.state.Store(int32(stateOpening))

	wal, err := walpage.Open(opts.toWalpageOptions())
	if err != nil {
		return nil, err
	}
	ds.wal = wal

	ds.router = router.New[Event[K, D]](router.Options{
		Store:       opts.Name,
		ReporterOff: opts.OffReporter,
		Metrics:     opts.Metrics,
	})

	if opts.StoreKind == Durable {
		ds.state.Store(int32(stateRecovering))
		records, err := ds.recover()
		ds.log.LogRecovery(records.pages, records.records, err)
		if ds.metrics != nil {
			ds.metrics.RecoveryRecordsTotal.WithLabelValues(opts.Name).Add(float64(records.records))
		}
		if err != nil {
			return nil, err
		}
	}

	ds.state.Store(int32(stateReady))
	return ds, nil
}

// guard rejects public mutations outside the Ready state, distinguishing
// a closed datastore from one still opening or recovering.
func (ds *Datastore[K, D]) guard() error {
	switch state(ds.state.Load()) {
	case stateReady:
		return nil
	case stateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

type recoveryStats struct {
	pages   int
	records int
}

// recover replays every WAL page in order, re-applying each record
// through the normal insert/remove paths with WAL writes suppressed.
func (ds *Datastore[K, D]) recover() (recoveryStats, error) {
	var stats recoveryStats

	for pageIndex := 1; ; pageIndex++ {
		pr, err := ds.wal.GetPage(pageIndex)
		if err == walpage.ErrEnd {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.pages++

		for {
			rec, err := pr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				pr.Close()
				return stats, err
			}
			if err := ds.replay(rec); err != nil {
				pr.Close()
				return stats, err
			}
			stats.records++
		}
		pr.Close()
	}
}

func (ds *Datastore[K, D]) replay(rec *record.Record) error {
	key, err := ds.codec.DecodeKey(rec.Key)
	if err != nil {
		return err
	}

	switch rec.Op {
	case record.OpInsert:
		doc, err := ds.codec.DecodeDoc(rec.Doc)
		if err != nil {
			return err
		}
		existing, replacing := ds.collection.Get(key)
		if err := ds.hash.Insert(key, doc.IndexKeys()); err != nil {
			return ErrDuplicate
		}
		if replacing {
			ds.clearReplaced(key, existing, doc)
		}
		ds.commitInsert(key, doc)
	case record.OpRemove:
		ds.applyRemove(key)
	}
	return nil
}

// Insert installs D at K. Replacing an existing document at K is an
// update: every index entry the old version installed and the new one
// does not claim again is removed, so no mutation ever leaves a stale
// hash key, tag, range value, view membership, or content word behind.
//
// Order of operations is a deliberate departure from the literal source
// behavior (which appends to the WAL before checking uniqueness, leaving
// a dead record on Duplicate that replay must treat as a no-op): nestdb
// checks the hash index first. A Duplicate never reaches the WAL at all,
// so every record the log holds corresponds to a mutation that actually
// took effect, and replay never needs special-case handling for index
// collisions.
func (ds *Datastore[K, D]) Insert(k K, d D) error {
	if err := ds.guard(); err != nil {
		return err
	}

	start := time.Now()

	existing, replacing := ds.collection.Get(k)

	if err := ds.hash.Insert(k, d.IndexKeys()); err != nil {
		ds.recordIndexOp("hash", "duplicate")
		ds.recordMutation("insert", false, start)
		return ErrDuplicate
	}
	ds.recordIndexOp("hash", "insert")

	if ds.opts.StoreKind == Durable {
		if err := ds.appendWAL(record.OpInsert, k, d); err != nil {
			ds.hash.Remove(d.IndexKeys())
			if replacing {
				ds.hash.Insert(k, existing.IndexKeys())
			}
			ds.recordMutation("insert", false, start)
			return err
		}
	}

	ds.dispatchEvent(Event[K, D]{Op: EventInsert, Key: k, Doc: d})
	if replacing {
		ds.clearReplaced(k, existing, d)
	}
	ds.commitInsert(k, d)

	ds.recordMutation("insert", true, start)
	ds.setCollectionSize()
	return nil
}

// clearReplaced removes the index entries the old version of k installed
// and the new document does not claim again. Hash keys shared by both
// versions stay installed throughout; tag, range, view, and content
// entries are removed wholesale here and re-created by commitInsert.
// Both the live Insert path and replay call this, keeping replayed index
// state identical to the state the original mutations produced.
func (ds *Datastore[K, D]) clearReplaced(k K, old, next D) {
	kept := make(map[string]struct{}, len(next.IndexKeys()))
	for _, s := range next.IndexKeys() {
		kept[s] = struct{}{}
	}
	var stale []string
	for _, s := range old.IndexKeys() {
		if _, ok := kept[s]; !ok {
			stale = append(stale, s)
		}
	}
	ds.hash.Remove(stale)
	ds.tag.Remove(k, old.Tags())
	ds.rng.Remove(k, old.RangeFields())
	if content := old.Content(); content != "" {
		ds.inverted.Remove(k, content)
	}
	if view := old.ViewName(); view != "" {
		ds.tag.RemoveFromView(view, k)
	}
}

// commitInsert performs everything beyond the hash-index guard: view,
// tag, and range installation, the collection write, and a
// fire-and-forget inverted-index update. Used by both Insert and replay,
// which runs it after re-establishing the hash-index guard itself.
func (ds *Datastore[K, D]) commitInsert(k K, d D) {
	if view := d.ViewName(); view != "" {
		ds.tag.InsertView(view, k)
	}

	if content := d.Content(); content != "" {
		ds.recordIndexOp("inverted", "insert")
		go ds.inverted.Insert(k, content)
	}

	ds.recordIndexOp("tag", "insert")
	ds.recordIndexOp("range", "insert")
	ds.tag.Insert(k, d.Tags())
	ds.rng.Insert(k, d.RangeFields())
	ds.collection.Set(k, d)
}

// Remove deletes K if present. Removing an absent key is a no-op that
// returns nil.
func (ds *Datastore[K, D]) Remove(k K) error {
	if err := ds.guard(); err != nil {
		return err
	}

	start := time.Now()

	existing, ok := ds.collection.Get(k)
	if !ok {
		return nil
	}

	if ds.opts.StoreKind == Durable {
		var zero D
		if err := ds.appendWAL(record.OpRemove, k, zero); err != nil {
			ds.recordMutation("remove", false, start)
			return err
		}
	}

	ds.dispatchEvent(Event[K, D]{Op: EventRemove, Key: k})

	ds.applyRemoveDoc(k, existing)
	ds.recordMutation("remove", true, start)
	ds.setCollectionSize()
	return nil
}

func (ds *Datastore[K, D]) applyRemove(k K) {
	existing, ok := ds.collection.Get(k)
	if !ok {
		return
	}
	ds.applyRemoveDoc(k, existing)
}

func (ds *Datastore[K, D]) applyRemoveDoc(k K, existing D) {
	ds.hash.Remove(existing.IndexKeys())
	ds.tag.Remove(k, existing.Tags())
	ds.rng.Remove(k, existing.RangeFields())
	if content := existing.Content(); content != "" {
		ds.inverted.Remove(k, content)
	}
	if view := existing.ViewName(); view != "" {
		ds.tag.RemoveFromView(view, k)
	}
	ds.collection.Delete(k)
}

func (ds *Datastore[K, D]) appendWAL(op record.Op, k K, d D) error {
	keyBytes, err := ds.codec.EncodeKey(k)
	if err != nil {
		return err
	}

	var docBytes []byte
	if op == record.OpInsert {
		docBytes, err = ds.codec.EncodeDoc(d)
		if err != nil {
			return err
		}
	}

	return ds.wal.Log(&record.Record{Op: op, Key: keyBytes, Doc: docBytes})
}

func (ds *Datastore[K, D]) dispatchEvent(ev Event[K, D]) {
	if err := ds.router.Dispatch(ev); err != nil {
		ds.log.Warn("event dispatch failed").Err(err).Send()
	}
}

func (ds *Datastore[K, D]) recordMutation(op string, ok bool, start time.Time) {
	dur := time.Since(start)
	ds.log.LogMutation(op, ds.opts.StoreKind == Durable, dur, nil)
	if ds.metrics != nil {
		ds.metrics.RecordMutation(ds.name, op, ok, dur)
	}
}

func (ds *Datastore[K, D]) setCollectionSize() {
	if ds.metrics != nil {
		ds.metrics.SetCollectionSize(ds.name, ds.collection.Len())
	}
}

func (ds *Datastore[K, D]) recordIndexOp(kind, status string) {
	if ds.metrics != nil {
		ds.metrics.RecordIndexOp(ds.name, kind, status)
	}
}

// Lookup returns the document stored at K, if any.
func (ds *Datastore[K, D]) Lookup(k K) (D, bool) {
	return ds.collection.Get(k)
}

// LookupByIndex follows the hash index from s to its key, then the
// collection from that key to its document.
func (ds *Datastore[K, D]) LookupByIndex(s string) (D, bool) {
	ds.recordIndexOp("hash", "lookup")
	var zero D
	k, ok := ds.hash.Lookup(s)
	if !ok {
		return zero, false
	}
	return ds.collection.Get(k)
}

// LookupByTag returns every document filed under tag.
func (ds *Datastore[K, D]) LookupByTag(tag string) []D {
	ds.recordIndexOp("tag", "lookup")
	return ds.gets(ds.tag.Lookup(tag))
}

// FetchView returns every document belonging to the named materialized
// view.
func (ds *Datastore[K, D]) FetchView(view string) []D {
	ds.recordIndexOp("tag", "lookup")
	return ds.gets(ds.tag.LookupView(view))
}

// Range returns every document with a RangeField value in the half-open
// interval [from, to) for the given field.
func (ds *Datastore[K, D]) Range(field, from, to string) []D {
	ds.recordIndexOp("range", "lookup")
	return ds.gets(ds.rng.Range(field, from, to))
}

// Search tokenizes text the same way as Content and returns the
// deduplicated union of matching documents (OR search, not AND).
func (ds *Datastore[K, D]) Search(text string) []D {
	ds.recordIndexOp("inverted", "lookup")
	return ds.gets(ds.inverted.Search(text))
}

// Gets returns the documents for every key in ks, skipping keys that are
// no longer present.
func (ds *Datastore[K, D]) Gets(ks []K) []D {
	return ds.gets(ks)
}

func (ds *Datastore[K, D]) gets(ks []K) []D {
	out := make([]D, 0, len(ks))
	for _, k := range ks {
		if d, ok := ds.collection.Get(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Iter calls fn for a snapshot of every (key, document) pair currently in
// the collection. See shardmap.Map.Iter for its consistency guarantees.
func (ds *Datastore[K, D]) Iter(fn func(K, D) bool) {
	ds.collection.Iter(fn)
}

// Subscribe registers ch to receive every future mutation Event. It fails
// with router.ErrReporterIsOff if the datastore was opened with
// OffReporter, or router.ErrAlreadyRegistered if ch is already a
// subscriber.
func (ds *Datastore[K, D]) Subscribe(ch chan Event[K, D]) error {
	return ds.router.Register(ch)
}

// Close stops the WAL worker and the event router. It does not clear the
// in-memory collection.
func (ds *Datastore[K, D]) Close() error {
	ds.state.Store(int32(stateClosed))
	ds.router.Close()
	return ds.wal.Close()
}
