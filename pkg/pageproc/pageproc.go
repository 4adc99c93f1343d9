// ABOUTME: Offline rewrite of a WAL directory's pages into a second
// ABOUTME: directory — schema migration, backup, and vacuum compaction.

package pageproc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/arlojs/nestdb/internal/logger"
	"github.com/arlojs/nestdb/internal/metrics"
	"github.com/arlojs/nestdb/pkg/record"
	"github.com/arlojs/nestdb/pkg/store"
	"github.com/arlojs/nestdb/pkg/walpage"
)

// Sync selects where a Process run writes its transformed pages.
type Sync struct {
	overwrite bool
	destName  string
}

// Overwrite writes transformed pages back into the source directory: each
// source page is renamed aside to an rpage-*.LOG sibling, read from
// there, and the result written under the original page name.
func Overwrite() Sync {
	return Sync{overwrite: true}
}

// To writes transformed pages into a distinct sibling directory destName,
// leaving the source untouched.
func To(destName string) Sync {
	return Sync{destName: destName}
}

func (s Sync) name(sourceName string) string {
	if s.overwrite {
		return sourceName
	}
	return s.destName
}

// Rec is one logical WAL record, decoded with Options.OldCodec and ready
// for Options.Transform to map to the new key/document types.
type Rec[K comparable, D any] struct {
	Op  record.Op
	Key K
	Doc D // zero for Op == record.OpRemove
}

// Options configures a single Process run. OK/OD are the key/document
// types the source WAL was written with; NK/ND are the types the
// destination WAL is written with — identical to OK/OD for a pure
// vacuum or backup, different for a schema migration.
type Options[OK comparable, OD any, NK comparable, ND any] struct {
	// Root is the parent directory containing SourceName (and, for
	// Sync=To, the destination directory).
	Root string

	// SourceName is the datastore directory to read from.
	SourceName string

	// PageSize must match the page size the source WAL was written
	// with; clamped up to walpage.MinPageSize like any other Options.
	PageSize int

	Sync Sync

	// Vacuum collapses multiple records with the same (op, destination
	// key) pair within a page into the last one seen, dropping dead
	// records. An insert and a remove of the same key are both kept.
	Vacuum bool

	OldCodec store.Codec[OK, OD]
	NewCodec store.Codec[NK, ND]

	// Transform maps one decoded old-format record to a new-format
	// record. The identity transform (used by Backup) just renames the
	// type parameters without changing any value.
	Transform func(Rec[OK, OD]) Rec[NK, ND]

	Metrics *metrics.Metrics

	// Job labels this run's metrics and log lines (e.g. "migrate-v2",
	// "nightly-backup"). Defaults to SourceName.
	Job string
}

func (o *Options[OK, OD, NK, ND]) pageSize() int {
	if o.PageSize < walpage.MinPageSize {
		return walpage.MinPageSize
	}
	return o.PageSize
}

func (o *Options[OK, OD, NK, ND]) job() string {
	if o.Job != "" {
		return o.Job
	}
	return o.SourceName
}

// vacKey identifies a destination record for vacuum collapsing: the
// spec's "(op_type, key)" pair. Later entries for the same key overwrite
// earlier ones, keeping only the final state observed for that key
// within the page.
type vacKey[NK comparable] struct {
	op  record.Op
	key NK
}

type vacEntry[NK comparable, ND any] struct {
	seq int
	rec Rec[NK, ND]
}

// Process runs one migration/backup/vacuum pass over every page in
// Options.SourceName, in page order. For Sync=Overwrite each source page
// is renamed aside to an rpage-*.LOG sibling before being read, so a
// crash mid-page leaves the original page recoverable; for Sync=To the
// source is read in place and never touched. Migration is expected to run before any datastore opens the
// destination directory — Process never itself opens a store.Datastore.
func Process[OK comparable, OD any, NK comparable, ND any](opts Options[OK, OD, NK, ND]) error {
	pageSize := opts.pageSize()
	log := logger.GetGlobalLogger().PageProcLogger(opts.job())

	sourceDir := filepath.Join(opts.Root, opts.SourceName)
	if fi, err := os.Stat(sourceDir); err != nil || !fi.IsDir() {
		return ErrSourceNotExist
	}

	destName := opts.Sync.name(opts.SourceName)
	destDir := filepath.Join(opts.Root, destName)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrDestCreate, err)
	}

	for pageIndex := 1; ; pageIndex++ {
		sourcePath := walpage.PageFileName(opts.Root, opts.SourceName, pageSize, pageIndex)
		if _, err := os.Stat(sourcePath); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		records, vacuumed, err := processPage(opts, pageSize, pageIndex, sourcePath, destName)
		if opts.Metrics != nil {
			opts.Metrics.RecordPageProcessRecords(opts.job(), err == nil, records)
		}
		log.LogPageProcess(pageIndex, records, vacuumed, err)
		if err != nil {
			return err
		}
	}
}

// processPage transforms a single page, returning the number of records
// written to the destination and, under Vacuum, how many dead records
// were dropped.
func processPage[OK comparable, OD any, NK comparable, ND any](
	opts Options[OK, OD, NK, ND], pageSize, pageIndex int, sourcePath, destName string,
) (records int, vacuumed int, err error) {
	sourceReadPath := sourcePath
	if opts.Sync.overwrite {
		rpagePath := walpage.RPageFileName(opts.Root, opts.SourceName, pageSize, pageIndex)
		if err := os.Rename(sourcePath, rpagePath); err != nil {
			return 0, 0, fmt.Errorf("pageproc: rename source page %d: %w", pageIndex, err)
		}
		sourceReadPath = rpagePath
	}

	destPath := walpage.PageFileName(opts.Root, destName, pageSize, pageIndex)

	restore := func(cause error) error {
		restored := true
		if opts.Sync.overwrite {
			os.Remove(destPath)
			if err := os.Rename(sourceReadPath, sourcePath); err != nil {
				restored = false
			}
		}
		return &RecoverableError{Page: pageIndex, Restored: restored, Err: cause}
	}

	sr, err := walpage.OpenPageFileAt(sourceReadPath)
	if err != nil {
		return 0, 0, restore(err)
	}
	defer sr.Close()

	dw, err := walpage.CreatePageFileForAppend(destPath)
	if err != nil {
		return 0, 0, restore(err)
	}

	var stash map[vacKey[NK]]vacEntry[NK, ND]
	if opts.Vacuum {
		stash = make(map[vacKey[NK]]vacEntry[NK, ND])
	}

	seq := 0
	for {
		raw, nerr := sr.Next()
		if nerr == io.EOF {
			break
		}
		if nerr != nil {
			dw.Close()
			return 0, 0, restore(nerr)
		}

		oldKey, nerr := opts.OldCodec.DecodeKey(raw.Key)
		if nerr != nil {
			dw.Close()
			return 0, 0, restore(nerr)
		}

		var oldDoc OD
		if raw.Op == record.OpInsert {
			oldDoc, nerr = opts.OldCodec.DecodeDoc(raw.Doc)
			if nerr != nil {
				dw.Close()
				return 0, 0, restore(nerr)
			}
		}

		newRec := opts.Transform(Rec[OK, OD]{Op: raw.Op, Key: oldKey, Doc: oldDoc})

		if opts.Vacuum {
			k := vacKey[NK]{op: newRec.Op, key: newRec.Key}
			if _, existed := stash[k]; existed {
				vacuumed++
			}
			stash[k] = vacEntry[NK, ND]{seq: seq, rec: newRec}
			seq++
			continue
		}

		if werr := writeRec(dw, opts.NewCodec, newRec); werr != nil {
			dw.Close()
			return 0, 0, restore(werr)
		}
		records++
	}

	if opts.Vacuum {
		entries := make([]vacEntry[NK, ND], 0, len(stash))
		for _, e := range stash {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

		for _, e := range entries {
			if werr := writeRec(dw, opts.NewCodec, e.rec); werr != nil {
				dw.Close()
				return 0, 0, restore(werr)
			}
			records++
		}
	}

	if ferr := dw.Flush(); ferr != nil {
		dw.Close()
		return records, vacuumed, restore(ferr)
	}
	dw.Close()

	if opts.Sync.overwrite {
		os.Remove(sourceReadPath)
	}
	return records, vacuumed, nil
}

func writeRec[NK comparable, ND any](dw *walpage.PageWriter, codec store.Codec[NK, ND], r Rec[NK, ND]) error {
	keyBytes, err := codec.EncodeKey(r.Key)
	if err != nil {
		return err
	}

	var docBytes []byte
	if r.Op == record.OpInsert {
		docBytes, err = codec.EncodeDoc(r.Doc)
		if err != nil {
			return err
		}
	}

	rec := &record.Record{Op: r.Op, Key: keyBytes, Doc: docBytes}
	return dw.Append(rec.Encode())
}
