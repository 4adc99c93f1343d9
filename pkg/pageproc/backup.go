package pageproc

import (
	"fmt"
	"time"

	"github.com/arlojs/nestdb/internal/metrics"
	"github.com/arlojs/nestdb/pkg/store"
)

// BackupOptions configures Backup.
type BackupOptions[K comparable, D any] struct {
	Root       string
	SourceName string
	PageSize   int
	// Vacuum collapses repeated records with the same (op, key) pair in
	// each page to the latest one before writing the backup, dropping
	// dead records along the way.
	Vacuum  bool
	Codec   store.Codec[K, D]
	Metrics *metrics.Metrics
}

// Backup is Process specialized to the identity transform, writing a
// full copy of SourceName's pages into a new sibling directory named
// "{SourceName}_backup_{UTC date}-{UTC time}". It returns the backup
// directory's name (not its full path): pointing a fresh Options.Name at
// the returned name opens a datastore with the same contents as the
// original at the time of the backup.
func Backup[K comparable, D any](opts BackupOptions[K, D]) (string, error) {
	now := time.Now().UTC()
	backupName := fmt.Sprintf("%s_backup_%s-%s", opts.SourceName, now.Format("2006-01-02"), now.Format("15:04:05"))

	err := Process(Options[K, D, K, D]{
		Root:       opts.Root,
		SourceName: opts.SourceName,
		PageSize:   opts.PageSize,
		Sync:       To(backupName),
		Vacuum:     opts.Vacuum,
		OldCodec:   opts.Codec,
		NewCodec:   opts.Codec,
		Transform:  func(r Rec[K, D]) Rec[K, D] { return r },
		Metrics:    opts.Metrics,
		Job:        "backup-" + opts.SourceName,
	})
	return backupName, err
}
