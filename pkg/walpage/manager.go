// ABOUTME: Manager owns the single worker goroutine that serializes all
// ABOUTME: writes to a datastore's WAL pages, and exposes the read path.

package walpage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/arlojs/nestdb/internal/logger"
	"github.com/arlojs/nestdb/internal/metrics"
	"github.com/arlojs/nestdb/pkg/record"
)

// Options configures a Manager.
type Options struct {
	// Root is the directory under which the datastore's page files live,
	// one subdirectory per datastore Name.
	Root string

	// Name identifies the datastore owning this log, and becomes the
	// page subdirectory name.
	Name string

	// PageSize is the number of records a page holds before rollover.
	// Clamped up to MinPageSize.
	PageSize int

	// QueueDepth bounds the number of append requests the worker will
	// admit before Log starts returning ErrFull. Zero selects a default.
	QueueDepth int

	// SubmitTimeout bounds how long Log waits to hand a request to the
	// worker before giving up with ErrFull, and, once the request is
	// admitted, how long it waits for the worker's answer before giving
	// up with ErrTimeout.
	SubmitTimeout time.Duration

	// MaxConcurrentReads bounds the number of page files concurrently
	// open for reads via GetPage.
	MaxConcurrentReads int64

	Metrics *metrics.Metrics
}

func (o *Options) setDefaults() {
	if o.PageSize < MinPageSize {
		o.PageSize = MinPageSize
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 1024
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 5 * time.Second
	}
	if o.MaxConcurrentReads <= 0 {
		o.MaxConcurrentReads = 8
	}
}

// request is one append submitted to the worker. done carries back the
// single error the worker produced for this record.
type request struct {
	data []byte
	done chan error
}

// Manager serializes appends to a datastore's WAL through one worker
// goroutine, which is the sole owner of the current pageFile handle.
// Reads (GetPage) bypass the worker and open page files directly, bounded
// by readSem, since historical pages are immutable once rolled.
type Manager struct {
	opts Options
	log  *logger.Logger

	reqs   chan request
	readSem *semaphore.Weighted

	closed chan struct{}
	done   chan struct{}
}

// Open creates or resumes a Manager for the given options, launching its
// worker goroutine. It does not itself replay history; callers that need
// recovery use GetPage to walk pages from index 1.
func Open(opts Options) (*Manager, error) {
	opts.setDefaults()

	dir := filepath.Join(opts.Root, opts.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	m := &Manager{
		opts:    opts,
		log:     logger.GetGlobalLogger().WalLogger(opts.Name),
		reqs:    make(chan request, opts.QueueDepth),
		readSem: semaphore.NewWeighted(opts.MaxConcurrentReads),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	highest, err := scanHighestPageIndex(opts.Root, opts.Name, opts.PageSize)
	if err != nil {
		return nil, err
	}
	if highest == 0 {
		highest = 1
	}

	pf, err := openOrCreatePage(opts.Root, opts.Name, opts.PageSize, highest)
	if err != nil {
		return nil, err
	}

	go m.run(pf)

	return m, nil
}

// Log appends a record to the log, returning once the worker has written
// it to the current page (or returning the worker's error). The worker
// answers before it flushes; the page is flushed once per batch, after
// every request in the batch has been answered. Both the submit and the
// wait for the answer are bounded by SubmitTimeout.
func (m *Manager) Log(r *record.Record) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	req := request{data: r.Encode(), done: make(chan error, 1)}

	select {
	case m.reqs <- req:
	default:
		// Admission queue saturated; wait up to SubmitTimeout for a slot
		// before rejecting outright.
		select {
		case m.reqs <- req:
		case <-time.After(m.opts.SubmitTimeout):
			return ErrFull
		case <-m.closed:
			return ErrClosed
		}
	}

	select {
	case err := <-req.done:
		return err
	case <-time.After(m.opts.SubmitTimeout):
		return ErrTimeout
	case <-m.closed:
		return ErrClosed
	}
}

// GetPage opens page `index` (1-based) for sequential reading. It returns
// ErrEnd if the page does not exist, which recovery treats as having
// reached the end of the log.
func (m *Manager) GetPage(index int) (*PageReader, error) {
	path := pageFileName(m.opts.Root, m.opts.Name, m.opts.PageSize, index)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEnd
		}
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.readSem.Acquire(ctx, 1); err != nil {
		return nil, ErrTimeout
	}

	f, err := os.Open(path)
	if err != nil {
		m.readSem.Release(1)
		return nil, err
	}

	return &PageReader{
		f:   f,
		sr:  newStreamReader(f),
		rel: func() { m.readSem.Release(1) },
	}, nil
}

// Close stops accepting new appends and waits for the worker to drain and
// exit, flushing and closing the current page.
func (m *Manager) Close() error {
	select {
	case <-m.closed:
		return nil
	default:
		close(m.closed)
	}
	<-m.done
	return nil
}
