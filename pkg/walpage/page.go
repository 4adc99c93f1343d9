// ABOUTME: On-disk page file naming, scanning, and low-level append/flush
// ABOUTME: One Manager worker owns exactly one pageFile handle at a time

package walpage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MinPageSize is the floor every Options.PageSize is clamped to.
const MinPageSize = 5000

// pageFileName returns the on-disk path for the page at the given
// 1-based logical index. The encoded number is page_size * page_index,
// kept for compatibility with on-disk layouts that predate this
// multiplier becoming purely cosmetic.
func pageFileName(root, name string, pageSize, pageIndex int) string {
	return filepath.Join(root, name, fmt.Sprintf("page-%d.LOG", pageSize*pageIndex))
}

// rpageFileName is the sibling rename target used by the page processor
// for in-place (Overwrite) transforms.
func rpageFileName(root, name string, pageSize, pageIndex int) string {
	return filepath.Join(root, name, fmt.Sprintf("rpage-%d.LOG", pageSize*pageIndex))
}

// PageFileName exposes the page-file naming scheme to tools outside the
// Manager (pkg/pageproc) that need to address a specific page by path.
func PageFileName(root, name string, pageSize, pageIndex int) string {
	return pageFileName(root, name, pageSize, pageIndex)
}

// RPageFileName exposes the rpage rename-target naming scheme to tools
// outside the Manager.
func RPageFileName(root, name string, pageSize, pageIndex int) string {
	return rpageFileName(root, name, pageSize, pageIndex)
}

// parsePageIndex recovers the logical page index from a page-N.LOG or
// rpage-N.LOG filename, given the page size used to encode it.
func parsePageIndex(filename string, pageSize int) (int, bool) {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, ".LOG")

	var numPart string
	switch {
	case strings.HasPrefix(base, "page-"):
		numPart = strings.TrimPrefix(base, "page-")
	case strings.HasPrefix(base, "rpage-"):
		numPart = strings.TrimPrefix(base, "rpage-")
	default:
		return 0, false
	}

	n, err := strconv.Atoi(numPart)
	if err != nil || pageSize == 0 || n%pageSize != 0 {
		return 0, false
	}
	return n / pageSize, true
}

// scanHighestPageIndex scans the datastore directory for existing
// page-N.LOG files and returns the highest logical page index found, or
// 0 if none exist.
func scanHighestPageIndex(root, name string, pageSize int) (int, error) {
	dir := filepath.Join(root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	highest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasPrefix(e.Name(), "page-") {
			continue
		}
		idx, ok := parsePageIndex(e.Name(), pageSize)
		if ok && idx > highest {
			highest = idx
		}
	}
	return highest, nil
}

// pageFile is the single mutable handle to the page currently being
// written. It is owned exclusively by the Manager's worker goroutine —
// no locking is required around its fields.
type pageFile struct {
	fd    *os.File
	index int // logical page index, 1-based
	used  int // records appended so far
}

// openOrCreatePage opens the page at index for append, creating the
// datastore directory and the page file itself if they do not exist.
func openOrCreatePage(root, name string, pageSize, index int) (*pageFile, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	path := pageFileName(root, name, pageSize, index)
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	used, err := countRecords(path)
	if err != nil {
		fd.Close()
		return nil, err
	}

	return &pageFile{fd: fd, index: index, used: used}, nil
}

// countRecords re-derives the number of complete records already on a
// page by iterating it; the count is never trusted from file size alone.
func countRecords(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	count := 0
	r := newStreamReader(f)
	for {
		_, err := r.next()
		if err == errStreamEOF {
			break
		}
		if err != nil {
			// A trailing partial record is treated as the point recovery
			// stops; it does not count as a complete record.
			break
		}
		count++
	}
	return count, nil
}

// append writes one pre-encoded record to the page and bumps used.
func (p *pageFile) append(data []byte) error {
	if _, err := p.fd.Write(data); err != nil {
		return err
	}
	p.used++
	return nil
}

func (p *pageFile) flush() error {
	return p.fd.Sync()
}

func (p *pageFile) close() error {
	return p.fd.Close()
}

// PageWriter is a raw append-only writer over a single page file, for
// offline tools (pkg/pageproc) building a destination page outside a live
// Manager. Unlike the Manager's worker, a PageWriter has no rollover
// logic — the page processor addresses exactly one page file at a time.
type PageWriter struct {
	fd *os.File
}

// CreatePageFileForAppend creates (or resumes appending to) the page file
// at path, creating its parent directory if needed.
func CreatePageFileForAppend(path string) (*PageWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &PageWriter{fd: fd}, nil
}

// Append writes one pre-encoded record to the page.
func (w *PageWriter) Append(data []byte) error {
	_, err := w.fd.Write(data)
	return err
}

// Flush fsyncs the page file.
func (w *PageWriter) Flush() error {
	return w.fd.Sync()
}

// Close closes the page file handle.
func (w *PageWriter) Close() error {
	return w.fd.Close()
}
