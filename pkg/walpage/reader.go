package walpage

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/arlojs/nestdb/pkg/record"
)

// errStreamEOF marks a clean end of the page file, as opposed to a
// truncated trailing record.
var errStreamEOF = errors.New("walpage: stream eof")

// streamReader reads length-delimited, checksummed records back to back
// from a page file, using the record header's key/doc lengths to find
// each record's boundary without a separate outer framing layer.
type streamReader struct {
	r io.Reader
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{r: r}
}

func (s *streamReader) next() ([]byte, error) {
	header := make([]byte, record.HeaderSize)
	if _, err := io.ReadFull(s.r, header); err != nil {
		if err == io.EOF {
			return nil, errStreamEOF
		}
		return nil, err
	}

	keyLen := binary.LittleEndian.Uint32(header[4:8])
	docLen := binary.LittleEndian.Uint32(header[8:12])

	rest := make([]byte, int(keyLen)+int(docLen)+4)
	if _, err := io.ReadFull(s.r, rest); err != nil {
		return nil, err
	}

	full := make([]byte, 0, len(header)+len(rest))
	full = append(full, header...)
	full = append(full, rest...)
	return full, nil
}

// PageReader provides sequential, read-only access to one page file.
// Obtained from Manager.GetPage; callers must Close it when done.
type PageReader struct {
	f   *os.File
	sr  *streamReader
	rel func()
}

// Next returns the next decoded record in the page, or io.EOF once the
// page has been fully read. A truncated trailing record (a partial
// write that never completed before a crash) surfaces as a non-io.EOF
// error, matching the page manager's append-only contract.
func (pr *PageReader) Next() (*record.Record, error) {
	raw, err := pr.sr.next()
	if err == errStreamEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return record.Decode(raw)
}

// Close releases the page reader's file handle and its slot in the
// concurrent-reads admission semaphore.
func (pr *PageReader) Close() error {
	if pr.rel != nil {
		pr.rel()
	}
	return pr.f.Close()
}

// OpenPageFileAt opens an arbitrary page file by its full on-disk path for
// sequential reading, bypassing both the Manager and its admission
// semaphore. It exists for offline tools (pkg/pageproc) that walk page
// files belonging to a directory no live Manager has opened.
func OpenPageFileAt(path string) (*PageReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &PageReader{f: f, sr: newStreamReader(f)}, nil
}
