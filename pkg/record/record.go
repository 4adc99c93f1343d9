// ABOUTME: WAL record format — a length-prefixed, checksummed tagged
// ABOUTME: union of Insert(key,doc) and Remove(key), opaque to the datastore

package record

import (
	"encoding/binary"
	"hash/crc32"
)

// Op identifies the kind of mutation a Record carries.
type Op byte

const (
	// OpInsert carries a key and its serialized document.
	OpInsert Op = 1
	// OpRemove carries only a key.
	OpRemove Op = 2
)

// HeaderSize is the fixed-size portion of an encoded record, before the
// variable-length key and document bytes and the trailing CRC32.
// Layout: Op(1) + Reserved(3) + KeyLen(4) + DocLen(4)
const HeaderSize = 12

// Record is one WAL entry: either an Insert of a key/document pair or a
// Remove of a key. Key and Doc are pre-serialized by the caller — the
// record format itself is agnostic to what K and D actually are.
type Record struct {
	Op  Op
	Key []byte
	Doc []byte // empty for OpRemove
}

// Encode serializes the record to bytes with a trailing CRC32 checksum.
// Format: [Header(12)] [Key] [Doc] [CRC32(4)]
func (r *Record) Encode() []byte {
	keyLen := len(r.Key)
	docLen := len(r.Doc)
	total := HeaderSize + keyLen + docLen + 4

	buf := make([]byte, total)
	buf[0] = byte(r.Op)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(keyLen))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(docLen))

	offset := HeaderSize
	copy(buf[offset:], r.Key)
	offset += keyLen
	copy(buf[offset:], r.Doc)
	offset += docLen

	crc := crc32.ChecksumIEEE(buf[:offset])
	binary.LittleEndian.PutUint32(buf[offset:offset+4], crc)

	return buf
}

// Decode deserializes a record previously produced by Encode, verifying
// its CRC32 checksum.
func Decode(data []byte) (*Record, error) {
	if len(data) < HeaderSize+4 {
		return nil, ErrTruncated
	}

	keyLen := binary.LittleEndian.Uint32(data[4:8])
	docLen := binary.LittleEndian.Uint32(data[8:12])

	expected := HeaderSize + int(keyLen) + int(docLen) + 4
	if len(data) < expected {
		return nil, ErrTruncated
	}

	storedCRC := binary.LittleEndian.Uint32(data[expected-4 : expected])
	computedCRC := crc32.ChecksumIEEE(data[:expected-4])
	if storedCRC != computedCRC {
		return nil, ErrCorrupted
	}

	r := &Record{Op: Op(data[0])}

	offset := HeaderSize
	if keyLen > 0 {
		r.Key = make([]byte, keyLen)
		copy(r.Key, data[offset:offset+int(keyLen)])
		offset += int(keyLen)
	}
	if docLen > 0 {
		r.Doc = make([]byte, docLen)
		copy(r.Doc, data[offset:offset+int(docLen)])
	}

	return r, nil
}

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	return HeaderSize + len(r.Key) + len(r.Doc) + 4
}
