package disk

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// nullOffset is the sentinel heap offset recorded in a block record to
// mean "this variable-length value is null" (heap_io.h leaves the value
// unspecified for null; 2^64-1 can never be a real append offset since
// it would overflow any realistic file).
const nullOffset uint64 = math.MaxUint64

// lengthPrefixSize is the width of the length prefix stored ahead of
// every variable-length payload in the heap file.
const lengthPrefixSize = 2

// heapFile is a simple variable-length data heap (heap_io.h): each
// payload is written as a 2-byte length prefix followed by its bytes, and
// callers address it by the offset append() returns. New payloads are
// appended at the end unless writeAt reuses a slot reclaimed through the
// freelist.
type heapFile struct {
	path string
	file *os.File
}

func openHeapFile(path string) (*heapFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "open heap file", err)
	}
	return &heapFile{path: path, file: f}, nil
}

func (h *heapFile) close() error { return h.file.Close() }

// append writes data to the end of the heap and returns its offset.
func (h *heapFile) append(data []byte) (uint64, error) {
	if len(data) > math.MaxUint16 {
		return 0, dberr.New(dberr.StorageError, "value exceeds maximum heap payload length")
	}
	info, err := h.file.Stat()
	if err != nil {
		return 0, dberr.Wrap(dberr.StorageError, "stat heap file", err)
	}
	offset := uint64(info.Size())
	buf := make([]byte, lengthPrefixSize+len(data))
	binary.LittleEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[lengthPrefixSize:], data)
	if _, err := h.file.WriteAt(buf, info.Size()); err != nil {
		return 0, dberr.Wrap(dberr.StorageError, "append heap file", err)
	}
	return offset, nil
}

// read returns the payload stored at offset, reading its length prefix
// first.
func (h *heapFile) read(offset uint64) ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := h.file.ReadAt(prefix[:], int64(offset)); err != nil && err != io.EOF {
		return nil, dberr.Wrap(dberr.StorageError, "read heap length prefix", err)
	}
	length := binary.LittleEndian.Uint16(prefix[:])
	buf := make([]byte, length)
	if length > 0 {
		if _, err := h.file.ReadAt(buf, int64(offset)+lengthPrefixSize); err != nil && err != io.EOF {
			return nil, dberr.Wrap(dberr.StorageError, "read heap payload", err)
		}
	}
	return buf, nil
}

// writeAt overwrites an existing slot (used when the freelist hands back
// a chunk at least as large as the new payload).
func (h *heapFile) writeAt(offset uint64, data []byte) error {
	buf := make([]byte, lengthPrefixSize+len(data))
	binary.LittleEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[lengthPrefixSize:], data)
	if _, err := h.file.WriteAt(buf, int64(offset)); err != nil {
		return dberr.Wrap(dberr.StorageError, "write heap file", err)
	}
	return nil
}

// slotLength reports the length prefix stored at offset, i.e. the payload
// size of that slot; the slot occupies that many bytes plus the prefix.
func (h *heapFile) slotLength(offset uint64) (uint16, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := h.file.ReadAt(prefix[:], int64(offset)); err != nil && err != io.EOF {
		return 0, dberr.Wrap(dberr.StorageError, "read heap length prefix", err)
	}
	return binary.LittleEndian.Uint16(prefix[:]), nil
}

func (h *heapFile) remove() error {
	h.file.Close()
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return dberr.Wrap(dberr.StorageError, "remove heap file", err)
	}
	return nil
}
