package disk

import (
	"io"
	"os"

	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// recordSize is the fixed width of every record in a block data (.dt)
// file: 8 bytes, enough to hold an int64/float64/bool directly or a
// heap offset for variable-length columns (block_data_io.h).
const recordSize = 8

// bufferedRecords is the number of records kept in the read buffer,
// amortizing sequential reads across one 4KiB block (block_data_io.h).
const bufferedRecords = 512
const readBufferSize = recordSize * bufferedRecords

// blockFile manages one column's fixed-record data file. Writes always
// go straight to disk and invalidate the read buffer; only reads are
// buffered.
type blockFile struct {
	path           string
	file           *os.File
	buffer         []byte
	bufferStart    int64 // row index of buffer[0]; -1 if empty
	bufferedRows   int
}

func openBlockFile(path string) (*blockFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "open block file", err)
	}
	return &blockFile{path: path, file: f, bufferStart: -1}, nil
}

func (b *blockFile) close() error { return b.file.Close() }

// rowCount returns the number of records currently in the file.
func (b *blockFile) rowCount() (uint64, error) {
	info, err := b.file.Stat()
	if err != nil {
		return 0, dberr.Wrap(dberr.StorageError, "stat block file", err)
	}
	return uint64(info.Size()) / recordSize, nil
}

func (b *blockFile) append(data [recordSize]byte) error {
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return dberr.Wrap(dberr.StorageError, "seek block file", err)
	}
	if _, err := b.file.Write(data[:]); err != nil {
		return dberr.Wrap(dberr.StorageError, "append block file", err)
	}
	b.bufferStart = -1
	return nil
}

// loadBufferForIndex loads the 512-record block containing row into the
// in-memory read buffer, unless it is already resident.
func (b *blockFile) loadBufferForIndex(row uint64) error {
	blockStart := (int64(row) / bufferedRecords) * bufferedRecords
	if b.bufferStart == blockStart {
		return nil
	}
	if _, err := b.file.Seek(blockStart*recordSize, io.SeekStart); err != nil {
		return dberr.Wrap(dberr.StorageError, "seek block file", err)
	}
	buf := make([]byte, readBufferSize)
	n, err := io.ReadFull(b.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return dberr.Wrap(dberr.StorageError, "read block file", err)
	}
	b.buffer = buf[:n]
	b.bufferStart = blockStart
	b.bufferedRows = n / recordSize
	return nil
}

func (b *blockFile) readAt(row uint64) ([recordSize]byte, error) {
	var out [recordSize]byte
	if err := b.loadBufferForIndex(row); err != nil {
		return out, err
	}
	offsetInBlock := int64(row) - b.bufferStart
	if offsetInBlock < 0 || offsetInBlock >= int64(b.bufferedRows) {
		return out, dberr.Newf(dberr.StorageError, "row %d out of range", row)
	}
	copy(out[:], b.buffer[offsetInBlock*recordSize:offsetInBlock*recordSize+recordSize])
	return out, nil
}

func (b *blockFile) writeAt(row uint64, data [recordSize]byte) error {
	if _, err := b.file.Seek(int64(row)*recordSize, io.SeekStart); err != nil {
		return dberr.Wrap(dberr.StorageError, "seek block file", err)
	}
	if _, err := b.file.Write(data[:]); err != nil {
		return dberr.Wrap(dberr.StorageError, "write block file", err)
	}
	b.bufferStart = -1
	return nil
}

func (b *blockFile) readLast() ([recordSize]byte, error) {
	count, err := b.rowCount()
	if err != nil {
		return [recordSize]byte{}, err
	}
	if count == 0 {
		return [recordSize]byte{}, dberr.New(dberr.StorageError, "block file is empty")
	}
	return b.readAt(count - 1)
}

// truncateLast removes the final record from the file, used by
// swap-and-pop row deletion.
func (b *blockFile) truncateLast() error {
	count, err := b.rowCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if err := b.file.Truncate(int64(count-1) * recordSize); err != nil {
		return dberr.Wrap(dberr.StorageError, "truncate block file", err)
	}
	b.bufferStart = -1
	return nil
}

func (b *blockFile) remove() error {
	b.file.Close()
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return dberr.Wrap(dberr.StorageError, "remove block file", err)
	}
	return nil
}
