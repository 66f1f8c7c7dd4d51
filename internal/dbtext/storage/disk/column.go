package disk

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// columnManager coordinates on-disk storage for a single column
// (column_manager.h): a fixed-record block file for every row, a
// companion null-flag file (the original format has no null bitmap;
// dbtext adds one so fixed-width types can represent null without
// stealing a sentinel value from their domain), and — for
// variable-length types only — a heap file plus an in-memory freelist
// cache for its reclaimed space.
type columnManager struct {
	typeCode TypeCode
	dir      string
	link     uint16

	block    *blockFile
	nullFlag *os.File
	heap     *heapFile // nil for fixed-width columns

	spPath        string
	freelist      []freeSpaceRecord
	freelistLoad  bool
	freelistDirty bool
}

func columnFileBase(dir string, link uint16) string {
	return filepath.Join(dir, strconv.FormatUint(uint64(link), 10))
}

func openColumnManager(dir string, link uint16, typeCode TypeCode) (*columnManager, error) {
	base := columnFileBase(dir, link)
	block, err := openBlockFile(base + ".dt")
	if err != nil {
		return nil, err
	}
	nullFlag, err := os.OpenFile(base+".nl", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "open null-flag file", err)
	}
	cm := &columnManager{typeCode: typeCode, dir: dir, link: link, block: block, nullFlag: nullFlag, spPath: base + ".sp"}
	if typeCode.IsVariableLength() {
		heap, err := openHeapFile(base + ".bg")
		if err != nil {
			return nil, err
		}
		cm.heap = heap
	}
	return cm, nil
}

func (cm *columnManager) close() {
	cm.block.close()
	cm.nullFlag.Close()
	if cm.heap != nil {
		cm.heap.close()
	}
}

// dropColumnFiles deletes every file belonging to a column, for DROP
// COLUMN and DROP TABLE (column_manager.h's static dropFiles).
func dropColumnFiles(dir string, link uint16) error {
	base := columnFileBase(dir, link)
	for _, ext := range []string{".dt", ".nl", ".bg", ".sp"} {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			return dberr.Wrap(dberr.StorageError, "remove column file", err)
		}
	}
	return nil
}

func (cm *columnManager) rowCount() (uint64, error) { return cm.block.rowCount() }

func (cm *columnManager) ensureFreelistLoaded() error {
	if cm.freelistLoad {
		return nil
	}
	records, err := loadFreelist(cm.spPath)
	if err != nil {
		return err
	}
	cm.freelist = records
	cm.freelistLoad = true
	return nil
}

func (cm *columnManager) persistFreelistIfDirty() error {
	if !cm.freelistDirty {
		return nil
	}
	if err := persistFreelist(cm.spPath, cm.freelist); err != nil {
		return err
	}
	cm.freelistDirty = false
	return nil
}

// compact merges adjacent freelist entries for columns that have one
// (variable-length heap columns only), persisting the result if
// anything actually merged.
func (cm *columnManager) compact() error {
	if cm.heap == nil {
		return nil
	}
	if err := cm.ensureFreelistLoaded(); err != nil {
		return err
	}
	merged, changed := mergeAdjacent(cm.freelist)
	if !changed {
		return nil
	}
	cm.freelist = merged
	cm.freelistDirty = true
	return cm.persistFreelistIfDirty()
}

// appendValue writes a new row to the end of the column.
func (cm *columnManager) appendValue(v ast.Value) error {
	isNull := byte(0)
	if v.IsNull() {
		isNull = 1
	}
	count, err := cm.rowCount()
	if err != nil {
		return err
	}
	if _, err := cm.nullFlag.WriteAt([]byte{isNull}, int64(count)); err != nil {
		return dberr.Wrap(dberr.StorageError, "append null flag", err)
	}
	if v.IsNull() {
		return cm.block.append(cm.sentinelRecord())
	}
	record, err := cm.serialize(v)
	if err != nil {
		return err
	}
	return cm.block.append(record)
}

// sentinelRecord is the block record written for a null value: zero for
// fixed-width types, the heap null offset for variable-width types.
func (cm *columnManager) sentinelRecord() [recordSize]byte {
	var rec [recordSize]byte
	if cm.typeCode.IsVariableLength() {
		binary.LittleEndian.PutUint64(rec[:], nullOffset)
	}
	return rec
}

func (cm *columnManager) isNullAt(row uint64) (bool, error) {
	var buf [1]byte
	if _, err := cm.nullFlag.ReadAt(buf[:], int64(row)); err != nil {
		return false, dberr.Wrap(dberr.StorageError, "read null flag", err)
	}
	return buf[0] == 1, nil
}

func (cm *columnManager) setNullAt(row uint64, isNull bool) error {
	b := byte(0)
	if isNull {
		b = 1
	}
	_, err := cm.nullFlag.WriteAt([]byte{b}, int64(row))
	if err != nil {
		return dberr.Wrap(dberr.StorageError, "write null flag", err)
	}
	return nil
}

// readValue reads the row'th value back from disk.
func (cm *columnManager) readValue(row uint64) (ast.Value, error) {
	isNull, err := cm.isNullAt(row)
	if err != nil {
		return ast.Null, err
	}
	if isNull {
		return ast.Null, nil
	}
	record, err := cm.block.readAt(row)
	if err != nil {
		return ast.Null, err
	}
	return cm.deserialize(record)
}

// updateValue overwrites the row'th value. For variable-length columns,
// the old heap slot is freed (added to the freelist) before a new one is
// claimed or appended.
func (cm *columnManager) updateValue(row uint64, v ast.Value) error {
	if cm.typeCode.IsVariableLength() && cm.heap != nil {
		wasNull, err := cm.isNullAt(row)
		if err != nil {
			return err
		}
		if !wasNull {
			old, err := cm.block.readAt(row)
			if err != nil {
				return err
			}
			offset := binary.LittleEndian.Uint64(old[:])
			if offset != nullOffset {
				if err := cm.freeHeapSlot(offset); err != nil {
					return err
				}
			}
		}
	}
	if err := cm.setNullAt(row, v.IsNull()); err != nil {
		return err
	}
	if v.IsNull() {
		return cm.block.writeAt(row, cm.sentinelRecord())
	}
	record, err := cm.serialize(v)
	if err != nil {
		return err
	}
	return cm.block.writeAt(row, record)
}

func (cm *columnManager) freeHeapSlot(offset uint64) error {
	if err := cm.ensureFreelistLoaded(); err != nil {
		return err
	}
	length, err := cm.heap.slotLength(offset)
	if err != nil {
		return err
	}
	cm.freelist = addFree(cm.freelist, offset, length+lengthPrefixSize)
	cm.freelistDirty = true
	return cm.persistFreelistIfDirty()
}

// writeHeap claims a freelist slot if one is big enough, else appends.
func (cm *columnManager) writeHeap(data []byte) (uint64, error) {
	if err := cm.ensureFreelistLoaded(); err != nil {
		return 0, err
	}
	if len(data)+lengthPrefixSize <= math.MaxUint16 {
		remaining, claimed := claimFree(cm.freelist, uint16(len(data)+lengthPrefixSize))
		if claimed != nil {
			cm.freelist = remaining
			cm.freelistDirty = true
			if err := cm.persistFreelistIfDirty(); err != nil {
				return 0, err
			}
			if err := cm.heap.writeAt(claimed.Offset, data); err != nil {
				return 0, err
			}
			return claimed.Offset, nil
		}
	}
	return cm.heap.append(data)
}

// swapAndPop deletes the row'th value by moving the last row's value
// into its place, then shrinking the file by one record (column_manager.h:
// "swaps the target row with the last row and then truncates").
func (cm *columnManager) swapAndPop(row uint64) error {
	count, err := cm.rowCount()
	if err != nil {
		return err
	}
	if row >= count {
		return dberr.Newf(dberr.StorageError, "row %d out of range", row)
	}
	last := count - 1
	if cm.typeCode.IsVariableLength() && cm.heap != nil {
		wasNull, err := cm.isNullAt(row)
		if err != nil {
			return err
		}
		if !wasNull {
			old, err := cm.block.readAt(row)
			if err != nil {
				return err
			}
			offset := binary.LittleEndian.Uint64(old[:])
			if offset != nullOffset {
				if err := cm.freeHeapSlot(offset); err != nil {
					return err
				}
			}
		}
	}
	if row != last {
		lastRecord, err := cm.block.readAt(last)
		if err != nil {
			return err
		}
		lastNull, err := cm.isNullAt(last)
		if err != nil {
			return err
		}
		if err := cm.block.writeAt(row, lastRecord); err != nil {
			return err
		}
		if err := cm.setNullAt(row, lastNull); err != nil {
			return err
		}
	}
	return cm.block.truncateLast()
}

// serialize packs v into an 8-byte block record (column_manager.h's
// serializeForBlock): fixed-width types encode the value itself;
// variable-width types encode their heap offset.
func (cm *columnManager) serialize(v ast.Value) ([recordSize]byte, error) {
	var rec [recordSize]byte
	switch cm.typeCode {
	case codeBigInt, codeInteger, codeSmallInt, codeTinyInt, codeUBigInt, codeUInteger, codeUSmallInt, codeUTinyInt:
		binary.LittleEndian.PutUint64(rec[:], uint64(v.Int()))
	case codeDouble, codeFloat:
		binary.LittleEndian.PutUint64(rec[:], math.Float64bits(v.Float()))
	case codeBoolean:
		if v.Bool() {
			rec[0] = 1
		}
	case codeVarChar, codeText:
		offset, err := cm.writeHeap([]byte(v.Str()))
		if err != nil {
			return rec, err
		}
		binary.LittleEndian.PutUint64(rec[:], offset)
	default:
		return rec, dberr.Newf(dberr.InternalError, "unsupported column type code %d", cm.typeCode)
	}
	return rec, nil
}

// deserialize reverses serialize.
func (cm *columnManager) deserialize(rec [recordSize]byte) (ast.Value, error) {
	switch cm.typeCode {
	case codeBigInt, codeInteger, codeSmallInt, codeTinyInt, codeUBigInt, codeUInteger, codeUSmallInt, codeUTinyInt:
		return ast.IntValue(int64(binary.LittleEndian.Uint64(rec[:]))), nil
	case codeDouble, codeFloat:
		return ast.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(rec[:]))), nil
	case codeBoolean:
		return ast.BoolValue(rec[0] != 0), nil
	case codeVarChar, codeText:
		offset := binary.LittleEndian.Uint64(rec[:])
		data, err := cm.heap.read(offset)
		if err != nil {
			return ast.Null, err
		}
		return ast.StringValue(string(data)), nil
	default:
		return ast.Null, dberr.Newf(dberr.InternalError, "unsupported column type code %d", cm.typeCode)
	}
}
