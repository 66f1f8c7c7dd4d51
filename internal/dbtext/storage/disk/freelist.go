package disk

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// freeSpaceRecord tracks one reclaimed chunk of a heap file (space_manager_io.h).
type freeSpaceRecord struct {
	Offset uint64
	Length uint16
}

// freeRecordSize is the on-disk width of one freeSpaceRecord: 8-byte
// offset + 2-byte length.
const freeRecordSize = 10

// loadFreelist reads every record from a .sp file. A missing file is an
// empty freelist, not an error.
func loadFreelist(path string) ([]freeSpaceRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "open freelist file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "stat freelist file", err)
	}
	count := int(info.Size()) / freeRecordSize
	records := make([]freeSpaceRecord, 0, count)
	buf := make([]byte, freeRecordSize)
	for i := 0; i < count; i++ {
		if _, err := f.ReadAt(buf, int64(i*freeRecordSize)); err != nil {
			return nil, dberr.Wrap(dberr.StorageError, "read freelist record", err)
		}
		records = append(records, freeSpaceRecord{
			Offset: binary.LittleEndian.Uint64(buf[0:8]),
			Length: binary.LittleEndian.Uint16(buf[8:10]),
		})
	}
	return records, nil
}

// persistFreelist overwrites the .sp file with the given records, sorted
// by ascending length so claimFree can binary-search it.
func persistFreelist(path string, records []freeSpaceRecord) error {
	sorted := append([]freeSpaceRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Length < sorted[j].Length })

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return dberr.Wrap(dberr.StorageError, "open freelist file", err)
	}
	defer f.Close()

	buf := make([]byte, freeRecordSize*len(sorted))
	for i, r := range sorted {
		off := i * freeRecordSize
		binary.LittleEndian.PutUint64(buf[off:off+8], r.Offset)
		binary.LittleEndian.PutUint16(buf[off+8:off+10], r.Length)
	}
	if _, err := f.Write(buf); err != nil {
		return dberr.Wrap(dberr.StorageError, "write freelist file", err)
	}
	return nil
}

// addFree inserts a freed chunk into a length-sorted inventory, keeping
// the sort order intact (space_manager_io.h: "MUST be sorted by length").
func addFree(inventory []freeSpaceRecord, offset uint64, length uint16) []freeSpaceRecord {
	rec := freeSpaceRecord{Offset: offset, Length: length}
	pos := sort.Search(len(inventory), func(i int) bool { return inventory[i].Length >= length })
	inventory = append(inventory, freeSpaceRecord{})
	copy(inventory[pos+1:], inventory[pos:])
	inventory[pos] = rec
	return inventory
}

// mergeAdjacent coalesces chunks that sit back-to-back in the heap file
// (offset+length of one record equals the offset of the next) into a
// single larger record, the heap-compaction step of the table's
// periodic garbage collection (TableOptions.GCFrequencyDays). Returns
// the merged inventory re-sorted by length, and whether anything
// actually merged.
func mergeAdjacent(inventory []freeSpaceRecord) ([]freeSpaceRecord, bool) {
	if len(inventory) < 2 {
		return inventory, false
	}
	byOffset := append([]freeSpaceRecord(nil), inventory...)
	sort.Slice(byOffset, func(i, j int) bool { return byOffset[i].Offset < byOffset[j].Offset })

	merged := make([]freeSpaceRecord, 0, len(byOffset))
	changed := false
	cur := byOffset[0]
	for _, next := range byOffset[1:] {
		if cur.Offset+uint64(cur.Length) == next.Offset {
			cur.Length += next.Length
			changed = true
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)
	if !changed {
		return inventory, false
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Length < merged[j].Length })
	return merged, true
}

// claimFree finds the smallest chunk at least requiredLength long
// (best-fit), removing it from the inventory and returning it. If the
// claimed chunk is larger than required, the remainder is split and
// reinserted.
func claimFree(inventory []freeSpaceRecord, requiredLength uint16) ([]freeSpaceRecord, *freeSpaceRecord) {
	pos := sort.Search(len(inventory), func(i int) bool { return inventory[i].Length >= requiredLength })
	if pos >= len(inventory) {
		return inventory, nil
	}
	claimed := inventory[pos]
	inventory = append(inventory[:pos], inventory[pos+1:]...)

	remainder := claimed.Length - requiredLength
	if remainder > lengthPrefixSize {
		inventory = addFree(inventory, claimed.Offset+uint64(requiredLength), remainder)
		claimed.Length = requiredLength
	}
	return inventory, &claimed
}
