package disk

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// catalogRecordSize is one manager.db record: a 12-byte packed name key,
// a 2-byte directory link, and a 1-byte tombstone flag (catalog.h).
const catalogRecordSize = 8 + 4 + 2 + 1

// metaRecordSize is one meta.mt record: a single recycled 16-bit link
// available for reuse by the next CREATE TABLE.
const metaRecordSize = 2

// catalog manages the table_name -> directory_link mapping for one
// database directory, persisted to manager.db with a companion meta.mt
// recording links freed by DROP TABLE for reuse (catalog.h).
type catalog struct {
	mu            sync.Mutex
	managerPath   string
	metaPath      string
	links         map[NameKey]uint16
	nextLink      uint16
	recycledLinks []uint16
}

func openCatalog(dbPath string) (*catalog, error) {
	c := &catalog{
		managerPath: filepath.Join(dbPath, "manager.db"),
		metaPath:    filepath.Join(dbPath, "meta.mt"),
		links:       make(map[NameKey]uint16),
		nextLink:    1,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	if err := c.loadRecycled(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *catalog) load() error {
	f, err := os.OpenFile(c.managerPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.Wrap(dberr.StorageError, "open catalog file", err)
	}
	defer f.Close()

	buf := make([]byte, catalogRecordSize)
	for {
		_, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return dberr.Wrap(dberr.StorageError, "read catalog record", err)
		}
		key := NameKey{
			Part1: binary.LittleEndian.Uint64(buf[0:8]),
			Part2: binary.LittleEndian.Uint32(buf[8:12]),
		}
		link := binary.LittleEndian.Uint16(buf[12:14])
		tombstoned := buf[14] == 1
		if tombstoned {
			delete(c.links, key)
		} else {
			c.links[key] = link
		}
		if link >= c.nextLink {
			c.nextLink = link + 1
		}
	}
	return nil
}

func (c *catalog) loadRecycled() error {
	f, err := os.OpenFile(c.metaPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.Wrap(dberr.StorageError, "open recycle file", err)
	}
	defer f.Close()

	buf := make([]byte, metaRecordSize)
	for {
		_, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return dberr.Wrap(dberr.StorageError, "read recycle record", err)
		}
		c.recycledLinks = append(c.recycledLinks, binary.LittleEndian.Uint16(buf))
	}
	return nil
}

func (c *catalog) appendRecord(key NameKey, link uint16, tombstoned bool) error {
	f, err := os.OpenFile(c.managerPath, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return dberr.Wrap(dberr.StorageError, "open catalog file", err)
	}
	defer f.Close()

	buf := make([]byte, catalogRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], key.Part1)
	binary.LittleEndian.PutUint32(buf[8:12], key.Part2)
	binary.LittleEndian.PutUint16(buf[12:14], link)
	if tombstoned {
		buf[14] = 1
	}
	if _, err := f.Write(buf); err != nil {
		return dberr.Wrap(dberr.StorageError, "append catalog record", err)
	}
	return nil
}

// allocateLink returns a recycled link if one is available, otherwise
// the next unused link.
func (c *catalog) allocateLink() (uint16, error) {
	if n := len(c.recycledLinks); n > 0 {
		link := c.recycledLinks[n-1]
		c.recycledLinks = c.recycledLinks[:n-1]
		if err := c.persistRecycled(); err != nil {
			return 0, err
		}
		return link, nil
	}
	link := c.nextLink
	c.nextLink++
	return link, nil
}

func (c *catalog) persistRecycled() error {
	f, err := os.OpenFile(c.metaPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return dberr.Wrap(dberr.StorageError, "open recycle file", err)
	}
	defer f.Close()

	buf := make([]byte, metaRecordSize*len(c.recycledLinks))
	for i, link := range c.recycledLinks {
		binary.LittleEndian.PutUint16(buf[i*metaRecordSize:], link)
	}
	if _, err := f.Write(buf); err != nil {
		return dberr.Wrap(dberr.StorageError, "write recycle file", err)
	}
	return nil
}

// createTable allocates a directory link for name (a recycled one if any,
// else a fresh one) and persists it.
func (c *catalog) createTable(name string) (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := EncodeName(name)
	if _, exists := c.links[key]; exists {
		return 0, dberr.Newf(dberr.ConstraintError, "table %q already exists", name)
	}
	link, err := c.allocateLink()
	if err != nil {
		return 0, err
	}
	if err := c.appendRecord(key, link, false); err != nil {
		return 0, err
	}
	c.links[key] = link
	return link, nil
}

// dropTable tombstones name's catalog entry and returns its link so the
// caller can remove its files and recycle the link.
func (c *catalog) dropTable(name string) (uint16, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := EncodeName(name)
	link, ok := c.links[key]
	if !ok {
		return 0, false, nil
	}
	if err := c.appendRecord(key, link, true); err != nil {
		return 0, false, err
	}
	delete(c.links, key)
	c.recycledLinks = append(c.recycledLinks, link)
	if err := c.persistRecycled(); err != nil {
		return 0, false, err
	}
	return link, true, nil
}

// renameTable moves name's catalog entry to newName, keeping the same
// directory link (so column files never move).
func (c *catalog) renameTable(name, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldKey := EncodeName(name)
	link, ok := c.links[oldKey]
	if !ok {
		return dberr.Newf(dberr.NameError, "table %q does not exist", name)
	}
	newKey := EncodeName(newName)
	if _, exists := c.links[newKey]; exists {
		return dberr.Newf(dberr.ConstraintError, "table %q already exists", newName)
	}
	if err := c.appendRecord(oldKey, link, true); err != nil {
		return err
	}
	if err := c.appendRecord(newKey, link, false); err != nil {
		return err
	}
	delete(c.links, oldKey)
	c.links[newKey] = link
	return nil
}

func (c *catalog) lookup(name string) (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.links[EncodeName(name)]
	return link, ok
}

func (c *catalog) tableNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.links))
	for key := range c.links {
		names = append(names, DecodeName(key))
	}
	return names
}
