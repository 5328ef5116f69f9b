package disk

import (
	"fmt"
	"os"
	"sync"
)

func NewManager(file *os.File, syncWrites bool) (*Manager, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("error reading db file info: %v", err)
	}
	if info.Size()%PAGE_SIZE != 0 {
		return nil, fmt.Errorf("db file size %d is not a multiple of %d", info.Size(), PAGE_SIZE)
	}

	return &Manager{
		dbFile:       file,
		pageCapacity: info.Size() / PAGE_SIZE,
		syncWrites:   syncWrites,
	}, nil
}

func (dm *Manager) WritePage(pageId int64, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if len(data) != PAGE_SIZE {
		return fmt.Errorf("page %d: expected %d bytes, got %d", pageId, PAGE_SIZE, len(data))
	}
	if pageId < 0 {
		return fmt.Errorf("invalid page id %d", pageId)
	}

	if pageId >= dm.pageCapacity {
		if err := dm.grow(pageId); err != nil {
			return err
		}
	}

	offset := pageId * PAGE_SIZE
	if _, err := dm.dbFile.WriteAt(data, offset); err != nil {
		return fmt.Errorf("error writing at offset %d: %v", offset, err)
	}

	if dm.syncWrites {
		if err := dm.dbFile.Sync(); err != nil {
			return fmt.Errorf("error syncing db file: %v", err)
		}
	}

	return nil
}

func (dm *Manager) ReadPage(pageId int64) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if pageId < 0 || pageId >= dm.pageCapacity {
		return nil, fmt.Errorf("page %d out of range [0, %d)", pageId, dm.pageCapacity)
	}

	offset := pageId * PAGE_SIZE
	buf := make([]byte, PAGE_SIZE)
	if _, err := dm.dbFile.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("error reading from offset %d: %v", offset, err)
	}

	return buf, nil
}

func (dm *Manager) Pages() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	return dm.pageCapacity
}

func (dm *Manager) Close() error {
	return dm.dbFile.Close()
}

// grow doubles the file until pageId fits.
func (dm *Manager) grow(pageId int64) error {
	capacity := max(dm.pageCapacity, DEFAULT_PAGE_CAPACITY)
	for pageId >= capacity {
		capacity *= 2
	}

	if err := dm.dbFile.Truncate(capacity * PAGE_SIZE); err != nil {
		return fmt.Errorf("error resizing db file: %v", err)
	}
	dm.pageCapacity = capacity

	return nil
}

type Manager struct {
	mu           sync.Mutex
	dbFile       *os.File
	pageCapacity int64
	syncWrites   bool
}
