package disk

import (
	"fmt"
	"sync"
)

func NewMemManager() *MemManager {
	return &MemManager{}
}

func (m *MemManager) WritePage(pageId int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(data) != PAGE_SIZE {
		return fmt.Errorf("page %d: expected %d bytes, got %d", pageId, PAGE_SIZE, len(data))
	}
	if pageId < 0 {
		return fmt.Errorf("invalid page id %d", pageId)
	}

	for int64(len(m.pages)) <= pageId {
		m.pages = append(m.pages, make([]byte, PAGE_SIZE))
	}
	copy(m.pages[pageId], data)

	return nil
}

func (m *MemManager) ReadPage(pageId int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pageId < 0 || pageId >= int64(len(m.pages)) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", pageId, len(m.pages))
	}

	buf := make([]byte, PAGE_SIZE)
	copy(buf, m.pages[pageId])
	return buf, nil
}

func (m *MemManager) Pages() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.pages))
}

func (m *MemManager) Close() error {
	return nil
}

type MemManager struct {
	mu    sync.Mutex
	pages [][]byte
}
