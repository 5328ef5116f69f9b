package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jobala/petrodb/record"
)

func NewTable(name string, columns []record.Column, firstPageId int64) *Table {
	return &Table{Name: name, Columns: columns, FirstPageId: firstPageId}
}

func (t *Table) Layout() *record.Layout {
	t.layoutOnce.Do(func() {
		t.layout = record.NewLayout(t.Columns)
	})
	return t.layout
}

func (t *Table) RecordLength() int {
	return t.Layout().Length()
}

func (t *Table) ColumnOrdinal(name string) (int, bool) {
	for i, col := range t.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (t *Table) GetColumnIndexesByNames(names []string) ([]int, error) {
	res := make([]int, len(names))
	for i, name := range names {
		ord, ok := t.ColumnOrdinal(name)
		if !ok {
			return nil, fmt.Errorf("table %s has no column %q", t.Name, name)
		}
		res[i] = ord
	}
	return res, nil
}

func (t *Table) Lock()    { t.mu.Lock() }
func (t *Table) Unlock()  { t.mu.Unlock() }
func (t *Table) RLock()   { t.mu.RLock() }
func (t *Table) RUnlock() { t.mu.RUnlock() }

// Pin marks a reader that walks the table's pages between lock acquisitions.
// Emptied pages of a pinned table stay in its chain.
func (t *Table) Pin()   { t.readers.Add(1) }
func (t *Table) Unpin() { t.readers.Add(-1) }

func (t *Table) Pinned() bool {
	return t.readers.Load() > 0
}

// MarkDropped and Dropped expect the table lock to be held.
func (t *Table) MarkDropped(dropped bool) {
	t.dropped = dropped
}

func (t *Table) Dropped() bool {
	return t.dropped
}

// Table is a schema plus the head of its record page chain. The embedded
// lock serializes writers of the table's pages and indexes.
type Table struct {
	Name        string
	Columns     []record.Column
	FirstPageId int64

	mu         sync.RWMutex
	readers    atomic.Int64
	dropped    bool
	layoutOnce sync.Once
	layout     *record.Layout
}
