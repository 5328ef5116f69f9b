package table

import (
	"errors"
	"fmt"
	"iter"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jobala/petrodb/catalog"
	"github.com/jobala/petrodb/index"
	"github.com/jobala/petrodb/logger"
	"github.com/jobala/petrodb/record"
	"github.com/jobala/petrodb/storage/disk"
	"github.com/jobala/petrodb/storage/page"
	"github.com/jobala/petrodb/util"
)

func NewManager(store page.Manager, c *catalog.Catalog, indexes *index.Manager) *Manager {
	return &Manager{store: store, catalog: c, indexes: indexes}
}

func (m *Manager) CreateTable(name string, columns []record.Column) (*catalog.Table, error) {
	if err := catalog.ValidateColumns(columns); err != nil {
		return nil, pkgerrors.Wrapf(err, "create table %s", name)
	}
	if _, err := m.catalog.GetTable(name); err == nil {
		return nil, pkgerrors.Wrapf(catalog.ErrTableExists, "create table %s", name)
	}

	first, err := m.store.AllocatePage()
	if err != nil {
		return nil, util.NewRecordManagerError(err, "create table %s", name)
	}

	t := catalog.NewTable(name, columns, first.Id)
	page.NewRecordPage(first, t.RecordLength()).Init()
	if err := m.store.SavePage(first); err != nil {
		_ = m.store.FreePage(first.Id)
		return nil, util.NewRecordManagerError(err, "create table %s", name)
	}

	if err := m.catalog.AddTable(t); err != nil {
		_ = m.store.FreePage(first.Id)
		return nil, pkgerrors.Wrapf(err, "create table %s", name)
	}

	logger.WithFields(logrus.Fields{"table": name, "firstPageId": first.Id}).Info("created table")
	return t, nil
}

// DropTable returns the table's pages to the free list, last page first, and
// then forgets the table and its indexes. Readers still walking the table
// fail with catalog.ErrTableDropped.
func (m *Manager) DropTable(t *catalog.Table) error {
	t.Lock()
	defer t.Unlock()

	pages := []*page.RecordPage{}
	for rp, err := range page.Chain(m.store, t.FirstPageId, t.RecordLength()) {
		if err != nil {
			return util.NewRecordManagerError(err, "drop table %s", t.Name)
		}
		pages = append(pages, rp)
	}

	t.MarkDropped(true)
	for i := len(pages) - 1; i > 0; i-- {
		if err := m.unlinkAndFree(pages[i-1], pages[i]); err != nil {
			t.MarkDropped(false)
			return util.NewRecordManagerError(err, "drop table %s", t.Name)
		}
	}

	if err := m.catalog.RemoveTable(t.Name); err != nil {
		t.MarkDropped(false)
		return pkgerrors.Wrapf(err, "drop table %s", t.Name)
	}
	m.indexes.DropIndexesForTable(t)

	if err := m.store.FreePage(t.FirstPageId); err != nil {
		logger.WithFields(logrus.Fields{"table": t.Name, "pageId": t.FirstPageId}).Errorf("leaked page of dropped table: %v", err)
		return util.NewRecordManagerError(err, "drop table %s", t.Name)
	}

	logger.WithFields(logrus.Fields{"table": t.Name, "pages": len(pages)}).Info("dropped table")
	return nil
}

// unlinkAndFree cuts rp out of the chain after prev and frees it. When the
// free fails rp is linked back so it is never orphaned.
func (m *Manager) unlinkAndFree(prev, rp *page.RecordPage) error {
	prev.SetNextPageId(rp.NextPageId())
	if err := m.store.SavePage(prev.Page()); err != nil {
		prev.SetNextPageId(rp.Id())
		return err
	}

	err := m.store.FreePage(rp.Id())
	if err == nil {
		return nil
	}

	prev.SetNextPageId(rp.Id())
	if relinkErr := m.store.SavePage(prev.Page()); relinkErr != nil {
		logger.WithFields(logrus.Fields{"pageId": rp.Id(), "prev": prev.Id()}).Errorf("leaked page: %v", relinkErr)
		return errors.Join(err, relinkErr)
	}
	return err
}

// Insert stores one record. Columns may be a reordered subset of the schema;
// the rest are NULL.
func (m *Manager) Insert(t *catalog.Table, columns []string, values []string) (record.Location, error) {
	vals, err := mapValues(t, make([]any, len(t.Columns)), columns, values)
	if err != nil {
		return record.Location{}, util.NewRecordManagerError(err, "insert into %s", t.Name)
	}

	data, err := t.Layout().Encode(vals)
	if err != nil {
		return record.Location{}, util.NewRecordManagerError(err, "insert into %s", t.Name)
	}

	t.Lock()
	defer t.Unlock()

	placed, err := m.place(t, data)
	if err != nil {
		return record.Location{}, util.NewRecordManagerError(err, "insert into %s", t.Name)
	}

	rec := record.Record{Loc: placed.loc, Values: vals}
	if err := insertEntries(m.indexes.GetIndexesForTable(t), rec); err != nil {
		logger.WithFields(logrus.Fields{"table": t.Name, "loc": placed.loc.String()}).Warnf("rolling back insert: %v", err)
		if rbErr := m.unplace(placed); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return record.Location{}, util.NewRecordManagerError(err, "insert into %s", t.Name)
	}

	return placed.loc, nil
}

// place writes data into the first free slot of the chain, appending a new
// page when every page is full. prev is only set for an appended page.
func (m *Manager) place(t *catalog.Table, data []byte) (placement, error) {
	var last *page.RecordPage
	for rp, err := range page.Chain(m.store, t.FirstPageId, t.RecordLength()) {
		if err != nil {
			return placement{}, err
		}
		last = rp

		slot, ok := rp.FirstFreeSlot()
		if !ok {
			continue
		}

		rp.WriteSlot(slot, data)
		if err := m.store.SavePage(rp.Page()); err != nil {
			return placement{}, err
		}
		return placement{loc: record.Location{PageId: rp.Id(), Slot: slot}, rp: rp}, nil
	}

	p, err := m.store.AllocatePage()
	if err != nil {
		return placement{}, pkgerrors.Wrap(err, "allocating page")
	}

	rp := page.NewRecordPage(p, t.RecordLength())
	rp.Init()
	rp.WriteSlot(0, data)
	if err := m.store.SavePage(p); err != nil {
		return placement{}, errors.Join(err, m.store.FreePage(p.Id))
	}

	last.SetNextPageId(p.Id)
	if err := m.store.SavePage(last.Page()); err != nil {
		last.SetNextPageId(disk.INVALID_PAGE_ID)
		return placement{}, errors.Join(err, m.store.FreePage(p.Id))
	}

	logger.WithFields(logrus.Fields{"table": t.Name, "pageId": p.Id}).Debug("appended page to table")
	return placement{loc: record.Location{PageId: p.Id, Slot: 0}, rp: rp, prev: last}, nil
}

func (m *Manager) unplace(p placement) error {
	if p.prev == nil {
		p.rp.DeleteSlot(p.loc.Slot)
		return m.store.SavePage(p.rp.Page())
	}

	p.prev.SetNextPageId(disk.INVALID_PAGE_ID)
	if err := m.store.SavePage(p.prev.Page()); err != nil {
		return err
	}
	return m.store.FreePage(p.rp.Id())
}

// Scan yields every record of t, one page at a time.
func (m *Manager) Scan(t *catalog.Table) record.Set {
	return record.SetFunc(func() iter.Seq2[record.Record, error] {
		return func(yield func(record.Record, error) bool) {
			t.Pin()
			defer t.Unpin()

			pageId := t.FirstPageId
			for visited := int64(0); ; visited++ {
				if visited >= m.store.PageCount() {
					yield(record.Record{}, util.NewRecordManagerError(nil, "scan %s: page chain has a cycle", t.Name))
					return
				}

				recs, next, err := m.readPage(t, pageId)
				if err != nil {
					yield(record.Record{}, util.NewRecordManagerError(err, "scan %s", t.Name))
					return
				}

				for _, rec := range recs {
					if !yield(rec, nil) {
						return
					}
				}

				if next <= 0 {
					return
				}
				pageId = next
			}
		}
	})
}

func (m *Manager) readPage(t *catalog.Table, pageId int64) ([]record.Record, int64, error) {
	t.RLock()
	defer t.RUnlock()

	if t.Dropped() {
		return nil, 0, pkgerrors.Wrapf(catalog.ErrTableDropped, "table %s", t.Name)
	}

	rp, err := m.store.GetRecordPageById(pageId, t.RecordLength())
	if err != nil {
		return nil, 0, err
	}

	recs := []record.Record{}
	for slot := range rp.Capacity() {
		data, ok := rp.ReadSlot(slot)
		if !ok {
			continue
		}

		values, err := t.Layout().Decode(data)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, record.Record{Loc: record.Location{PageId: pageId, Slot: slot}, Values: values})
	}

	return recs, rp.NextPageId(), nil
}

// Fetch reads a single record. The boolean is false for an empty slot.
func (m *Manager) Fetch(t *catalog.Table, loc record.Location) (record.Record, bool, error) {
	rec, ok, err := index.FetchRecord(m.store, t, loc)
	if err != nil {
		return rec, ok, util.NewRecordManagerError(err, "fetch %s at %s", t.Name, loc)
	}
	return rec, ok, nil
}

// Select yields the records whose where columns equal the given values,
// through an index when one is keyed on exactly those columns.
func (m *Manager) Select(t *catalog.Table, whereColumns []string, whereValues []string) (record.Set, error) {
	if len(whereColumns) == 0 {
		return m.Scan(t), nil
	}

	set, err := m.indexes.BuildIndexedRecordSetIfPossible(t, whereColumns, whereValues)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, index.ErrNoIndex) {
		return nil, util.NewRecordManagerError(err, "select from %s", t.Name)
	}

	ords, vals, err := coerceWhere(t, whereColumns, whereValues)
	if err != nil {
		return nil, util.NewRecordManagerError(err, "select from %s", t.Name)
	}

	scan := m.Scan(t)
	return record.SetFunc(func() iter.Seq2[record.Record, error] {
		return func(yield func(record.Record, error) bool) {
			for rec, err := range scan.All() {
				if err != nil {
					yield(rec, err)
					return
				}
				if rec.Matches(ords, vals) && !yield(rec, nil) {
					return
				}
			}
		}
	}), nil
}

// Delete removes matching records and returns how many were removed. Pages
// other than the first that end up empty go back to the free list.
func (m *Manager) Delete(t *catalog.Table, whereColumns []string, whereValues []string) (int, error) {
	ords, vals, err := coerceWhere(t, whereColumns, whereValues)
	if err != nil {
		return 0, util.NewRecordManagerError(err, "delete from %s", t.Name)
	}

	matches, err := m.collect(t, whereColumns, whereValues)
	if err != nil {
		return 0, util.NewRecordManagerError(err, "delete from %s", t.Name)
	}

	t.Lock()
	defer t.Unlock()

	indexes := m.indexes.GetIndexesForTable(t)
	deleted := 0
	for _, match := range matches {
		rp, rec, ok, err := m.reread(t, match.Loc, ords, vals)
		if err != nil {
			return deleted, util.NewRecordManagerError(err, "delete from %s", t.Name)
		}
		if !ok {
			continue
		}

		if err := removeEntries(indexes, rec); err != nil {
			return deleted, util.NewRecordManagerError(err, "delete from %s", t.Name)
		}

		rp.DeleteSlot(rec.Loc.Slot)
		if err := m.store.SavePage(rp.Page()); err != nil {
			_ = insertEntries(indexes, rec)
			return deleted, util.NewRecordManagerError(err, "delete from %s", t.Name)
		}
		deleted++
	}

	if err := m.releaseEmptyPages(t); err != nil {
		return deleted, util.NewRecordManagerError(err, "delete from %s", t.Name)
	}

	return deleted, nil
}

// releaseEmptyPages unlinks and frees empty pages after the first one. The
// caller holds the table lock. While a reader has the table pinned the pages
// stay linked and are released by a later delete.
func (m *Manager) releaseEmptyPages(t *catalog.Table) error {
	if t.Pinned() {
		logger.WithFields(logrus.Fields{"table": t.Name}).Debug("table is being read, keeping empty pages")
		return nil
	}

	prev, err := m.store.GetRecordPageById(t.FirstPageId, t.RecordLength())
	if err != nil {
		return err
	}

	for prev.HasNext() {
		rp, err := m.store.GetRecordPageById(prev.NextPageId(), t.RecordLength())
		if err != nil {
			return err
		}

		if rp.Count() > 0 {
			prev = rp
			continue
		}

		if err := m.unlinkAndFree(prev, rp); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"table": t.Name, "pageId": rp.Id()}).Debug("released empty page")
	}

	return nil
}

// Update rewrites the set columns of matching records in place and returns
// how many were updated.
func (m *Manager) Update(t *catalog.Table, whereColumns, whereValues, setColumns, setValues []string) (int, error) {
	ords, vals, err := coerceWhere(t, whereColumns, whereValues)
	if err != nil {
		return 0, util.NewRecordManagerError(err, "update %s", t.Name)
	}
	if len(setColumns) == 0 {
		return 0, util.NewRecordManagerError(nil, "update %s: nothing to set", t.Name)
	}

	matches, err := m.collect(t, whereColumns, whereValues)
	if err != nil {
		return 0, util.NewRecordManagerError(err, "update %s", t.Name)
	}

	t.Lock()
	defer t.Unlock()

	indexes := m.indexes.GetIndexesForTable(t)
	updated := 0
	for _, match := range matches {
		rp, old, ok, err := m.reread(t, match.Loc, ords, vals)
		if err != nil {
			return updated, util.NewRecordManagerError(err, "update %s", t.Name)
		}
		if !ok {
			continue
		}

		newVals, err := mapValues(t, append([]any{}, old.Values...), setColumns, setValues)
		if err != nil {
			return updated, util.NewRecordManagerError(err, "update %s", t.Name)
		}
		data, err := t.Layout().Encode(newVals)
		if err != nil {
			return updated, util.NewRecordManagerError(err, "update %s", t.Name)
		}

		rec := record.Record{Loc: old.Loc, Values: newVals}
		if err := replaceEntries(indexes, old, rec); err != nil {
			return updated, util.NewRecordManagerError(err, "update %s", t.Name)
		}

		rp.WriteSlot(old.Loc.Slot, data)
		if err := m.store.SavePage(rp.Page()); err != nil {
			_ = replaceEntries(indexes, rec, old)
			return updated, util.NewRecordManagerError(err, "update %s", t.Name)
		}
		updated++
	}

	return updated, nil
}

func (m *Manager) collect(t *catalog.Table, whereColumns, whereValues []string) ([]record.Record, error) {
	set, err := m.Select(t, whereColumns, whereValues)
	if err != nil {
		return nil, err
	}
	return record.Collect(set)
}

// reread loads loc again under the write lock and checks it still matches.
func (m *Manager) reread(t *catalog.Table, loc record.Location, ords []int, vals []any) (*page.RecordPage, record.Record, bool, error) {
	rp, err := m.store.GetRecordPageById(loc.PageId, t.RecordLength())
	if err != nil {
		return nil, record.Record{}, false, err
	}

	data, ok := rp.ReadSlot(loc.Slot)
	if !ok {
		return nil, record.Record{}, false, nil
	}

	values, err := t.Layout().Decode(data)
	if err != nil {
		return nil, record.Record{}, false, err
	}

	rec := record.Record{Loc: loc, Values: values}
	return rp, rec, rec.Matches(ords, vals), nil
}

func mapValues(t *catalog.Table, dst []any, columns []string, values []string) ([]any, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%d columns but %d values", len(columns), len(values))
	}

	for i, name := range columns {
		ord, ok := t.ColumnOrdinal(name)
		if !ok {
			return nil, fmt.Errorf("table %s has no column %q", t.Name, name)
		}

		v, err := record.Coerce(t.Columns[ord], values[i])
		if err != nil {
			return nil, err
		}
		dst[ord] = v
	}

	return dst, nil
}

func coerceWhere(t *catalog.Table, columns []string, values []string) ([]int, []any, error) {
	if len(columns) != len(values) {
		return nil, nil, fmt.Errorf("%d columns but %d values", len(columns), len(values))
	}

	ords, err := t.GetColumnIndexesByNames(columns)
	if err != nil {
		return nil, nil, err
	}

	vals := make([]any, len(ords))
	for i, ord := range ords {
		if vals[i], err = record.Coerce(t.Columns[ord], values[i]); err != nil {
			return nil, nil, err
		}
	}
	return ords, vals, nil
}

func insertEntries(indexes []index.Index, rec record.Record) error {
	for i, idx := range indexes {
		if err := idx.InsertEntry(rec); err != nil {
			for _, done := range indexes[:i] {
				_ = done.RemoveEntry(rec)
			}
			return err
		}
	}
	return nil
}

func removeEntries(indexes []index.Index, rec record.Record) error {
	for i, idx := range indexes {
		if err := idx.RemoveEntry(rec); err != nil {
			for _, done := range indexes[:i] {
				_ = done.InsertEntry(rec)
			}
			return err
		}
	}
	return nil
}

func replaceEntries(indexes []index.Index, old, rec record.Record) error {
	if err := removeEntries(indexes, old); err != nil {
		return err
	}
	if err := insertEntries(indexes, rec); err != nil {
		_ = insertEntries(indexes, old)
		return err
	}
	return nil
}

// Manager keeps table pages and their indexes consistent. Every mutation of a
// table holds the table's write lock from the page write to the last index
// update.
type Manager struct {
	store   page.Manager
	catalog *catalog.Catalog
	indexes *index.Manager
}

type placement struct {
	loc  record.Location
	rp   *page.RecordPage
	prev *page.RecordPage
}
