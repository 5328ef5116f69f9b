package index

import (
	"context"
	"fmt"
	"slices"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jobala/petrodb/catalog"
	"github.com/jobala/petrodb/logger"
	"github.com/jobala/petrodb/record"
	"github.com/jobala/petrodb/storage/page"
)

func NewManager(store page.Manager, c *catalog.Catalog) *Manager {
	return &Manager{
		store:   store,
		catalog: c,
		byTable: map[string][]Index{},
	}
}

// CreateIndex builds an index over every record currently in t and registers
// it after the indexes already on t.
func (m *Manager) CreateIndex(name string, t *catalog.Table, columns []string, kind Kind) (Index, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("index %s needs at least one column", name)
	}

	ords, err := t.GetColumnIndexesByNames(columns)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "index %s", name)
	}

	idx, err := New(kind, name, t, ords, m.store)
	if err != nil {
		return nil, err
	}

	t.Lock()
	defer t.Unlock()

	if err := m.backfill(idx); err != nil {
		return nil, err
	}

	def := catalog.IndexDef{Name: name, Table: t.Name, Columns: columns, Kind: string(kind)}
	if err := m.catalog.AddIndex(def); err != nil {
		return nil, err
	}

	m.register(idx)
	logger.WithFields(logrus.Fields{"index": name, "table": t.Name, "entries": idx.Len()}).Info("created index")
	return idx, nil
}

// backfill expects the table lock to be held.
func (m *Manager) backfill(idx Index) error {
	t := idx.Table()
	layout := t.Layout()

	for rp, err := range page.Chain(m.store, t.FirstPageId, t.RecordLength()) {
		if err != nil {
			return pkgerrors.Wrapf(err, "building index %s", idx.Name())
		}

		for slot := range rp.Capacity() {
			data, ok := rp.ReadSlot(slot)
			if !ok {
				continue
			}

			values, err := layout.Decode(data)
			if err != nil {
				return pkgerrors.Wrapf(err, "building index %s", idx.Name())
			}

			rec := record.Record{Loc: record.Location{PageId: rp.Id(), Slot: slot}, Values: values}
			if err := idx.InsertEntry(rec); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Manager) register(idx Index) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := idx.Table().Name
	m.byTable[name] = append(m.byTable[name], idx)
}

// Rebuild recreates every index defined in the catalog. Indexes are built
// concurrently and registered in catalog order.
func (m *Manager) Rebuild(ctx context.Context) error {
	defs := m.catalog.Indexes()
	built := make([]Index, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			t, err := m.catalog.GetTable(def.Table)
			if err != nil {
				return pkgerrors.Wrapf(err, "rebuilding index %s", def.Name)
			}

			ords, err := t.GetColumnIndexesByNames(def.Columns)
			if err != nil {
				return pkgerrors.Wrapf(err, "rebuilding index %s", def.Name)
			}

			idx, err := New(Kind(def.Kind), def.Name, t, ords, m.store)
			if err != nil {
				return err
			}

			t.Lock()
			defer t.Unlock()
			if err := m.backfill(idx); err != nil {
				return err
			}

			built[i] = idx
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	m.byTable = map[string][]Index{}
	m.mu.Unlock()

	for _, idx := range built {
		m.register(idx)
	}

	logger.Infof("rebuilt %d indexes", len(built))
	return nil
}

func (m *Manager) GetIndexesForTable(t *catalog.Table) []Index {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.byTable[t.Name])
}

func (m *Manager) GetIndex(name string) (Index, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, indexes := range m.byTable {
		for _, idx := range indexes {
			if idx.Name() == name {
				return idx, true
			}
		}
	}
	return nil, false
}

// BuildIndexedRecordSetIfPossible answers an equality lookup from the first
// registered index keyed on exactly the given columns. ErrNoIndex means the
// caller has to scan the table.
func (m *Manager) BuildIndexedRecordSetIfPossible(t *catalog.Table, columns []string, values []string) (record.Set, error) {
	ords, err := t.GetColumnIndexesByNames(columns)
	if err != nil {
		return nil, err
	}

	for _, idx := range m.GetIndexesForTable(t) {
		if idx.IsMatchingFor(ords, EQUALITY_MATCHING_TYPE) {
			return idx.BuildRecordSetMatchingEqualityCondition(ords, values)
		}
	}

	return nil, ErrNoIndex
}

// DropIndex unregisters the index and removes its definition from the catalog.
func (m *Manager) DropIndex(name string) error {
	idx, ok := m.GetIndex(name)
	if !ok {
		return pkgerrors.Wrapf(ErrIndexNotFound, "index %s", name)
	}

	t := idx.Table()
	t.Lock()
	defer t.Unlock()

	m.mu.Lock()
	m.byTable[t.Name] = slices.DeleteFunc(m.byTable[t.Name], func(other Index) bool { return other == idx })
	m.mu.Unlock()

	if err := m.catalog.RemoveIndex(name); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"index": name, "table": t.Name}).Info("dropped index")
	return nil
}

// DropIndexesForTable forgets t's indexes. Their definitions go away with the
// table's catalog entry.
func (m *Manager) DropIndexesForTable(t *catalog.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byTable, t.Name)
}

// Manager owns the indexes of every table, kept in registration order.
type Manager struct {
	mu      sync.RWMutex
	store   page.Manager
	catalog *catalog.Catalog
	byTable map[string][]Index
}
