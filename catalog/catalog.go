package catalog

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/jobala/petrodb/record"
	"github.com/jobala/petrodb/storage/page"
	"github.com/jobala/petrodb/util"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrIndexExists   = errors.New("index already exists")
	ErrTableDropped  = errors.New("table was dropped")
)

func New() *Catalog {
	return &Catalog{tables: map[string]*Table{}}
}

func Open(path string) (*Catalog, error) {
	c := New()
	c.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading catalog %s", path)
	}

	file, err := util.ToStruct[catalogFile](data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "decoding catalog %s", path)
	}

	for _, t := range file.Tables {
		c.tables[t.Name] = NewTable(t.Name, t.Columns, t.FirstPageId)
		c.order = append(c.order, t.Name)
	}
	c.indexes = file.Indexes

	return c, nil
}

func (c *Catalog) AddTable(t *Table) error {
	if err := ValidateColumns(t.Columns); err != nil {
		return pkgerrors.Wrapf(err, "table %s", t.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[t.Name]; ok {
		return pkgerrors.Wrapf(ErrTableExists, "table %s", t.Name)
	}

	c.tables[t.Name] = t
	c.order = append(c.order, t.Name)
	if err := c.save(); err != nil {
		delete(c.tables, t.Name)
		c.order = c.order[:len(c.order)-1]
		return err
	}

	return nil
}

// ValidateColumns checks a schema can be laid out in a record page.
func ValidateColumns(columns []record.Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("a table needs at least one column")
	}

	seen := map[string]bool{}
	for _, col := range columns {
		if col.Name == "" {
			return fmt.Errorf("column names must not be empty")
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = true
	}

	if page.RecordCapacity(record.NewLayout(columns).Length()) == 0 {
		return fmt.Errorf("records of this schema do not fit in a page")
	}
	return nil
}

func (c *Catalog) GetTable(name string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[name]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrTableNotFound, "table %s", name)
	}
	return t, nil
}

func (c *Catalog) Tables() []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*Table, 0, len(c.order))
	for _, name := range c.order {
		res = append(res, c.tables[name])
	}
	return res
}

// RemoveTable drops the table and every index defined on it.
func (c *Catalog) RemoveTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[name]; !ok {
		return pkgerrors.Wrapf(ErrTableNotFound, "table %s", name)
	}

	delete(c.tables, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	c.indexes = slices.DeleteFunc(c.indexes, func(def IndexDef) bool { return def.Table == name })

	return c.save()
}

func (c *Catalog) AddIndex(def IndexDef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.indexes {
		if existing.Name == def.Name {
			return pkgerrors.Wrapf(ErrIndexExists, "index %s", def.Name)
		}
	}

	c.indexes = append(c.indexes, def)
	if err := c.save(); err != nil {
		c.indexes = c.indexes[:len(c.indexes)-1]
		return err
	}
	return nil
}

func (c *Catalog) RemoveIndex(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.indexes = slices.DeleteFunc(c.indexes, func(def IndexDef) bool { return def.Name == name })
	return c.save()
}

// Indexes lists index definitions in registration order.
func (c *Catalog) Indexes() []IndexDef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.indexes)
}

func (c *Catalog) save() error {
	if c.path == "" {
		return nil
	}

	file := catalogFile{Indexes: c.indexes}
	for _, name := range c.order {
		file.Tables = append(file.Tables, c.tables[name])
	}

	data, err := util.ToByteSlice(file)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding catalog")
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return pkgerrors.Wrapf(err, "writing catalog %s", tmp)
	}
	return pkgerrors.Wrapf(os.Rename(tmp, c.path), "replacing catalog %s", c.path)
}

type IndexDef struct {
	Name    string
	Table   string
	Columns []string
	Kind    string
}

type catalogFile struct {
	Tables  []*Table
	Indexes []IndexDef
}

// Catalog tracks tables and index definitions. With an empty path nothing
// is persisted.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	tables  map[string]*Table
	order   []string
	indexes []IndexDef
}
