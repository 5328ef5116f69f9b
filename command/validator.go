package command

import (
	"github.com/jobala/petrodb/catalog"
	"github.com/jobala/petrodb/index"
	"github.com/jobala/petrodb/record"
	"github.com/jobala/petrodb/util"
)

// Validator catches client mistakes before anything is written.
type Validator struct {
	catalog *catalog.Catalog
}

func NewValidator(c *catalog.Catalog) *Validator {
	return &Validator{catalog: c}
}

func (v *Validator) GetTable(name string) (*catalog.Table, error) {
	t, err := v.catalog.GetTable(name)
	if err != nil {
		return nil, util.NewSemanticError("unknown table %q", name)
	}
	return t, nil
}

// CheckColumns verifies every column exists in t and each has a value.
func (v *Validator) CheckColumns(t *catalog.Table, columns []string, values []string) error {
	if len(columns) != len(values) {
		return util.NewSemanticError("table %s: %d columns but %d values", t.Name, len(columns), len(values))
	}

	for _, name := range columns {
		if _, ok := t.ColumnOrdinal(name); !ok {
			return util.NewSemanticError("table %s has no column %q", t.Name, name)
		}
	}
	return nil
}

func (v *Validator) AssertColumnsUnique(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, name := range columns {
		if seen[name] {
			return util.NewSemanticError("column %q appears more than once", name)
		}
		seen[name] = true
	}
	return nil
}

func (v *Validator) CheckTableDefinition(name string, columns []record.Column) error {
	if name == "" {
		return util.NewSemanticError("table name is empty")
	}
	if _, err := v.catalog.GetTable(name); err == nil {
		return util.NewSemanticError("table %s already exists", name)
	}
	if len(columns) == 0 {
		return util.NewSemanticError("table %s has no columns", name)
	}

	names := make([]string, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return util.NewSemanticError("table %s: column %d has no name", name, i)
		}
		names[i] = col.Name
	}
	return v.AssertColumnsUnique(names)
}

func (v *Validator) CheckIndexDefinition(t *catalog.Table, name string, columns []string, kind index.Kind) error {
	if name == "" {
		return util.NewSemanticError("index name is empty")
	}
	for _, def := range v.catalog.Indexes() {
		if def.Name == name {
			return util.NewSemanticError("index %s already exists", name)
		}
	}
	if kind != index.HASH_INDEX && kind != index.SORTED_INDEX {
		return util.NewSemanticError("unknown index kind %q", kind)
	}
	if len(columns) == 0 {
		return util.NewSemanticError("index %s has no columns", name)
	}

	for _, col := range columns {
		if _, ok := t.ColumnOrdinal(col); !ok {
			return util.NewSemanticError("table %s has no column %q", t.Name, col)
		}
	}
	return v.AssertColumnsUnique(columns)
}
