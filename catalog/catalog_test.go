package catalog

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobala/petrodb/record"
)

func empTable(firstPageId int64) *Table {
	return NewTable("emp", []record.Column{
		{Name: "id", Type: record.INT_TYPE, Width: record.INT_WIDTH},
		{Name: "name", Type: record.TEXT_TYPE, Width: 16},
	}, firstPageId)
}

func TestTable(t *testing.T) {
	emp := empTable(1)

	ords, err := emp.GetColumnIndexesByNames([]string{"name", "id"})
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ords)

	_, err = emp.GetColumnIndexesByNames([]string{"age"})
	assert.Error(t, err)

	assert.Equal(t, 9+19, emp.RecordLength())
}

func TestCatalog(t *testing.T) {
	t.Run("tables and indexes persist", func(t *testing.T) {
		catalogFile := path.Join(t.TempDir(), "catalog.mp")

		c, err := Open(catalogFile)
		require.NoError(t, err)
		require.NoError(t, c.AddTable(empTable(1)))
		require.NoError(t, c.AddIndex(IndexDef{Name: "idx_id", Table: "emp", Columns: []string{"id"}, Kind: "hash"}))
		require.NoError(t, c.AddIndex(IndexDef{Name: "idx_name", Table: "emp", Columns: []string{"name"}, Kind: "sorted"}))

		reopened, err := Open(catalogFile)
		require.NoError(t, err)

		emp, err := reopened.GetTable("emp")
		require.NoError(t, err)
		assert.Equal(t, int64(1), emp.FirstPageId)
		assert.Equal(t, "name", emp.Columns[1].Name)
		assert.Equal(t, 16, emp.Columns[1].Width)

		defs := reopened.Indexes()
		require.Len(t, defs, 2)
		assert.Equal(t, "idx_id", defs[0].Name)
		assert.Equal(t, "idx_name", defs[1].Name)
	})

	t.Run("duplicates are rejected", func(t *testing.T) {
		c := New()
		require.NoError(t, c.AddTable(empTable(1)))

		assert.ErrorIs(t, c.AddTable(empTable(2)), ErrTableExists)

		require.NoError(t, c.AddIndex(IndexDef{Name: "idx", Table: "emp"}))
		assert.ErrorIs(t, c.AddIndex(IndexDef{Name: "idx", Table: "emp"}), ErrIndexExists)
	})

	t.Run("removing a table drops its indexes", func(t *testing.T) {
		c := New()
		require.NoError(t, c.AddTable(empTable(1)))
		require.NoError(t, c.AddIndex(IndexDef{Name: "idx", Table: "emp"}))

		require.NoError(t, c.RemoveTable("emp"))

		_, err := c.GetTable("emp")
		assert.ErrorIs(t, err, ErrTableNotFound)
		assert.Empty(t, c.Indexes())
		assert.Empty(t, c.Tables())
		assert.ErrorIs(t, c.RemoveTable("emp"), ErrTableNotFound)
	})

	t.Run("invalid schemas are rejected", func(t *testing.T) {
		c := New()

		assert.Error(t, c.AddTable(NewTable("empty", nil, 1)))
		assert.Error(t, c.AddTable(NewTable("dup", []record.Column{
			{Name: "id", Type: record.INT_TYPE, Width: 8},
			{Name: "id", Type: record.INT_TYPE, Width: 8},
		}, 1)))
		assert.Error(t, c.AddTable(NewTable("wide", []record.Column{
			{Name: "a", Type: record.TEXT_TYPE, Width: 1024},
			{Name: "b", Type: record.TEXT_TYPE, Width: 1024},
			{Name: "c", Type: record.TEXT_TYPE, Width: 1024},
			{Name: "d", Type: record.TEXT_TYPE, Width: 1024},
		}, 1)))
	})
}
