package command

import (
	"fmt"

	"github.com/jobala/petrodb/catalog"
	"github.com/jobala/petrodb/index"
	"github.com/jobala/petrodb/record"
	"github.com/jobala/petrodb/table"
	"github.com/jobala/petrodb/util"
)

// Env holds what commands run against. It is built once when the engine opens.
type Env struct {
	Catalog   *catalog.Catalog
	Indexes   *index.Manager
	Tables    *table.Manager
	Validator *Validator
}

// Execute runs cmd. Client mistakes come back as *util.SemanticError and leave
// storage untouched; engine failures come back as *util.CommandExecutionError.
func Execute(env *Env, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case CreateTable:
		return createTable(env, c)
	case DropTable:
		return dropTable(env, c)
	case CreateIndex:
		return createIndex(env, c)
	case DropIndex:
		return dropIndex(env, c)
	case Insert:
		return insert(env, c)
	case Select:
		return selectRecords(env, c)
	case Update:
		return update(env, c)
	case Delete:
		return deleteRecords(env, c)
	}

	return Result{}, fmt.Errorf("unsupported command %T", cmd)
}

func createTable(env *Env, c CreateTable) (Result, error) {
	if err := env.Validator.CheckTableDefinition(c.Table, c.Columns); err != nil {
		return Result{}, err
	}

	t, err := env.Tables.CreateTable(c.Table, c.Columns)
	if err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}
	return Result{Columns: t.Columns}, nil
}

func dropTable(env *Env, c DropTable) (Result, error) {
	t, err := env.Validator.GetTable(c.Table)
	if err != nil {
		return Result{}, err
	}

	if err := env.Tables.DropTable(t); err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}
	return Result{}, nil
}

func createIndex(env *Env, c CreateIndex) (Result, error) {
	t, err := env.Validator.GetTable(c.Table)
	if err != nil {
		return Result{}, err
	}
	if err := env.Validator.CheckIndexDefinition(t, c.Name, c.Columns, c.Kind); err != nil {
		return Result{}, err
	}

	idx, err := env.Indexes.CreateIndex(c.Name, t, c.Columns, c.Kind)
	if err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}
	return Result{Affected: idx.Len()}, nil
}

func dropIndex(env *Env, c DropIndex) (Result, error) {
	if _, ok := env.Indexes.GetIndex(c.Name); !ok {
		return Result{}, util.NewSemanticError("unknown index %q", c.Name)
	}

	if err := env.Indexes.DropIndex(c.Name); err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}
	return Result{}, nil
}

func insert(env *Env, c Insert) (Result, error) {
	t, err := env.Validator.GetTable(c.Table)
	if err != nil {
		return Result{}, err
	}
	if err := env.Validator.CheckColumns(t, c.Columns, c.Values); err != nil {
		return Result{}, err
	}
	if err := env.Validator.AssertColumnsUnique(c.Columns); err != nil {
		return Result{}, err
	}

	if _, err := env.Tables.Insert(t, c.Columns, c.Values); err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}
	return Result{Affected: 1}, nil
}

func selectRecords(env *Env, c Select) (Result, error) {
	t, err := env.Validator.GetTable(c.Table)
	if err != nil {
		return Result{}, err
	}
	if err := checkWhere(env.Validator, t, c.WhereColumns, c.WhereValues); err != nil {
		return Result{}, err
	}

	set, err := env.Tables.Select(t, c.WhereColumns, c.WhereValues)
	if err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}

	recs, err := record.Collect(set)
	if err != nil {
		return Result{}, util.NewCommandExecutionError(err)
	}
	return Result{Affected: len(recs), Columns: t.Columns, Records: recs}, nil
}

func update(env *Env, c Update) (Result, error) {
	t, err := env.Validator.GetTable(c.Table)
	if err != nil {
		return Result{}, err
	}
	if err := checkWhere(env.Validator, t, c.WhereColumns, c.WhereValues); err != nil {
		return Result{}, err
	}
	if len(c.SetColumns) == 0 {
		return Result{}, util.NewSemanticError("update %s sets no columns", t.Name)
	}
	if err := env.Validator.CheckColumns(t, c.SetColumns, c.SetValues); err != nil {
		return Result{}, err
	}
	if err := env.Validator.AssertColumnsUnique(c.SetColumns); err != nil {
		return Result{}, err
	}

	n, err := env.Tables.Update(t, c.WhereColumns, c.WhereValues, c.SetColumns, c.SetValues)
	if err != nil {
		return Result{Affected: n}, util.NewCommandExecutionError(err)
	}
	return Result{Affected: n}, nil
}

func deleteRecords(env *Env, c Delete) (Result, error) {
	t, err := env.Validator.GetTable(c.Table)
	if err != nil {
		return Result{}, err
	}
	if err := checkWhere(env.Validator, t, c.WhereColumns, c.WhereValues); err != nil {
		return Result{}, err
	}

	n, err := env.Tables.Delete(t, c.WhereColumns, c.WhereValues)
	if err != nil {
		return Result{Affected: n}, util.NewCommandExecutionError(err)
	}
	return Result{Affected: n}, nil
}

func checkWhere(v *Validator, t *catalog.Table, columns, values []string) error {
	if err := v.CheckColumns(t, columns, values); err != nil {
		return err
	}
	return v.AssertColumnsUnique(columns)
}
