package command

import (
	"github.com/jobala/petrodb/index"
	"github.com/jobala/petrodb/record"
)

// Command is one of the statements below. The set is closed.
type Command interface {
	command()
}

type CreateTable struct {
	Table   string
	Columns []record.Column
}

type DropTable struct {
	Table string
}

type CreateIndex struct {
	Name    string
	Table   string
	Columns []string
	Kind    index.Kind
}

type DropIndex struct {
	Name string
}

type Insert struct {
	Table   string
	Columns []string
	Values  []string
}

// Select with no where columns returns the whole table.
type Select struct {
	Table        string
	WhereColumns []string
	WhereValues  []string
}

type Update struct {
	Table        string
	WhereColumns []string
	WhereValues  []string
	SetColumns   []string
	SetValues    []string
}

type Delete struct {
	Table        string
	WhereColumns []string
	WhereValues  []string
}

func (CreateTable) command() {}
func (DropTable) command()   {}
func (CreateIndex) command() {}
func (DropIndex) command()   {}
func (Insert) command()      {}
func (Select) command()      {}
func (Update) command()      {}
func (Delete) command()      {}

type Result struct {
	Affected int
	Columns  []record.Column
	Records  []record.Record
}
