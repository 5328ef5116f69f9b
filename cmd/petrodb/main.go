// Command petrodb runs single statements against a petrodb data directory.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/jobala/petrodb/command"
	"github.com/jobala/petrodb/config"
	"github.com/jobala/petrodb/engine"
	"github.com/jobala/petrodb/index"
	"github.com/jobala/petrodb/record"
)

// runContext is bound into every subcommand's Run.
type runContext struct {
	db  *engine.Engine
	out io.Writer
}

type CLI struct {
	Config  string `name:"config" short:"c" help:"Config file (default: petro.ini)" default:"petro.ini" type:"path"`
	DataDir string `name:"data-dir" short:"d" help:"Overrides storage.data_dir"`

	CreateTable CreateTableCmd `cmd:"" help:"Create a table from name:type column definitions"`
	DropTable   DropTableCmd   `cmd:"" help:"Drop a table and its indexes"`
	CreateIndex CreateIndexCmd `cmd:"" help:"Create an equality index over columns"`
	DropIndex   DropIndexCmd   `cmd:"" help:"Drop an index"`
	Insert      InsertCmd      `cmd:"" help:"Insert one record given as column=value pairs"`
	Select      SelectCmd      `cmd:"" help:"Print records matching every --where pair"`
	Update      UpdateCmd      `cmd:"" help:"Rewrite columns of matching records"`
	Delete      DeleteCmd      `cmd:"" help:"Delete matching records"`
}

type CreateTableCmd struct {
	Table   string   `arg:"" help:"Table name"`
	Columns []string `arg:"" help:"Columns as name:type where type is int, decimal, text or text(n)"`
}

func (c *CreateTableCmd) Run(rc *runContext) error {
	columns := make([]record.Column, len(c.Columns))
	for i, spec := range c.Columns {
		col, err := record.ParseColumn(spec)
		if err != nil {
			return err
		}
		columns[i] = col
	}

	if _, err := rc.db.Execute(command.CreateTable{Table: c.Table, Columns: columns}); err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "created table %s\n", c.Table)
	return nil
}

type DropTableCmd struct {
	Table string `arg:"" help:"Table name"`
}

func (d *DropTableCmd) Run(rc *runContext) error {
	if _, err := rc.db.Execute(command.DropTable{Table: d.Table}); err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "dropped table %s\n", d.Table)
	return nil
}

type CreateIndexCmd struct {
	Name    string   `arg:"" help:"Index name"`
	Table   string   `arg:"" help:"Table name"`
	Columns []string `arg:"" help:"Key columns"`
	Kind    string   `name:"kind" short:"k" default:"hash" enum:"hash,sorted" help:"Index kind: hash or sorted"`
}

func (c *CreateIndexCmd) Run(rc *runContext) error {
	res, err := rc.db.Execute(command.CreateIndex{Name: c.Name, Table: c.Table, Columns: c.Columns, Kind: index.Kind(c.Kind)})
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "created index %s with %d entries\n", c.Name, res.Affected)
	return nil
}

type DropIndexCmd struct {
	Name string `arg:"" help:"Index name"`
}

func (d *DropIndexCmd) Run(rc *runContext) error {
	if _, err := rc.db.Execute(command.DropIndex{Name: d.Name}); err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "dropped index %s\n", d.Name)
	return nil
}

type InsertCmd struct {
	Table  string   `arg:"" help:"Table name"`
	Values []string `arg:"" help:"column=value pairs; NULL stores a null"`
}

func (i *InsertCmd) Run(rc *runContext) error {
	columns, values, err := parseAssignments(i.Values)
	if err != nil {
		return err
	}

	res, err := rc.db.Execute(command.Insert{Table: i.Table, Columns: columns, Values: values})
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "%d row inserted\n", res.Affected)
	return nil
}

type SelectCmd struct {
	Table string   `arg:"" help:"Table name"`
	Where []string `name:"where" short:"w" help:"column=value equality condition, repeatable"`
}

func (s *SelectCmd) Run(rc *runContext) error {
	columns, values, err := parseAssignments(s.Where)
	if err != nil {
		return err
	}

	res, err := rc.db.Execute(command.Select{Table: s.Table, WhereColumns: columns, WhereValues: values})
	if err != nil {
		return err
	}
	return printResult(rc.out, res)
}

type UpdateCmd struct {
	Table string   `arg:"" help:"Table name"`
	Set   []string `name:"set" short:"s" required:"" help:"column=value to write, repeatable"`
	Where []string `name:"where" short:"w" help:"column=value equality condition, repeatable"`
}

func (u *UpdateCmd) Run(rc *runContext) error {
	setColumns, setValues, err := parseAssignments(u.Set)
	if err != nil {
		return err
	}
	whereColumns, whereValues, err := parseAssignments(u.Where)
	if err != nil {
		return err
	}

	res, err := rc.db.Execute(command.Update{
		Table:        u.Table,
		WhereColumns: whereColumns,
		WhereValues:  whereValues,
		SetColumns:   setColumns,
		SetValues:    setValues,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "%d rows updated\n", res.Affected)
	return nil
}

type DeleteCmd struct {
	Table string   `arg:"" help:"Table name"`
	Where []string `name:"where" short:"w" help:"column=value equality condition, repeatable"`
}

func (d *DeleteCmd) Run(rc *runContext) error {
	columns, values, err := parseAssignments(d.Where)
	if err != nil {
		return err
	}

	res, err := rc.db.Execute(command.Delete{Table: d.Table, WhereColumns: columns, WhereValues: values})
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "%d rows deleted\n", res.Affected)
	return nil
}

func parseAssignments(pairs []string) ([]string, []string, error) {
	columns := make([]string, 0, len(pairs))
	values := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		column, value, ok := strings.Cut(pair, "=")
		if !ok || column == "" {
			return nil, nil, fmt.Errorf("expected column=value, got %q", pair)
		}
		columns = append(columns, column)
		values = append(values, value)
	}
	return columns, values, nil
}

func printResult(out io.Writer, res command.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col.Name
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, rec := range res.Records {
		row := make([]string, len(rec.Values))
		for i, v := range rec.Values {
			row[i] = record.Format(v)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "(%d rows)\n", len(res.Records))
	return err
}

func loadCfg(cli *CLI) (*config.Cfg, error) {
	cfg, err := config.NewCfg().Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.DataDir != "" {
		cfg.DataDir = cli.DataDir
	}
	return cfg, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("petrodb"),
		kong.Description("Paged table storage with hash and sorted indexes"),
		kong.UsageOnError(),
	)

	cfg, err := loadCfg(&cli)
	ctx.FatalIfErrorf(err)

	db, err := engine.Open(cfg)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&runContext{db: db, out: os.Stdout})
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	ctx.FatalIfErrorf(err)
}
