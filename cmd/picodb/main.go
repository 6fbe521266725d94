// The picodb one-shot CLI: every invocation runs exactly one command
// against the database directory and exits.
//
//	picodb create-table users name:str age:int is_active:bool
//	picodb insert users name=Alice age=30 is_active=true
//	picodb select users -where 'age>=30 and is_active=true' -format json
//	picodb update users -set 'age=31' -where 'name="Alice"'
//	picodb delete users -yes
//
// -where may be repeated; multiple occurrences are conjoined with AND.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/picodb/picodb/internal/config"
	"github.com/picodb/picodb/internal/engine"
	"github.com/picodb/picodb/internal/exporter"
	"github.com/picodb/picodb/internal/storage"
)

const usage = `usage: picodb [-root DIR] [-config FILE] <command> [args]

Commands:
  create-table <table> <field:type> ...
  drop-table   <table> [-yes]
  list-tables
  insert       <table> <field=value> ...
  select       <table> [-where COND]... [-format FMT]
  update       <table> -set 'field=value,...' [-where COND]...
  delete       <table> [-where COND]... [-yes]
  backup
  help
`

// whereFlags collects repeated -where occurrences.
type whereFlags []string

func (w *whereFlags) String() string { return strings.Join(*w, " and ") }
func (w *whereFlags) Set(v string) error {
	*w = append(*w, v)
	return nil
}

func main() {
	flagRoot := flag.String("root", "", "Database directory (overrides config)")
	flagConfig := flag.String("config", "", "Config file path (default picodb.yml if present)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || args[0] == "help" {
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fatal(err)
	}
	root := cfg.Root
	if *flagRoot != "" {
		root = *flagRoot
	}
	st, err := storage.Open(root)
	if err != nil {
		fatal(err)
	}
	db, err := engine.Open(st)
	if err != nil {
		fatal(err)
	}
	db.EnableCache(cfg.CacheEnabled())

	var audit *storage.AuditLog
	if cfg.AuditEnabled() {
		audit = storage.NewAuditLog(st)
	}
	ops := engine.Instrument(db, audit, nil)

	if err := dispatch(st, cfg, ops, args[0], args[1:]); err != nil {
		if engine.IsDomainErr(err) {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

//nolint:gocyclo // One-shot dispatcher enumerates every subcommand in one switch.
func dispatch(st *storage.Store, cfg *config.Config, ops engine.Operations, cmd string, args []string) error {
	switch cmd {
	case "create-table":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: create-table <table> <field:type> ...", engine.ErrParse)
		}
		cols := make([]engine.Column, 0, len(args)-1)
		for _, spec := range args[1:] {
			c, err := engine.ParseColumnSpec(spec)
			if err != nil {
				return err
			}
			cols = append(cols, c)
		}
		if err := ops.CreateTable(args[0], cols); err != nil {
			return err
		}
		fmt.Printf("table %q created\n", args[0])
		return nil

	case "drop-table":
		fs := flag.NewFlagSet("drop-table", flag.ExitOnError)
		yes := fs.Bool("yes", false, "Skip confirmation")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: usage: drop-table <table> [-yes]", engine.ErrParse)
		}
		if cfg.ConfirmRequired() && !*yes {
			return fmt.Errorf("%w: dropping a table needs -yes", engine.ErrValidation)
		}
		if err := ops.DropTable(fs.Arg(0)); err != nil {
			return err
		}
		fmt.Printf("table %q dropped\n", fs.Arg(0))
		return nil

	case "list-tables":
		tables := ops.ListTables()
		if len(tables) == 0 {
			fmt.Println("no tables")
			return nil
		}
		for _, t := range tables {
			fmt.Printf("%s: %s\n", t.Name, t.Schema)
		}
		return nil

	case "insert":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: insert <table> <field=value> ...", engine.ErrParse)
		}
		values := map[string]string{}
		for _, pair := range args[1:] {
			idx := strings.Index(pair, "=")
			if idx <= 0 {
				return fmt.Errorf("%w: expected field=value, got %q", engine.ErrParse, pair)
			}
			values[strings.TrimSpace(pair[:idx])] = strings.TrimSpace(pair[idx+1:])
		}
		row, err := ops.Insert(args[0], values)
		if err != nil {
			return err
		}
		fmt.Printf("inserted row id=%v\n", row[engine.ReservedIDField])
		return nil

	case "select":
		fs := flag.NewFlagSet("select", flag.ExitOnError)
		var wheres whereFlags
		fs.Var(&wheres, "where", "Filter condition (repeatable, AND semantics)")
		format := fs.String("format", "table", "Output format: table, csv, tsv, json, jsonl, markdown")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: usage: select <table> [-where COND]...", engine.ErrParse)
		}
		pred, err := compileWheres(wheres)
		if err != nil {
			return err
		}
		res, err := ops.Select(fs.Arg(0), pred)
		if err != nil {
			return err
		}
		return render(res, *format)

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		var wheres whereFlags
		fs.Var(&wheres, "where", "Filter condition (repeatable, AND semantics)")
		set := fs.String("set", "", "Comma-separated field=value assignments")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 || *set == "" {
			return fmt.Errorf("%w: usage: update <table> -set 'field=value,...' [-where COND]...", engine.ErrParse)
		}
		setValues, err := parseSet(*set)
		if err != nil {
			return err
		}
		pred, err := compileWheres(wheres)
		if err != nil {
			return err
		}
		n, err := ops.Update(fs.Arg(0), setValues, pred)
		if err != nil {
			return err
		}
		fmt.Printf("updated rows: %d\n", n)
		return nil

	case "delete":
		fs := flag.NewFlagSet("delete", flag.ExitOnError)
		var wheres whereFlags
		fs.Var(&wheres, "where", "Filter condition (repeatable, AND semantics)")
		yes := fs.Bool("yes", false, "Allow deleting all rows without a filter")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: usage: delete <table> [-where COND]... [-yes]", engine.ErrParse)
		}
		if len(wheres) == 0 && cfg.ConfirmRequired() && !*yes {
			return fmt.Errorf("%w: deleting the whole table needs -yes", engine.ErrValidation)
		}
		pred, err := compileWheres(wheres)
		if err != nil {
			return err
		}
		n, err := ops.Delete(fs.Arg(0), pred)
		if err != nil {
			return err
		}
		fmt.Printf("deleted rows: %d\n", n)
		return nil

	case "backup":
		dir, err := st.Snapshot()
		if err != nil {
			return err
		}
		fmt.Println("backup written to", dir)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", engine.ErrParse, cmd)
}

// compileWheres builds one predicate out of repeated -where flags. A single
// flag may carry a full and/or expression; multiple flags are parsed as
// plain comparisons and conjoined.
func compileWheres(wheres []string) (*engine.Predicate, error) {
	switch len(wheres) {
	case 0:
		return nil, nil
	case 1:
		return engine.CompileWhere(wheres[0])
	}
	conds := make([]engine.Condition, 0, len(wheres))
	for _, phrase := range wheres {
		c, err := engine.ParseComparison(phrase)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return engine.CompileConjunction(conds)
}

func parseSet(text string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("%w: expected field=value, got %q", engine.ErrParse, part)
		}
		out[strings.TrimSpace(part[:idx])] = strings.TrimSpace(part[idx+1:])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: -set must not be empty", engine.ErrParse)
	}
	return out, nil
}

func render(res *engine.SelectResult, format string) error {
	if len(res.Rows) == 0 {
		fmt.Println("empty")
		return nil
	}
	cols := columnsOf(res.Rows)
	switch strings.ToLower(format) {
	case "table":
		for _, r := range res.Rows {
			parts := make([]string, len(cols))
			for i, c := range cols {
				parts[i] = fmt.Sprintf("%s=%v", c, r[c])
			}
			fmt.Println(strings.Join(parts, "  "))
		}
	default:
		if err := exporter.Export(os.Stdout, format, cols, res.Rows, exporter.Options{}); err != nil {
			return err
		}
	}
	if res.FromCache {
		fmt.Fprintln(os.Stderr, "(from cache)")
	}
	return nil
}

func columnsOf(rows []engine.Row) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for c := range r {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	// id first, remaining fields alphabetical
	sort.Slice(cols, func(i, j int) bool {
		if cols[i] == engine.ReservedIDField {
			return true
		}
		if cols[j] == engine.ReservedIDField {
			return false
		}
		return cols[i] < cols[j]
	})
	return cols
}
