// The picodb REPL: an interactive console for the command interpreter.
//
// Lines are parsed into commands, dispatched through the audit/timing
// middleware and rendered as a table (or csv/tsv/json/yaml/markdown with
// -format). Meta commands start with a dot: .help, .tables, .export.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/picodb/picodb/internal/config"
	"github.com/picodb/picodb/internal/engine"
	"github.com/picodb/picodb/internal/exporter"
	"github.com/picodb/picodb/internal/storage"
)

var (
	flagRoot   = flag.String("root", "", "Database directory (overrides config)")
	flagConfig = flag.String("config", "", "Config file path (default picodb.yml if present)")
	flagFormat = flag.String("format", "table", "Output format: table, csv, tsv, json, jsonl, yaml, markdown")
	flagTiming = flag.Bool("timing", false, "Print elapsed time per command")
	flagYes    = flag.Bool("yes", false, "Never prompt for confirmation")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	root := cfg.Root
	if *flagRoot != "" {
		root = *flagRoot
	}

	st, err := storage.Open(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open error:", err)
		os.Exit(1)
	}
	db, err := engine.Open(st)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open error:", err)
		os.Exit(1)
	}
	db.EnableCache(cfg.CacheEnabled())

	var audit *storage.AuditLog
	if cfg.AuditEnabled() {
		audit = storage.NewAuditLog(st)
	}
	var timing engine.TimingFunc
	if *flagTiming {
		timing = func(op string, elapsed time.Duration) {
			fmt.Printf("[time] %s: %.2f ms\n", op, float64(elapsed.Microseconds())/1000.0)
		}
	}

	var backup *storage.BackupScheduler
	if cfg.BackupCron != "" {
		backup, err = storage.NewBackupScheduler(st, cfg.BackupCron)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		backup.Start()
		defer backup.Stop()
	}

	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}

	sc := bufio.NewScanner(os.Stdin)
	ex := &engine.Executor{
		Ops:            engine.Instrument(db, audit, timing),
		Confirm:        confirmFunc(sc, interactive),
		RequireConfirm: cfg.ConfirmRequired() && !*flagYes,
	}

	if interactive {
		fmt.Println("picodb — file-backed record store (JSON, no SQL).")
		fmt.Println("Type help for commands, .help for meta commands, exit to quit.")
	}

	runREPL(sc, db, ex, *flagFormat, interactive)
}

func runREPL(sc *bufio.Scanner, db *engine.Engine, ex *engine.Executor, format string, interactive bool) {
	for {
		if interactive {
			fmt.Print("db> ")
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				fmt.Fprintln(os.Stderr, "read error:", err)
			}
			if interactive {
				fmt.Println()
			}
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			handleMeta(db, line)
			continue
		}

		cmd, err := engine.ParseCommand(line)
		if err != nil {
			printErr(err)
			continue
		}
		res, err := ex.Execute(cmd)
		if err != nil {
			printErr(err)
			continue
		}
		if res.Kind == "exit" {
			return
		}
		printResult(res, format)
	}
}

func printErr(err error) {
	if engine.IsDomainErr(err) {
		fmt.Println("error:", err)
		return
	}
	// Unexpected failure: report generically but keep the session alive.
	fmt.Fprintf(os.Stderr, "unexpected error: %+v\n", err)
}

func printResult(res *engine.Result, format string) {
	switch res.Kind {
	case "help", "ok", "canceled":
		fmt.Println(res.Message)
	case "count":
		fmt.Println(res.Message)
	case "row":
		fmt.Println(res.Message)
		printRows([]engine.Row{res.Row}, format)
	case "rows":
		printRows(res.Select.Rows, format)
		if res.Select.FromCache {
			fmt.Println("(from cache)")
		}
	case "tables":
		if len(res.Tables) == 0 {
			fmt.Println("no tables")
			return
		}
		for _, t := range res.Tables {
			fmt.Printf("%s: %s\n", t.Name, t.Schema)
		}
	}
}

// columnsOf returns the display column order: id first, then the remaining
// fields sorted. Rows carry no schema here, so ordering is derived from the
// data itself.
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
	sort.Slice(cols, func(i, j int) bool {
		if cols[i] == "id" {
			return true
		}
		if cols[j] == "id" {
			return false
		}
		return cols[i] < cols[j]
	})
	return cols
}

func printRows(rows []engine.Row, format string) {
	if len(rows) == 0 {
		fmt.Println("empty")
		return
	}
	cols := columnsOf(rows)
	switch strings.ToLower(format) {
	case "csv", "tsv", "json", "jsonl", "markdown", "md":
		if err := exporter.Export(os.Stdout, format, cols, rows, exporter.Options{}); err != nil {
			fmt.Fprintln(os.Stderr, "format error:", err)
		}
	case "yaml":
		b, err := renderYAML(rows, cols)
		if err != nil {
			fmt.Fprintln(os.Stderr, "format error:", err)
			return
		}
		os.Stdout.Write(b)
	default:
		printTable(rows, cols)
	}
}

func printTable(rows []engine.Row, cols []string) {
	width := make([]int, len(cols))
	for i, c := range cols {
		width[i] = utf8.RuneCountInString(c)
	}
	for _, r := range rows {
		for i, c := range cols {
			if w := utf8.RuneCountInString(cell(r[c])); w > width[i] {
				width[i] = w
			}
		}
	}
	var sb strings.Builder
	for i, c := range cols {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(pad(c, width[i]))
	}
	fmt.Println(sb.String())
	sb.Reset()
	for i := range cols {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", width[i]))
	}
	fmt.Println(sb.String())
	for _, r := range rows {
		sb.Reset()
		for i, c := range cols {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(pad(cell(r[c]), width[i]))
		}
		fmt.Println(sb.String())
	}
}

// renderYAML emits the rows as a YAML sequence of mappings. Nodes are built
// by hand so keys keep the display column order (yaml.Marshal sorts map
// keys); the encoder handles quoting for values that would otherwise break
// the syntax.
func renderYAML(rows []engine.Row, cols []string) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, c := range cols {
			key := &yaml.Node{}
			key.SetString(c)
			val := &yaml.Node{}
			if err := val.Encode(r[c]); err != nil {
				return nil, err
			}
			m.Content = append(m.Content, key, val)
		}
		seq.Content = append(seq.Content, m)
	}
	return yaml.Marshal(seq)
}

func cell(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// pad right-pads to w columns, counting runes so multi-byte values line up.
func pad(s string, w int) string {
	n := utf8.RuneCountInString(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

// confirmFunc builds the executor's confirmation hook. With piped input the
// next line is a queued command, not an answer, so the prompt auto-denies
// instead of consuming it; -yes skips prompting entirely.
func confirmFunc(sc *bufio.Scanner, interactive bool) func(string) bool {
	return func(prompt string) bool {
		if !interactive {
			fmt.Printf("%s: refused (non-interactive session, use -yes)\n", prompt)
			return false
		}
		fmt.Printf("%s (yes/no): ", prompt)
		if !sc.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(sc.Text()))
		return answer == "y" || answer == "yes"
	}
}

func handleMeta(db *engine.Engine, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".help":
		fmt.Println(`Meta commands:
  .help                          this help
  .tables                        list tables with schemas and counters
  .export <fmt> <table> [file]   export a whole table (csv, tsv, json, jsonl, markdown)`)
	case ".tables":
		tables := db.ListTables()
		if len(tables) == 0 {
			fmt.Println("no tables")
			return
		}
		for _, t := range tables {
			fmt.Printf("%s: %s (last_id=%d, file=%s)\n", t.Name, t.Schema, t.LastID, t.RowsFile)
		}
	case ".export":
		if len(fields) < 3 {
			fmt.Println("usage: .export <format> <table> [file]")
			return
		}
		format, table := fields[1], fields[2]
		res, err := db.Select(table, nil)
		if err != nil {
			printErr(err)
			return
		}
		out := os.Stdout
		if len(fields) > 3 {
			f, err := os.Create(fields[3])
			if err != nil {
				fmt.Fprintln(os.Stderr, "export error:", err)
				return
			}
			defer f.Close()
			out = f
		}
		cols := columnsOf(res.Rows)
		if err := exporter.Export(out, format, cols, res.Rows, exporter.Options{PrettyJSON: true}); err != nil {
			fmt.Fprintln(os.Stderr, "export error:", err)
		}
	default:
		fmt.Println("unknown meta command; try .help")
	}
}
