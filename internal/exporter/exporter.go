// Package exporter renders query results in machine-readable formats for
// the CLI and the REPL's .export meta command.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/picodb/picodb/internal/engine"
)

// Options controls exporter behavior.
type Options struct {
	PrettyJSON   bool
	CSVNoHeader  bool
	CSVDelimiter rune
}

func valueToString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// ExportCSV writes rows as CSV to w. Column order is preserved.
func ExportCSV(w io.Writer, cols []string, rows []engine.Row, opts Options) error {
	csvw := csv.NewWriter(w)
	if opts.CSVDelimiter != 0 {
		csvw.Comma = opts.CSVDelimiter
	}
	if !opts.CSVNoHeader {
		if err := csvw.Write(cols); err != nil {
			return err
		}
	}
	for _, r := range rows {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = valueToString(r[c])
		}
		if err := csvw.Write(row); err != nil {
			return err
		}
	}
	csvw.Flush()
	return csvw.Error()
}

// ExportTSV is ExportCSV with a tab delimiter.
func ExportTSV(w io.Writer, cols []string, rows []engine.Row, opts Options) error {
	opts.CSVDelimiter = '\t'
	return ExportCSV(w, cols, rows, opts)
}

// ExportJSON writes rows as a JSON array of objects.
func ExportJSON(w io.Writer, cols []string, rows []engine.Row, opts Options) error {
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(cols))
		for _, c := range cols {
			m[c] = r[c]
		}
		out[i] = m
	}
	return enc.Encode(out)
}

// ExportJSONL writes one JSON object per line, suitable for streaming
// consumers.
func ExportJSONL(w io.Writer, cols []string, rows []engine.Row) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		m := make(map[string]any, len(cols))
		for _, c := range cols {
			m[c] = r[c]
		}
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

// ExportMarkdown writes rows as a GitHub-style Markdown table.
func ExportMarkdown(w io.Writer, cols []string, rows []engine.Row) error {
	if _, err := fmt.Fprintln(w, "| "+strings.Join(cols, " | ")+" |"); err != nil {
		return err
	}
	sep := make([]string, len(cols))
	for i := range sep {
		sep[i] = "---"
	}
	if _, err := fmt.Fprintln(w, "| "+strings.Join(sep, " | ")+" |"); err != nil {
		return err
	}
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = valueToString(r[c])
		}
		if _, err := fmt.Fprintln(w, "| "+strings.Join(cells, " | ")+" |"); err != nil {
			return err
		}
	}
	return nil
}

// Export dispatches on a format name: csv, tsv, json, jsonl, markdown.
func Export(w io.Writer, format string, cols []string, rows []engine.Row, opts Options) error {
	switch strings.ToLower(format) {
	case "csv":
		return ExportCSV(w, cols, rows, opts)
	case "tsv":
		return ExportTSV(w, cols, rows, opts)
	case "json":
		return ExportJSON(w, cols, rows, opts)
	case "jsonl":
		return ExportJSONL(w, cols, rows)
	case "markdown", "md":
		return ExportMarkdown(w, cols, rows)
	}
	return fmt.Errorf("unknown export format %q", format)
}
