package exporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/picodb/picodb/internal/engine"
)

var (
	testCols = []string{"id", "name", "score", "active"}
	testRows = []engine.Row{
		{"id": 1, "name": "Alice", "score": 4.5, "active": true},
		{"id": 2, "name": "Bob, Jr", "score": 3.0, "active": false},
		{"id": 3, "name": nil, "score": 0.5, "active": true},
	}
)

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, testCols, testRows, Options{}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3 rows", len(lines))
	}
	if lines[0] != "id,name,score,active" {
		t.Fatalf("header = %q", lines[0])
	}
	// A comma inside a value gets quoted.
	if !strings.Contains(lines[2], `"Bob, Jr"`) {
		t.Fatalf("row = %q", lines[2])
	}
	// Null renders as an empty cell.
	if lines[3] != "3,,0.5,true" {
		t.Fatalf("null row = %q", lines[3])
	}
}

func TestExportCSVNoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, testCols, testRows, Options{CSVNoHeader: true}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if strings.HasPrefix(lines[0], "id,") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}

func TestExportTSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportTSV(&buf, testCols, testRows, Options{}); err != nil {
		t.Fatal(err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != "id\tname\tscore\tactive" {
		t.Fatalf("header = %q", first)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, testCols, testRows, Options{}); err != nil {
		t.Fatal(err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("rows = %d", len(out))
	}
	if out[0]["name"] != "Alice" || out[0]["active"] != true {
		t.Fatalf("row = %v", out[0])
	}
	if out[2]["name"] != nil {
		t.Fatalf("null not preserved: %v", out[2])
	}
}

func TestExportJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(&buf, testCols, testRows); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	for _, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
	}
}

func TestExportMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportMarkdown(&buf, testCols, testRows); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want header + separator + 3 rows", len(lines))
	}
	if lines[0] != "| id | name | score | active |" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "| ---") {
		t.Fatalf("separator = %q", lines[1])
	}
}

func TestExportDispatch(t *testing.T) {
	for _, format := range []string{"csv", "tsv", "json", "jsonl", "markdown", "md", "CSV"} {
		var buf bytes.Buffer
		if err := Export(&buf, format, testCols, testRows, Options{}); err != nil {
			t.Fatalf("Export(%q): %v", format, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("Export(%q): empty output", format)
		}
	}
	if err := Export(&bytes.Buffer{}, "xml", testCols, testRows, Options{}); err == nil {
		t.Fatal("unknown format must fail")
	}
}
