package main

import (
	"bufio"
	"strings"
	"testing"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/picodb/picodb/internal/engine"
)

func TestRenderYAMLRoundTrip(t *testing.T) {
	rows := []engine.Row{
		{"id": 1, "name": "a: b", "note": "x\ny"},
		{"id": 2, "name": "plain", "note": nil},
	}
	out, err := renderYAML(rows, []string{"id", "name", "note"})
	if err != nil {
		t.Fatal(err)
	}

	var got []map[string]any
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not parseable YAML: %v\n%s", err, out)
	}
	if len(got) != 2 {
		t.Fatalf("got %d documents, want 2", len(got))
	}
	if got[0]["name"] != "a: b" {
		t.Errorf("name = %q, want %q", got[0]["name"], "a: b")
	}
	if got[0]["note"] != "x\ny" {
		t.Errorf("note = %q, want %q", got[0]["note"], "x\ny")
	}
	if got[0]["id"] != 1 {
		t.Errorf("id = %v, want 1", got[0]["id"])
	}
	if got[1]["note"] != nil {
		t.Errorf("nil value round-tripped as %v", got[1]["note"])
	}
}

func TestRenderYAMLKeepsColumnOrder(t *testing.T) {
	rows := []engine.Row{{"id": 1, "age": 30, "name": "Alice"}}
	out, err := renderYAML(rows, []string{"id", "age", "name"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "- id:") {
		t.Errorf("id is not the first key:\n%s", s)
	}
	if strings.Index(s, "age:") > strings.Index(s, "name:") {
		t.Errorf("columns out of order:\n%s", s)
	}
}

func TestPadCountsRunes(t *testing.T) {
	for _, tc := range []struct {
		s     string
		w     int
		runes int
	}{
		{"ab", 5, 5},
		{"Мария", 8, 8},
		{"Мария", 3, 5}, // already wider, left alone
		{"", 2, 2},
	} {
		got := pad(tc.s, tc.w)
		if n := utf8.RuneCountInString(got); n != tc.runes {
			t.Errorf("pad(%q, %d) = %q (%d runes), want %d", tc.s, tc.w, got, n, tc.runes)
		}
	}
}

func TestConfirmFuncNonInteractiveDenies(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("select users\n"))
	confirm := confirmFunc(sc, false)
	if confirm("delete all rows from \"users\"?") {
		t.Fatal("piped session must deny confirmation")
	}
	// The queued command must still be there, not eaten as an answer.
	if !sc.Scan() || sc.Text() != "select users" {
		t.Fatalf("next input line was consumed, got %q", sc.Text())
	}
}

func TestConfirmFuncInteractive(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("yes\nno\n"))
	confirm := confirmFunc(sc, true)
	if !confirm("drop?") {
		t.Fatal("expected yes to confirm")
	}
	if confirm("drop?") {
		t.Fatal("expected no to deny")
	}
}
