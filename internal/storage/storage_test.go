package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOpenCreatesLayout(t *testing.T) {
	root := t.TempDir()
	s, err := Open(filepath.Join(root, "db"))
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{s.Root(), s.DataDir(), s.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestLoadMetaMissingFile(t *testing.T) {
	s := openTestStore(t)
	m, err := s.LoadMeta()
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Tables == nil || len(m.Tables) != 0 {
		t.Fatalf("expected empty metadata, got %+v", m)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	s := openTestStore(t)
	m := NewMeta()
	m.Tables["users"] = &TableMeta{
		Schema: NewSchema([]Column{
			{Name: "zeta", Type: "str"},
			{Name: "alpha", Type: "int"},
			{Name: "mid", Type: "bool"},
		}),
		LastID: 7,
	}
	if err := s.SaveMeta(m); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadMeta()
	if err != nil {
		t.Fatal(err)
	}
	tm := got.Tables["users"]
	if tm == nil {
		t.Fatal("table entry lost")
	}
	if tm.LastID != 7 {
		t.Fatalf("LastID = %d, want 7", tm.LastID)
	}
	// Field declaration order survives the JSON round trip.
	names := tm.Schema.FieldNames()
	want := []string{"zeta", "alpha", "mid"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("field order = %v, want %v", names, want)
		}
	}
	if typ, ok := tm.Schema.TypeOf("alpha"); !ok || typ != "int" {
		t.Fatalf("TypeOf(alpha) = %q, %v", typ, ok)
	}
}

func TestTableRoundTrip(t *testing.T) {
	s := openTestStore(t)
	rows := []Row{
		{"id": 1, "name": "a", "score": 1.5},
		{"id": 2, "name": "b", "score": 2.0},
	}
	if err := s.SaveTable("users", rows); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadTable("users")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %v", got)
	}
	// Numbers come back as json.Number; the engine re-types them.
	if _, ok := got[0]["id"].(json.Number); !ok {
		t.Fatalf("id decoded as %T, want json.Number", got[0]["id"])
	}
	if got[1]["name"] != "b" {
		t.Fatalf("row = %v", got[1])
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	s := openTestStore(t)
	rows, err := s.LoadTable("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if rows != nil {
		t.Fatalf("expected nil rows, got %v", rows)
	}
}

func TestSaveTableNilWritesEmptyArray(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveTable("empty", nil); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(s.TablePath("empty"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(b)) != "[]" {
		t.Fatalf("empty table file = %q, want []", b)
	}
}

func TestRemoveTable(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveTable("users", []Row{{"id": 1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveTable("users"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.TablePath("users")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("row file still exists")
	}
	// Removing a never-written table is fine.
	if err := s.RemoveTable("ghost"); err != nil {
		t.Fatal(err)
	}
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveTable("users", []Row{{"id": 1}}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(s.DataDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestCorruptFileIsStorageError(t *testing.T) {
	s := openTestStore(t)
	if err := os.WriteFile(s.TablePath("users"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadTable("users"); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := os.WriteFile(s.MetaPath(), []byte("oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadMeta(); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestSchemaMarshalOrder(t *testing.T) {
	sch := NewSchema([]Column{
		{Name: "b", Type: "int"},
		{Name: "a", Type: "str"},
	})
	b, err := json.Marshal(sch)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"b":"int","a":"str"}`
	if string(b) != want {
		t.Fatalf("marshal = %s, want %s", b, want)
	}

	var back Schema
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.String() != "b:int a:str" {
		t.Fatalf("String() = %q", back.String())
	}
}

func TestAuditLogAppends(t *testing.T) {
	s := openTestStore(t)
	al := NewAuditLog(s)
	al.Record("insert", "table=users fields=2")
	al.Record("select", "table=users where=<all>")

	b, err := os.ReadFile(s.LogPath())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2", len(lines))
	}
	for _, line := range lines {
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			t.Fatalf("log line %q: want 4 tab-separated fields", line)
		}
	}
	if !strings.Contains(lines[0], "insert") || !strings.Contains(lines[1], "select") {
		t.Fatalf("log content: %q", lines)
	}
}

func TestAuditLogNilReceiver(t *testing.T) {
	var al *AuditLog
	al.Record("insert", "should not panic")
}

func TestBackupSnapshot(t *testing.T) {
	s := openTestStore(t)
	m := NewMeta()
	m.Tables["users"] = &TableMeta{
		Schema: NewSchema([]Column{{Name: "name", Type: "str"}}),
		LastID: 1,
	}
	if err := s.SaveMeta(m); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTable("users", []Row{{"id": 1, "name": "a"}}); err != nil {
		t.Fatal(err)
	}

	// Snapshot is a Store operation; no scheduler needed for a one-shot backup.
	dir, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "db_meta.json")); err != nil {
		t.Fatalf("snapshot missing metadata: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "users.json")); err != nil {
		t.Fatalf("snapshot missing table file: %v", err)
	}
}

func TestBackupSchedulerRejectsBadSpec(t *testing.T) {
	s := openTestStore(t)
	if _, err := NewBackupScheduler(s, "not a cron spec"); err == nil {
		t.Fatal("expected an error for a bad cron spec")
	}
}
