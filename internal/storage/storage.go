// Package storage implements the file layer of picodb: JSON persistence
// for table metadata and row files, the best-effort audit log, and the
// optional backup scheduler.
//
// One metadata file (db_meta.json) holds every table's schema and id
// counter; each table's rows live in data/<table>.json as a flat JSON
// array. All writes go through a temp-file-plus-rename replace so a reader
// always sees either the old or the new file, never a torn one.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStorage marks any failure of the file layer (I/O or JSON decode).
// Callers match it with errors.Is.
var ErrStorage = errors.New("storage error")

const (
	metaFilename = "db_meta.json"
	dataDirname  = "data"
	logDirname   = "logs"
	logFilename  = "commands.log"
	backupDir    = "backups"
)

// Row is one stored record: field name -> scalar value. Numbers are decoded
// as json.Number so the engine can re-type them against the schema without
// float round trips.
type Row map[string]any

// TableMeta is the per-table entry of the metadata file: the ordered schema
// and the last assigned id. The id counter is monotonic and never reused,
// even after deletes.
type TableMeta struct {
	Schema *Schema `json:"schema"`
	LastID int     `json:"last_id"`
}

// Meta is the full content of db_meta.json.
type Meta struct {
	Tables map[string]*TableMeta `json:"tables"`
}

// NewMeta returns an empty metadata document.
func NewMeta() *Meta {
	return &Meta{Tables: map[string]*TableMeta{}}
}

// Store provides access to one database directory.
type Store struct {
	root string
}

// Open prepares a database directory, creating the data and logs
// subdirectories if needed.
func Open(root string) (*Store, error) {
	s := &Store{root: root}
	for _, dir := range []string{root, s.DataDir(), s.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
		}
	}
	return s, nil
}

// Root returns the database root directory.
func (s *Store) Root() string { return s.root }

// MetaPath returns the path of the metadata file.
func (s *Store) MetaPath() string { return filepath.Join(s.root, metaFilename) }

// DataDir returns the directory holding table row files.
func (s *Store) DataDir() string { return filepath.Join(s.root, dataDirname) }

// LogDir returns the directory holding the command log.
func (s *Store) LogDir() string { return filepath.Join(s.root, logDirname) }

// LogPath returns the path of the append-only command log.
func (s *Store) LogPath() string { return filepath.Join(s.LogDir(), logFilename) }

// BackupDir returns the directory snapshots are written to.
func (s *Store) BackupDir() string { return filepath.Join(s.root, backupDir) }

// TablePath returns the row file path for a table.
func (s *Store) TablePath(table string) string {
	return filepath.Join(s.DataDir(), table+".json")
}

// LoadMeta reads the metadata file. A missing file yields an empty document.
func (s *Store) LoadMeta() (*Meta, error) {
	m := NewMeta()
	if err := s.readJSON(s.MetaPath(), m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewMeta(), nil
		}
		return nil, err
	}
	if m.Tables == nil {
		m.Tables = map[string]*TableMeta{}
	}
	return m, nil
}

// SaveMeta atomically replaces the metadata file.
func (s *Store) SaveMeta(m *Meta) error {
	return s.writeJSONAtomic(s.MetaPath(), m)
}

// LoadTable reads all rows of a table. A missing row file yields an empty
// slice: a freshly created table has no rows yet.
func (s *Store) LoadTable(table string) ([]Row, error) {
	var rows []Row
	if err := s.readJSON(s.TablePath(table), &rows); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

// SaveTable atomically replaces a table's row file.
func (s *Store) SaveTable(table string, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	return s.writeJSONAtomic(s.TablePath(table), rows)
}

// RemoveTable deletes a table's row file. A missing file is not an error:
// drop_table must succeed for a table that was never written.
func (s *Store) RemoveTable(table string) error {
	err := os.Remove(s.TablePath(table))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrStorage, s.TablePath(table), err)
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return fmt.Errorf("%w: read %s: %v", ErrStorage, path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrStorage, path, err)
	}
	return nil
}

func (s *Store) writeJSONAtomic(path string, v any) error {
	b, err := JSONMarshalIndent(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStorage, path, err)
	}
	return nil
}
