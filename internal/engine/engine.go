package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/picodb/picodb/internal/storage"
)

// Engine orchestrates table management and CRUD over the JSON store. It is
// strictly single-threaded: every operation reads the whole table file,
// scans or mutates in memory, and rewrites the file through the store's
// atomic replace.
type Engine struct {
	store    *storage.Store
	meta     *storage.Meta
	versions map[string]int
	cache    map[cacheKey][]Row
	useCache bool
}

// cacheKey identifies one cached select result. The version component makes
// every entry for a table stale the moment a mutating operation runs.
type cacheKey struct {
	table    string
	whereSig string
	version  int
}

// SelectResult carries matching rows and whether they came from the cache.
type SelectResult struct {
	Rows      []Row
	FromCache bool
}

// TableInfo describes one table for listings.
type TableInfo struct {
	Name     string
	Schema   *storage.Schema
	LastID   int
	RowsFile string
}

// Open loads the metadata file and returns a ready engine. The select cache
// is enabled by default.
func Open(store *storage.Store) (*Engine, error) {
	meta, err := store.LoadMeta()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:    store,
		meta:     meta,
		versions: make(map[string]int),
		cache:    make(map[cacheKey][]Row),
		useCache: true,
	}
	for name := range meta.Tables {
		e.versions[name] = 0
	}
	return e, nil
}

// EnableCache toggles the select cache.
func (e *Engine) EnableCache(on bool) { e.useCache = on }

// Store returns the underlying file store.
func (e *Engine) Store() *storage.Store { return e.store }

func (e *Engine) tableMeta(table string) (*storage.TableMeta, error) {
	tm, ok := e.meta.Tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	return tm, nil
}

// touch bumps the table's version counter, invalidating every cached select
// for it.
func (e *Engine) touch(table string) {
	e.versions[table]++
}

// ListTables returns every table sorted by name.
func (e *Engine) ListTables() []TableInfo {
	out := make([]TableInfo, 0, len(e.meta.Tables))
	for name, tm := range e.meta.Tables {
		out = append(out, TableInfo{
			Name:     name,
			Schema:   tm.Schema,
			LastID:   tm.LastID,
			RowsFile: e.store.TablePath(name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateTable declares a new table. The name must be a fresh identifier and
// the column list must pass schema validation.
func (e *Engine) CreateTable(name string, cols []Column) error {
	if err := EnsureIdentifier(name, "table"); err != nil {
		return err
	}
	if _, ok := e.meta.Tables[name]; ok {
		return fmt.Errorf("%w: %q", ErrTableExists, name)
	}
	schema, err := BuildSchema(cols)
	if err != nil {
		return err
	}
	e.meta.Tables[name] = &storage.TableMeta{Schema: schema, LastID: 0}
	if err := e.store.SaveMeta(e.meta); err != nil {
		delete(e.meta.Tables, name)
		return err
	}
	if err := e.store.SaveTable(name, nil); err != nil {
		return err
	}
	e.versions[name] = 0
	return nil
}

// DropTable removes a table's metadata entry and row file.
func (e *Engine) DropTable(name string) error {
	if _, err := e.tableMeta(name); err != nil {
		return err
	}
	delete(e.meta.Tables, name)
	if err := e.store.SaveMeta(e.meta); err != nil {
		return err
	}
	if err := e.store.RemoveTable(name); err != nil {
		return err
	}
	delete(e.versions, name)
	return nil
}

// Insert validates a full payload, assigns the next id and appends the row.
// The id counter is only advanced after every coercion succeeded, so a
// failed insert never burns an id.
func (e *Engine) Insert(table string, values map[string]string) (Row, error) {
	tm, err := e.tableMeta(table)
	if err != nil {
		return nil, err
	}
	row, err := ValidateInsert(tm.Schema, values)
	if err != nil {
		return nil, err
	}

	rows, err := e.loadRows(table, tm.Schema)
	if err != nil {
		return nil, err
	}
	tm.LastID++
	row[ReservedIDField] = tm.LastID
	rows = append(rows, row)
	if err := e.store.SaveTable(table, rows); err != nil {
		return nil, err
	}
	if err := e.store.SaveMeta(e.meta); err != nil {
		return nil, err
	}
	e.touch(table)
	return copyRow(row), nil
}

// Select returns all rows matching the predicate (nil or empty predicate
// means all rows). Field names referenced by the predicate must exist in
// the schema; the reserved id is always valid. Results served from the
// cache are immutable snapshots returned by value.
func (e *Engine) Select(table string, where *Predicate) (*SelectResult, error) {
	tm, err := e.tableMeta(table)
	if err != nil {
		return nil, err
	}
	if where == nil {
		where = &Predicate{}
	}
	if err := e.checkWhereFields(tm.Schema, where); err != nil {
		return nil, err
	}

	version := e.versions[table]
	key := cacheKey{table: table, whereSig: where.Signature(), version: version}
	if e.useCache {
		if cached, ok := e.cache[key]; ok {
			return &SelectResult{Rows: copyRows(cached), FromCache: true}, nil
		}
	}

	rows, err := e.loadRows(table, tm.Schema)
	if err != nil {
		return nil, err
	}
	matched := make([]Row, 0, len(rows))
	for _, r := range rows {
		ok, err := where.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	if e.useCache {
		e.cache[key] = copyRows(matched)
	}
	return &SelectResult{Rows: matched, FromCache: false}, nil
}

// Update coerces the set payload and applies it to every matching row,
// returning the number of mutated rows. An empty predicate updates all rows.
func (e *Engine) Update(table string, setValues map[string]string, where *Predicate) (int, error) {
	tm, err := e.tableMeta(table)
	if err != nil {
		return 0, err
	}
	cooked, err := ValidateUpdate(tm.Schema, setValues)
	if err != nil {
		return 0, err
	}
	if where == nil {
		where = &Predicate{}
	}
	if err := e.checkWhereFields(tm.Schema, where); err != nil {
		return 0, err
	}

	rows, err := e.loadRows(table, tm.Schema)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, r := range rows {
		ok, err := where.Match(r)
		if err != nil {
			return 0, err
		}
		if ok {
			for f, v := range cooked {
				r[f] = v
			}
			updated++
		}
	}
	if err := e.store.SaveTable(table, rows); err != nil {
		return 0, err
	}
	e.touch(table)
	return updated, nil
}

// Delete removes every matching row and returns the count. An empty
// predicate deletes all rows; requiring confirmation for that is the
// front end's policy, not the engine's.
func (e *Engine) Delete(table string, where *Predicate) (int, error) {
	tm, err := e.tableMeta(table)
	if err != nil {
		return 0, err
	}
	if where == nil {
		where = &Predicate{}
	}
	if err := e.checkWhereFields(tm.Schema, where); err != nil {
		return 0, err
	}

	rows, err := e.loadRows(table, tm.Schema)
	if err != nil {
		return 0, err
	}
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		ok, err := where.Match(r)
		if err != nil {
			return 0, err
		}
		if !ok {
			kept = append(kept, r)
		}
	}
	deleted := len(rows) - len(kept)
	if err := e.store.SaveTable(table, kept); err != nil {
		return 0, err
	}
	e.touch(table)
	return deleted, nil
}

// checkWhereFields rejects predicates referencing fields the schema does not
// declare. Record field sets always equal schema plus id, so an unknown name
// can never match anything and is reported instead of silently reading null.
func (e *Engine) checkWhereFields(schema *storage.Schema, where *Predicate) error {
	for _, f := range where.Fields() {
		if f == ReservedIDField || schema.Has(f) {
			continue
		}
		return fmt.Errorf("%w: unknown field in where: %q", ErrValidation, f)
	}
	return nil
}

// loadRows reads a table and re-types the JSON values against the schema:
// numbers arrive as json.Number and must become int or float64 per the
// declared type, with id always an int.
func (e *Engine) loadRows(table string, schema *storage.Schema) ([]Row, error) {
	rows, err := e.store.LoadTable(table)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		for f, v := range r {
			num, ok := v.(json.Number)
			if !ok {
				continue
			}
			typeName := TypeInt
			if f != ReservedIDField {
				if t, ok := schema.TypeOf(f); ok {
					typeName = t
				}
			}
			switch typeName {
			case TypeFloat:
				fv, err := num.Float64()
				if err != nil {
					return nil, fmt.Errorf("%w: bad number %q in table %q", ErrStorage, num, table)
				}
				r[f] = fv
			default:
				iv, err := num.Int64()
				if err != nil {
					return nil, fmt.Errorf("%w: bad number %q in table %q", ErrStorage, num, table)
				}
				r[f] = int(iv)
			}
		}
	}
	return rows, nil
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = copyRow(r)
	}
	return out
}
