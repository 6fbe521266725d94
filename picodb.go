// Package picodb provides a minimal file-backed record store driven by a
// small command interpreter.
//
// Users declare typed tables (int, float, str, bool), insert, update,
// delete and select records, and filter with boolean comparison
// expressions. Tables persist as pretty-printed JSON files; every write is
// an atomic whole-file replace. There is no indexing: a query is a linear
// scan of one table file.
//
// # Basic Usage
//
// Open a database directory and run interpreter commands:
//
//	db, _ := picodb.Open("./mydb")
//	picodb.Exec(db, `create_table users name:str age:int is_active:bool`)
//	picodb.Exec(db, `insert users name="Alice" age=30 is_active=true`)
//	res, _ := picodb.Exec(db, `select users where age>=30 and is_active=true`)
//	for _, row := range res.Select.Rows {
//	    fmt.Println(row)
//	}
//
// # Programmatic filters
//
// Filters can also be compiled directly, or built from pre-split
// conditions with AND semantics:
//
//	pred, _ := picodb.CompileWhere(`age >= 30 or name = "Bob"`)
//	res, _ := db.Select("users", pred)
//
//	cond, _ := picodb.ParseComparison(`age>=30`)
//	pred, _ = picodb.CompileConjunction([]picodb.Condition{cond})
//
// The expression grammar is a strict allow-list: comparisons, and/or,
// parentheses, field names and literals. Anything else fails to compile,
// so untrusted filter text can never execute code or reach ambient state.
//
// # Middleware
//
// Cross-cutting concerns wrap the engine instead of living inside it:
//
//	ops := picodb.Instrument(db, storage.NewAuditLog(db.Store()), nil)
//	ex := &picodb.Executor{Ops: ops}
package picodb

import (
	"github.com/picodb/picodb/internal/engine"
	"github.com/picodb/picodb/internal/storage"
)

// Core types re-exported from internal packages for the public API.
type (
	// Engine orchestrates table management and CRUD over one database
	// directory.
	Engine = engine.Engine
	// Row is one record: field name -> typed scalar value.
	Row = engine.Row
	// Column is one declared field of a table.
	Column = engine.Column
	// Command is one parsed interpreter command.
	Command = engine.Command
	// Condition is one comparison in the AND-only condition syntax.
	Condition = engine.Condition
	// Predicate is a compiled where expression.
	Predicate = engine.Predicate
	// Result is the outcome of one executed command.
	Result = engine.Result
	// SelectResult carries matching rows and the cache flag.
	SelectResult = engine.SelectResult
	// TableInfo describes one table for listings.
	TableInfo = engine.TableInfo
	// Operations is the engine's operation surface, implemented by Engine
	// and by middleware wrappers.
	Operations = engine.Operations
	// Executor dispatches parsed commands and applies the confirmation
	// policy.
	Executor = engine.Executor
	// Store is the JSON file layer under one database directory.
	Store = storage.Store
	// Schema is the ordered field->type mapping of one table.
	Schema = storage.Schema
)

// Error kinds, matched with errors.Is.
var (
	ErrParse         = engine.ErrParse
	ErrSchema        = engine.ErrSchema
	ErrValidation    = engine.ErrValidation
	ErrWhere         = engine.ErrWhere
	ErrTableExists   = engine.ErrTableExists
	ErrTableNotFound = engine.ErrTableNotFound
	ErrStorage       = engine.ErrStorage
)

// Open prepares the database directory and loads its metadata.
func Open(root string) (*Engine, error) {
	st, err := storage.Open(root)
	if err != nil {
		return nil, err
	}
	return engine.Open(st)
}

// ParseCommand parses one interpreter line into a Command.
func ParseCommand(line string) (*Command, error) { return engine.ParseCommand(line) }

// CompileWhere compiles a filter expression into a Predicate.
func CompileWhere(text string) (*Predicate, error) { return engine.CompileWhere(text) }

// ParseComparison parses one condition phrase like "age>=30".
func ParseComparison(phrase string) (Condition, error) { return engine.ParseComparison(phrase) }

// CompileConjunction builds a Predicate with AND semantics from pre-split
// conditions.
func CompileConjunction(conds []Condition) (*Predicate, error) {
	return engine.CompileConjunction(conds)
}

// Coerce converts a raw string token into a typed value per a declared
// type name.
func Coerce(raw, typeName string) (any, error) { return engine.Coerce(raw, typeName) }

// Instrument wraps ops with best-effort audit logging and optional timing.
func Instrument(ops Operations, audit *storage.AuditLog, timing engine.TimingFunc) Operations {
	return engine.Instrument(ops, audit, timing)
}

// Exec parses and executes one interpreter command with no confirmation
// gate, for embedding and tests. Front ends wanting confirmation prompts
// should build their own Executor.
func Exec(db *Engine, line string) (*Result, error) {
	cmd, err := engine.ParseCommand(line)
	if err != nil {
		return nil, err
	}
	ex := &engine.Executor{Ops: db}
	return ex.Execute(cmd)
}
