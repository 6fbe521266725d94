package engine

import (
	"errors"

	"github.com/picodb/picodb/internal/storage"
)

// Domain error kinds. Every error returned by the engine wraps exactly one
// of these so the command dispatcher can classify failures with errors.Is
// and render a single user-facing line.
var (
	// ErrParse marks malformed command or condition syntax.
	ErrParse = errors.New("parse error")
	// ErrSchema marks an invalid table or column definition.
	ErrSchema = errors.New("schema error")
	// ErrValidation marks a type coercion failure or an unknown, missing or
	// forbidden field.
	ErrValidation = errors.New("validation error")
	// ErrWhere marks a where expression that failed to compile, including
	// any syntactic form outside the allow-listed grammar.
	ErrWhere = errors.New("where error")
	// ErrTableExists is returned by create_table for a duplicate name.
	ErrTableExists = errors.New("table already exists")
	// ErrTableNotFound is returned when an operation names an unknown table.
	ErrTableNotFound = errors.New("table not found")
	// ErrStorage re-exports the file layer's error kind.
	ErrStorage = storage.ErrStorage
)

// IsDomainErr reports whether err belongs to one of the engine's error
// kinds. Anything else is unexpected and gets generic treatment at the
// outermost boundary.
func IsDomainErr(err error) bool {
	for _, kind := range []error{
		ErrParse, ErrSchema, ErrValidation, ErrWhere,
		ErrTableExists, ErrTableNotFound, ErrStorage,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
