package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/picodb/picodb/internal/storage"
)

// Row is one record: field name -> typed scalar, including the reserved id.
type Row = storage.Row

// Column aliases the storage column descriptor.
type Column = storage.Column

// ReservedIDField is the implicit system column present on every record. It
// is auto-assigned, unique and monotonically increasing per table, and never
// directly settable.
const ReservedIDField = "id"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnsureIdentifier validates a table or field name.
func EnsureIdentifier(name, what string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: invalid %s name %q", ErrValidation, what, name)
	}
	return nil
}

// ParseColumnSpec parses one "field:type" declaration.
func ParseColumnSpec(spec string) (Column, error) {
	idx := strings.Index(spec, ":")
	if idx < 0 {
		return Column{}, fmt.Errorf("%w: expected field:type, got %q", ErrParse, spec)
	}
	field := strings.TrimSpace(spec[:idx])
	typeName := strings.TrimSpace(spec[idx+1:])
	if err := EnsureIdentifier(field, "field"); err != nil {
		return Column{}, err
	}
	if !SupportedType(typeName) {
		return Column{}, fmt.Errorf("%w: unsupported type %q for field %q", ErrSchema, typeName, field)
	}
	return Column{Name: field, Type: typeName}, nil
}

// BuildSchema validates an ordered column list and produces the table
// schema: at least one column, no reserved or duplicate field names, only
// supported types.
func BuildSchema(cols []Column) (*storage.Schema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: a table needs at least one field", ErrSchema)
	}
	seen := map[string]bool{}
	for _, c := range cols {
		if err := EnsureIdentifier(c.Name, "field"); err != nil {
			return nil, err
		}
		if c.Name == ReservedIDField {
			return nil, fmt.Errorf("%w: field %q is reserved (assigned automatically)", ErrSchema, ReservedIDField)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrSchema, c.Name)
		}
		if !SupportedType(c.Type) {
			return nil, fmt.Errorf("%w: unsupported type %q for field %q", ErrSchema, c.Type, c.Name)
		}
		seen[c.Name] = true
	}
	return storage.NewSchema(cols), nil
}

// ValidateInsert checks a full insert payload against the schema and
// coerces every value: every declared field must be present, nothing
// undeclared may appear. Nothing is mutated before all coercions succeed.
func ValidateInsert(schema *storage.Schema, values map[string]string) (Row, error) {
	var missing, extra []string
	for _, f := range schema.FieldNames() {
		if _, ok := values[f]; !ok {
			missing = append(missing, f)
		}
	}
	for f := range values {
		if !schema.Has(f) {
			extra = append(extra, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Errorf("%w: unknown fields: %s", ErrValidation, strings.Join(extra, ", "))
	}
	row := Row{}
	for _, c := range schema.Columns() {
		v, err := Coerce(values[c.Name], c.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", c.Name, err)
		}
		row[c.Name] = v
	}
	return row, nil
}

// ValidateUpdate checks a partial update payload: a non-empty subset of the
// schema, with the reserved id not settable. Missing fields are fine,
// partial update is the normal case.
func ValidateUpdate(schema *storage.Schema, values map[string]string) (Row, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: update requires set", ErrValidation)
	}
	row := Row{}
	for f, raw := range values {
		if f == ReservedIDField {
			return nil, fmt.Errorf("%w: field %q cannot be changed", ErrValidation, ReservedIDField)
		}
		typeName, ok := schema.TypeOf(f)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field in set: %q", ErrValidation, f)
		}
		v, err := Coerce(raw, typeName)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		row[f] = v
	}
	return row, nil
}
