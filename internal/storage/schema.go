package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Column describes one declared field of a table: a name and the name of one
// of the supported scalar types (int, float, str, bool).
type Column struct {
	Name string
	Type string
}

// Schema is the ordered field->type mapping of one table. Order matters for
// display and for the on-disk JSON, so the zero-value map round trip is not
// good enough: Schema keeps a slice of columns and marshals itself as a JSON
// object whose key order is the declaration order.
//
// The implicit system column "id" is not part of the schema; it is reserved
// and handled by the engine.
type Schema struct {
	cols  []Column
	types map[string]string
}

// NewSchema builds a schema from an ordered column list. It does not perform
// semantic validation (reserved names, supported types); that is the
// engine's job before it ever constructs a Schema.
func NewSchema(cols []Column) *Schema {
	s := &Schema{
		cols:  make([]Column, len(cols)),
		types: make(map[string]string, len(cols)),
	}
	copy(s.cols, cols)
	for _, c := range cols {
		s.types[c.Name] = c.Type
	}
	return s
}

// Columns returns the declared columns in declaration order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Len returns the number of declared columns.
func (s *Schema) Len() int { return len(s.cols) }

// Has reports whether the schema declares the given field.
func (s *Schema) Has(field string) bool {
	_, ok := s.types[field]
	return ok
}

// TypeOf returns the declared type name for a field.
func (s *Schema) TypeOf(field string) (string, bool) {
	t, ok := s.types[field]
	return t, ok
}

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// String renders the schema as "field:type field:type ..." for listings.
func (s *Schema) String() string {
	var buf bytes.Buffer
	for i, c := range s.cols {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%s:%s", c.Name, c.Type)
	}
	return buf.String()
}

// MarshalJSON renders the schema as a JSON object in declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object and preserves its key order by walking
// the token stream instead of decoding into a map.
func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected JSON object, got %v", tok)
	}
	s.cols = nil
	s.types = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("schema: non-string key %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		val, ok := valTok.(string)
		if !ok {
			return fmt.Errorf("schema: type of field %q must be a string", key)
		}
		s.cols = append(s.cols, Column{Name: key, Type: val})
		s.types[key] = val
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	return nil
}
