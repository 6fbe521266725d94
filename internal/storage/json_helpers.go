package storage

import (
	"encoding/json"

	"github.com/google/uuid"
)

// normalizeForJSON converts known internal types to JSON-friendly values.
// It keeps common scalars as-is and converts uuid.UUID to its string form so
// json.Marshal yields readable output; json.Number passes through untouched
// and marshals as the original digits.
func normalizeForJSON(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return x.String()
	case Row:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[k] = normalizeForJSON(vv)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[k] = normalizeForJSON(vv)
		}
		return m
	case []Row:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = normalizeForJSON(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = normalizeForJSON(vv)
		}
		return out
	default:
		return v
	}
}

// JSONMarshal marshals v after converting internal types to JSON-friendly
// representations.
func JSONMarshal(v any) ([]byte, error) {
	return json.Marshal(normalizeForJSON(v))
}

// JSONMarshalIndent is JSONMarshal with the two-space indentation used for
// every persisted file, so the store stays diffable and editor-friendly.
func JSONMarshalIndent(v any) ([]byte, error) {
	switch v.(type) {
	case []Row, Row, map[string]any, []any:
		return json.MarshalIndent(normalizeForJSON(v), "", "  ")
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}
