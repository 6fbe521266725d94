// Package engine contains the core of picodb: scalar coercion against a
// closed type set, schema validation, the restricted where-expression
// compiler and its evaluator, the table engine with its select cache, and
// the command parser feeding all of it.
package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// The closed set of declarable column types. "id" is not a type; it is the
// reserved auto-assigned int column every table carries.
const (
	TypeInt   = "int"
	TypeFloat = "float"
	TypeStr   = "str"
	TypeBool  = "bool"
)

// supportedTypes maps a type name to its cast function. A scalar value is
// one of int, float64, string, bool or nil.
var supportedTypes = map[string]func(raw string) (any, error){
	TypeInt:   castInt,
	TypeFloat: castFloat,
	TypeStr:   castStr,
	TypeBool:  castBool,
}

// Truthy and falsy token sets for bool coercion, matched case-insensitively.
var (
	boolTrue  = map[string]bool{"true": true, "1": true, "yes": true, "y": true}
	boolFalse = map[string]bool{"false": true, "0": true, "no": true, "n": true}
)

// SupportedType reports whether name is a declarable column type.
func SupportedType(name string) bool {
	_, ok := supportedTypes[name]
	return ok
}

// TypeNames returns the declarable type names in a stable order.
func TypeNames() []string {
	return []string{TypeBool, TypeFloat, TypeInt, TypeStr}
}

// Coerce converts a raw string token into a typed value per the declared
// type name. The literal tokens "null" and "none" (case-insensitive) coerce
// to the null value before any type-specific handling, for every type.
// Conversion failure and unknown type names wrap ErrValidation.
func Coerce(raw, typeName string) (any, error) {
	cast, ok := supportedTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrValidation, typeName)
	}
	trimmed := strings.TrimSpace(raw)
	if lower := strings.ToLower(trimmed); lower == "null" || lower == "none" {
		return nil, nil
	}
	return cast(trimmed)
}

func castStr(raw string) (any, error) {
	return stripQuotes(raw), nil
}

func castBool(raw string) (any, error) {
	lowered := strings.ToLower(strings.TrimSpace(stripQuotes(raw)))
	if boolTrue[lowered] {
		return true, nil
	}
	if boolFalse[lowered] {
		return false, nil
	}
	return nil, fmt.Errorf("%w: invalid bool value %q", ErrValidation, raw)
}

func castInt(raw string) (any, error) {
	n, err := strconv.Atoi(stripQuotes(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid int value %q", ErrValidation, raw)
	}
	return n, nil
}

func castFloat(raw string) (any, error) {
	f, err := strconv.ParseFloat(stripQuotes(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid float value %q", ErrValidation, raw)
	}
	return f, nil
}

// stripQuotes removes one matching pair of surrounding single or double
// quotes, if present. No escaping beyond that.
func stripQuotes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == value[len(value)-1] &&
		(value[0] == '\'' || value[0] == '"') {
		return value[1 : len(value)-1]
	}
	return value
}
