package engine

import (
	"fmt"
)

// The filter evaluator: a tree walk over validated where expressions. The
// allow-listed node set cannot reach any ambient state, so evaluation sees
// only one record's field values.

// Match applies the predicate to one record. Ordering comparisons with null
// on either side evaluate to false; equality treats null as an ordinary
// comparable value. Comparing incompatible types (a string against a
// number) is an ErrWhere.
func (p *Predicate) Match(row Row) (bool, error) {
	if p.root == nil {
		return true, nil
	}
	v, err := evalExpr(p.root, row)
	if err != nil {
		return false, err
	}
	return truth(v), nil
}

func evalExpr(e Expr, row Row) (any, error) {
	switch ex := e.(type) {
	case *Literal:
		return ex.Val, nil
	case *FieldRef:
		return row[ex.Name], nil // absent field reads as null
	case *Binary:
		return evalBinary(ex, row)
	}
	return nil, fmt.Errorf("%w: disallowed node %T", ErrWhere, e)
}

func evalBinary(b *Binary, row Row) (any, error) {
	switch b.Op {
	case "AND":
		lv, err := evalExpr(b.Left, row)
		if err != nil {
			return nil, err
		}
		if !truth(lv) {
			return false, nil
		}
		rv, err := evalExpr(b.Right, row)
		if err != nil {
			return nil, err
		}
		return truth(rv), nil
	case "OR":
		lv, err := evalExpr(b.Left, row)
		if err != nil {
			return nil, err
		}
		if truth(lv) {
			return true, nil
		}
		rv, err := evalExpr(b.Right, row)
		if err != nil {
			return nil, err
		}
		return truth(rv), nil
	}

	lv, err := evalExpr(b.Left, row)
	if err != nil {
		return nil, err
	}
	rv, err := evalExpr(b.Right, row)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "=":
		return equalValues(lv, rv), nil
	case "!=":
		return !equalValues(lv, rv), nil
	case "<", "<=", ">", ">=":
		// Null never orders before or after anything.
		if lv == nil || rv == nil {
			return false, nil
		}
		c, err := compare(lv, rv)
		if err != nil {
			return nil, err
		}
		switch b.Op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}
	return nil, fmt.Errorf("%w: operator %q not allowed", ErrWhere, b.Op)
}

// truth converts a scalar to a boolean the way the grammar's bare-name form
// expects: null and zero values are false, everything else is true.
func truth(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

// equalValues compares two scalars for equality. Ints and floats compare
// numerically across types; null equals only null.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := numeric(a); aok {
		if bf, bok := numeric(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// compare returns -1, 0 or 1 for two non-null scalars of compatible types.
func compare(a, b any) (int, error) {
	switch ax := a.(type) {
	case int:
		return compareFloat(float64(ax), b)
	case float64:
		return compareFloat(ax, b)
	case string:
		return compareString(ax, b)
	case bool:
		return compareBool(ax, b)
	}
	return 0, fmt.Errorf("%w: incomparable %T and %T", ErrWhere, a, b)
}

func compareFloat(ax float64, b any) (int, error) {
	f, ok := numeric(b)
	if !ok {
		return 0, fmt.Errorf("%w: incomparable number and %T", ErrWhere, b)
	}
	if ax < f {
		return -1, nil
	}
	if ax > f {
		return 1, nil
	}
	return 0, nil
}

func compareString(ax string, b any) (int, error) {
	bs, ok := b.(string)
	if !ok {
		return 0, fmt.Errorf("%w: incomparable string and %T", ErrWhere, b)
	}
	if ax < bs {
		return -1, nil
	}
	if ax > bs {
		return 1, nil
	}
	return 0, nil
}

func compareBool(ax bool, b any) (int, error) {
	bb, ok := b.(bool)
	if !ok {
		return 0, fmt.Errorf("%w: incomparable bool and %T", ErrWhere, b)
	}
	if !ax && bb {
		return -1, nil
	}
	if ax && !bb {
		return 1, nil
	}
	return 0, nil
}
