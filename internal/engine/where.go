package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// The where compiler. A filter expression originates from an untrusted
// interactive user, so the grammar is an allow-list: comparisons over field
// names and literals, the connectives and/or, and parentheses. The parser
// can only construct those node kinds, and validateExpr re-checks any tree
// before evaluation so programmatically built filters get the same
// guarantee. There is no function call, arithmetic, subscript or any other
// syntactic form to escape through.

// Expr is a node of a compiled where expression.
type Expr interface{}

type (
	// FieldRef refers to a record field by name. A field absent from the
	// record evaluates as null.
	FieldRef struct{ Name string }
	// Literal holds a constant: int, float64, string, bool or nil.
	Literal struct{ Val any }
	// Binary is a connective (AND, OR) or a comparison (=, !=, <, <=, >, >=).
	Binary struct {
		Op          string
		Left, Right Expr
	}
)

// Comparison operators in longest-match-first order. The single "=" is
// accepted as equality alongside "==".
var comparisonOps = []string{">=", "<=", "!=", "==", "=", ">", "<"}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// Predicate is a compiled where clause applied to one record at a time. It
// closes over nothing but its own syntax tree.
type Predicate struct {
	Source string
	root   Expr // nil means match-all
}

// MatchAll reports whether the predicate accepts every record (empty where).
func (p *Predicate) MatchAll() bool { return p.root == nil }

// CompileWhere parses a where expression into a Predicate. An empty or
// blank expression compiles to a match-all predicate. Any input outside the
// allow-listed grammar fails with ErrWhere.
func CompileWhere(text string) (*Predicate, error) {
	if strings.TrimSpace(text) == "" {
		return &Predicate{Source: text}, nil
	}
	wp := &whereParser{lx: newLexer(text)}
	wp.next()
	root, err := wp.parseOr()
	if err != nil {
		return nil, err
	}
	if wp.cur.Typ != tEOF {
		return nil, fmt.Errorf("%w: unexpected %q in expression", ErrWhere, wp.cur.Val)
	}
	if err := validateExpr(root); err != nil {
		return nil, err
	}
	return &Predicate{Source: text, root: root}, nil
}

// Fields returns the distinct field names referenced by the predicate,
// sorted. The engine checks them against the table schema before scanning.
func (p *Predicate) Fields() []string {
	seen := map[string]bool{}
	collectFields(p.root, seen)
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func collectFields(e Expr, seen map[string]bool) {
	switch ex := e.(type) {
	case *FieldRef:
		seen[ex.Name] = true
	case *Binary:
		collectFields(ex.Left, seen)
		collectFields(ex.Right, seen)
	}
}

// Signature returns a canonical rendering of the compiled tree. Two where
// texts that compile to the same tree share a signature, which is what the
// select cache keys on.
func (p *Predicate) Signature() string {
	if p.root == nil {
		return ""
	}
	return exprString(p.root)
}

func exprString(e Expr) string {
	switch ex := e.(type) {
	case nil:
		return ""
	case *FieldRef:
		return ex.Name
	case *Literal:
		switch v := ex.Val.(type) {
		case nil:
			return "null"
		case string:
			return strconv.Quote(v)
		default:
			return fmt.Sprintf("%v", v)
		}
	case *Binary:
		return "(" + exprString(ex.Left) + " " + ex.Op + " " + exprString(ex.Right) + ")"
	}
	return "?"
}

// validateExpr walks a tree and rejects everything outside the allow-list.
// The parser never builds such nodes, but filters can also arrive as
// programmatically constructed trees, and the security property should not
// depend on who built them.
func validateExpr(e Expr) error {
	switch ex := e.(type) {
	case *FieldRef:
		if ex.Name == "" {
			return fmt.Errorf("%w: empty field reference", ErrWhere)
		}
		return nil
	case *Literal:
		switch ex.Val.(type) {
		case nil, int, float64, string, bool:
			return nil
		}
		return fmt.Errorf("%w: unsupported literal %T", ErrWhere, ex.Val)
	case *Binary:
		if ex.Op != "AND" && ex.Op != "OR" && !isComparisonOp(ex.Op) {
			return fmt.Errorf("%w: operator %q not allowed", ErrWhere, ex.Op)
		}
		if err := validateExpr(ex.Left); err != nil {
			return err
		}
		return validateExpr(ex.Right)
	}
	return fmt.Errorf("%w: disallowed node %T", ErrWhere, e)
}

// ----------------------------- parser -----------------------------

type whereParser struct {
	lx  *lexer
	cur token
}

func (wp *whereParser) next() { wp.cur = wp.lx.nextToken() }

func (wp *whereParser) parseOr() (Expr, error) {
	left, err := wp.parseAnd()
	if err != nil {
		return nil, err
	}
	for wp.cur.Typ == tKeyword && wp.cur.Val == "OR" {
		wp.next()
		right, err := wp.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (wp *whereParser) parseAnd() (Expr, error) {
	left, err := wp.parseComparison()
	if err != nil {
		return nil, err
	}
	for wp.cur.Typ == tKeyword && wp.cur.Val == "AND" {
		wp.next()
		right, err := wp.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (wp *whereParser) parseComparison() (Expr, error) {
	left, err := wp.parseOperand()
	if err != nil {
		return nil, err
	}
	if wp.cur.Typ == tSymbol && isComparisonSymbol(wp.cur.Val) {
		op := normalizeOp(wp.cur.Val)
		wp.next()
		right, err := wp.parseOperand()
		if err != nil {
			return nil, err
		}
		if wp.cur.Typ == tSymbol && isComparisonSymbol(wp.cur.Val) {
			return nil, fmt.Errorf("%w: chained comparisons are not supported", ErrWhere)
		}
		return &Binary{Op: op, Left: left, Right: right}, nil
	}
	// A bare operand is a valid expression (truthiness of the field value).
	return left, nil
}

func (wp *whereParser) parseOperand() (Expr, error) {
	switch wp.cur.Typ {
	case tIdent:
		e := &FieldRef{Name: wp.cur.Val}
		wp.next()
		return e, nil
	case tKeyword:
		switch wp.cur.Val {
		case "TRUE":
			wp.next()
			return &Literal{Val: true}, nil
		case "FALSE":
			wp.next()
			return &Literal{Val: false}, nil
		case "NULL", "NONE":
			wp.next()
			return &Literal{Val: nil}, nil
		}
		return nil, fmt.Errorf("%w: unexpected keyword %q", ErrWhere, wp.cur.Val)
	case tNumber:
		val := wp.cur.Val
		wp.next()
		if strings.Contains(val, ".") {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrWhere, val)
			}
			return &Literal{Val: f}, nil
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrWhere, val)
		}
		return &Literal{Val: n}, nil
	case tString:
		e := &Literal{Val: wp.cur.Val}
		wp.next()
		return e, nil
	case tSymbol:
		if wp.cur.Val == "(" {
			wp.next()
			inner, err := wp.parseOr()
			if err != nil {
				return nil, err
			}
			if wp.cur.Typ != tSymbol || wp.cur.Val != ")" {
				return nil, fmt.Errorf("%w: missing closing parenthesis", ErrWhere)
			}
			wp.next()
			return inner, nil
		}
		return nil, fmt.Errorf("%w: unexpected symbol %q", ErrWhere, wp.cur.Val)
	case tIllegal:
		return nil, fmt.Errorf("%w: character %q not allowed in expression", ErrWhere, wp.cur.Val)
	case tEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrWhere)
	}
	return nil, fmt.Errorf("%w: unexpected token %q", ErrWhere, wp.cur.Val)
}

func isComparisonSymbol(sym string) bool {
	switch sym {
	case "=", "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func normalizeOp(sym string) string {
	if sym == "==" {
		return "="
	}
	return sym
}

// ----------------------- conjunction front end -----------------------

// Condition is one comparison in the simple AND-only front-end syntax:
// field, operator and the raw uncoerced value text.
type Condition struct {
	Field string
	Op    string
	Raw   string
}

// ParseComparison parses one phrase like `age>=30` or `name="Alice"` by
// scanning for the longest-match-first operator.
func ParseComparison(phrase string) (Condition, error) {
	phrase = strings.TrimSpace(phrase)
	for _, op := range comparisonOps {
		idx := strings.Index(phrase, op)
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(phrase[:idx])
		raw := strings.TrimSpace(phrase[idx+len(op):])
		if err := EnsureIdentifier(field, "field"); err != nil {
			return Condition{}, err
		}
		if raw == "" {
			return Condition{}, fmt.Errorf("%w: empty value in condition %q", ErrParse, phrase)
		}
		return Condition{Field: field, Op: normalizeOp(op), Raw: raw}, nil
	}
	return Condition{}, fmt.Errorf("%w: cannot parse condition %q", ErrParse, phrase)
}

// CompileConjunction turns a list of conditions into a predicate with AND
// semantics. It is the programmatic companion of CompileWhere, used when
// conditions arrive pre-split (repeated --where flags, generated filters).
func CompileConjunction(conds []Condition) (*Predicate, error) {
	if len(conds) == 0 {
		return &Predicate{}, nil
	}
	var root Expr
	var parts []string
	for _, c := range conds {
		lit, err := literalFromRaw(c.Raw)
		if err != nil {
			return nil, err
		}
		cmp := &Binary{Op: c.Op, Left: &FieldRef{Name: c.Field}, Right: lit}
		if root == nil {
			root = cmp
		} else {
			root = &Binary{Op: "AND", Left: root, Right: cmp}
		}
		parts = append(parts, c.Field+c.Op+c.Raw)
	}
	if err := validateExpr(root); err != nil {
		return nil, err
	}
	return &Predicate{Source: strings.Join(parts, " and "), root: root}, nil
}

// literalFromRaw types a raw condition value: quoted text is a string,
// null/none is null, true/false tokens are bools, digits become numbers,
// anything else is taken as a bare string.
func literalFromRaw(raw string) (*Literal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty condition value", ErrParse)
	}
	if len(raw) >= 2 && raw[0] == raw[len(raw)-1] && (raw[0] == '\'' || raw[0] == '"') {
		return &Literal{Val: raw[1 : len(raw)-1]}, nil
	}
	switch strings.ToLower(raw) {
	case "null", "none":
		return &Literal{Val: nil}, nil
	case "true":
		return &Literal{Val: true}, nil
	case "false":
		return &Literal{Val: false}, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return &Literal{Val: n}, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return &Literal{Val: f}, nil
	}
	return &Literal{Val: raw}, nil
}
