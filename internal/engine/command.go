package engine

import (
	"fmt"
	"strings"
)

// The command parser turns one line of interpreter input into a structured
// Command. Tokenization honors single and double quotes so values may
// contain spaces, separators and the where keyword.

// Command is one parsed interpreter command.
type Command struct {
	Name      string            // create_table, drop_table, list_tables, insert, select, update, delete, help, exit
	Table     string
	Columns   []Column          // create_table
	Values    map[string]string // insert: field -> raw value
	SetValues map[string]string // update: field -> raw value
	Where     string            // raw where expression, "" when absent
}

// HelpText is printed by the help command.
const HelpText = `Commands:
  create_table <table> <field:type> <field:type> ...
  list_tables
  drop_table <table>

  insert <table> <field=value> <field=value> ...
  select <table> [where <expression>]
  update <table> set <field=value>, <field=value> [where <expression>]
  delete <table> [where <expression>]

  help
  exit

Types: bool, float, int, str. The id field is assigned automatically.

Examples:
  create_table users name:str age:int is_active:bool
  insert users name="Alice" age=30 is_active=true
  select users where age>=30 and is_active=true
  update users set age=31 where name="Alice"
  delete users where id=1
`

// ParseCommand parses one interpreter line. Malformed input wraps ErrParse.
func ParseCommand(line string) (*Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty command", ErrParse)
	}
	first, rest := splitWord(line)
	switch strings.ToLower(first) {
	case "exit", "quit":
		return &Command{Name: "exit"}, nil
	case "help":
		return &Command{Name: "help"}, nil
	case "list_tables":
		return &Command{Name: "list_tables"}, nil
	case "create_table":
		return parseCreateTable(rest)
	case "drop_table":
		return parseDropTable(rest)
	case "insert":
		return parseInsert(rest)
	case "select":
		return parseWhereOnly("select", rest)
	case "update":
		return parseUpdate(rest)
	case "delete":
		return parseWhereOnly("delete", rest)
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrParse, first)
}

func parseCreateTable(rest string) (*Command, error) {
	tokens, err := splitTokens(rest)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: usage: create_table <table> <field:type> ...", ErrParse)
	}
	cols := make([]Column, 0, len(tokens)-1)
	for _, spec := range tokens[1:] {
		c, err := ParseColumnSpec(spec)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return &Command{Name: "create_table", Table: tokens[0], Columns: cols}, nil
}

func parseDropTable(rest string) (*Command, error) {
	tokens, err := splitTokens(rest)
	if err != nil {
		return nil, err
	}
	if len(tokens) != 1 {
		return nil, fmt.Errorf("%w: usage: drop_table <table>", ErrParse)
	}
	return &Command{Name: "drop_table", Table: tokens[0]}, nil
}

func parseInsert(rest string) (*Command, error) {
	tokens, err := splitTokens(rest)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: usage: insert <table> <field=value> ...", ErrParse)
	}
	values := map[string]string{}
	for _, tok := range tokens[1:] {
		field, raw, err := parseAssignment(tok)
		if err != nil {
			return nil, err
		}
		values[field] = raw
	}
	return &Command{Name: "insert", Table: tokens[0], Values: values}, nil
}

// parseWhereOnly handles the shared shape of select and delete:
// <cmd> <table> [where <expression>].
func parseWhereOnly(name, rest string) (*Command, error) {
	head, where, err := cutKeyword(rest, "where")
	if err != nil {
		return nil, err
	}
	tokens, err := splitTokens(head)
	if err != nil {
		return nil, err
	}
	if len(tokens) != 1 {
		return nil, fmt.Errorf("%w: usage: %s <table> [where <expression>]", ErrParse, name)
	}
	return &Command{Name: name, Table: tokens[0], Where: where}, nil
}

func parseUpdate(rest string) (*Command, error) {
	head, tail, err := cutKeyword(rest, "set")
	if err != nil {
		return nil, err
	}
	if tail == "" {
		return nil, fmt.Errorf("%w: usage: update <table> set <field=value>, ... [where <expression>]", ErrParse)
	}
	tokens, err := splitTokens(head)
	if err != nil {
		return nil, err
	}
	if len(tokens) != 1 {
		return nil, fmt.Errorf("%w: usage: update <table> set <field=value>, ... [where <expression>]", ErrParse)
	}
	setClause, where, err := cutKeyword(tail, "where")
	if err != nil {
		return nil, err
	}
	setValues := map[string]string{}
	for _, part := range splitOutsideQuotes(setClause, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, raw, err := parseAssignment(part)
		if err != nil {
			return nil, err
		}
		setValues[field] = raw
	}
	if len(setValues) == 0 {
		return nil, fmt.Errorf("%w: update requires set", ErrParse)
	}
	return &Command{Name: "update", Table: tokens[0], SetValues: setValues, Where: where}, nil
}

// parseAssignment splits "field=value" at the first equals sign. The raw
// value keeps its quotes; scalar coercion strips them later.
func parseAssignment(expr string) (string, string, error) {
	idx := strings.Index(expr, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("%w: expected field=value, got %q", ErrParse, expr)
	}
	field := strings.TrimSpace(expr[:idx])
	raw := strings.TrimSpace(expr[idx+1:])
	if err := EnsureIdentifier(field, "field"); err != nil {
		return "", "", err
	}
	return field, raw, nil
}

// splitWord cuts the first whitespace-delimited word off a line.
func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

// cutKeyword splits text at the first standalone, unquoted, case-insensitive
// occurrence of kw. It returns the text before and after the keyword; if the
// keyword is present but followed by nothing, that is a parse error.
func cutKeyword(text, kw string) (before, after string, err error) {
	idx := indexKeyword(text, kw)
	if idx < 0 {
		return strings.TrimSpace(text), "", nil
	}
	before = strings.TrimSpace(text[:idx])
	after = strings.TrimSpace(text[idx+len(kw):])
	if after == "" {
		return "", "", fmt.Errorf("%w: %s clause is empty", ErrParse, kw)
	}
	return before, after, nil
}

// indexKeyword finds a standalone keyword outside quoted segments, case
// insensitively. Returns -1 when absent.
func indexKeyword(text, kw string) int {
	var quote byte
	for i := 0; i+len(kw) <= len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if !strings.EqualFold(text[i:i+len(kw)], kw) {
			continue
		}
		beforeOK := i == 0 || text[i-1] == ' ' || text[i-1] == '\t'
		afterIdx := i + len(kw)
		afterOK := afterIdx == len(text) || text[afterIdx] == ' ' || text[afterIdx] == '\t'
		if beforeOK && afterOK {
			return i
		}
	}
	return -1
}

// splitTokens splits on whitespace while honoring quotes, shell-style:
// quotes group characters into one token and are dropped from the result.
func splitTokens(s string) ([]string, error) {
	var (
		tokens []string
		sb     strings.Builder
		quote  byte
		inTok  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				sb.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inTok = true
		case c == ' ' || c == '\t':
			if inTok {
				tokens = append(tokens, sb.String())
				sb.Reset()
				inTok = false
			}
		default:
			sb.WriteByte(c)
			inTok = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", ErrParse)
	}
	if inTok {
		tokens = append(tokens, sb.String())
	}
	return tokens, nil
}

// splitOutsideQuotes splits text on sep, ignoring separators inside single
// or double quotes.
func splitOutsideQuotes(text string, sep byte) []string {
	var (
		parts []string
		sb    strings.Builder
		quote byte
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			sb.WriteByte(c)
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			sb.WriteByte(c)
			continue
		}
		if c == sep {
			parts = append(parts, sb.String())
			sb.Reset()
			continue
		}
		sb.WriteByte(c)
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}
