package engine

import (
	"strings"
	"unicode"
)

// The where lexer: a single-pass rune scanner producing identifiers,
// keywords, number and string literals, and the handful of symbols the
// restricted grammar allows. Anything else becomes an illegal token the
// parser rejects, so unexpected input fails closed at compile time instead
// of being guessed at.

type tokenType int

const (
	tEOF tokenType = iota
	tIdent
	tNumber
	tString
	tSymbol
	tKeyword
	tIllegal
)

type token struct {
	Typ tokenType
	Val string
	Pos int
}

// whereKeywords is the full keyword set of the grammar. Bare true/false/null
// are literals, not field references.
var whereKeywords = map[string]bool{
	"AND": true, "OR": true, "TRUE": true, "FALSE": true,
	"NULL": true, "NONE": true,
}

// twoCharSymbols are matched before single characters; checking "=" first
// would mis-split "age>=30" into ">" and "=30".
var twoCharSymbols = []string{">=", "<=", "!=", "=="}

const oneCharSymbols = "=<>()"

type lexer struct {
	s   string
	pos int
}

func newLexer(s string) *lexer { return &lexer{s: s} }

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.s) {
		return 0
	}
	return lx.s[lx.pos]
}

func (lx *lexer) skipWS() {
	for lx.pos < len(lx.s) && unicode.IsSpace(rune(lx.s[lx.pos])) {
		lx.pos++
	}
}

func (lx *lexer) nextToken() token {
	lx.skipWS()
	start := lx.pos
	if start >= len(lx.s) {
		return token{Typ: tEOF, Pos: start}
	}
	c := lx.peek()

	if c == '\'' || c == '"' {
		return lx.tokenizeString(start, c)
	}
	if c >= '0' && c <= '9' {
		return lx.tokenizeNumber(start)
	}
	if isIdentStart(c) {
		return lx.tokenizeIdent(start)
	}
	for _, sym := range twoCharSymbols {
		if strings.HasPrefix(lx.s[start:], sym) {
			lx.pos += 2
			return token{Typ: tSymbol, Val: sym, Pos: start}
		}
	}
	if strings.IndexByte(oneCharSymbols, c) >= 0 {
		lx.pos++
		return token{Typ: tSymbol, Val: string(c), Pos: start}
	}
	lx.pos++
	return token{Typ: tIllegal, Val: string(c), Pos: start}
}

func (lx *lexer) tokenizeString(start int, quote byte) token {
	lx.pos++ // opening quote
	var sb strings.Builder
	for lx.pos < len(lx.s) {
		c := lx.s[lx.pos]
		if c == quote {
			lx.pos++
			return token{Typ: tString, Val: sb.String(), Pos: start}
		}
		sb.WriteByte(c)
		lx.pos++
	}
	// unterminated string
	return token{Typ: tIllegal, Val: lx.s[start:], Pos: start}
}

func (lx *lexer) tokenizeNumber(start int) token {
	seenDot := false
	for lx.pos < len(lx.s) {
		c := lx.s[lx.pos]
		if c == '.' && !seenDot {
			seenDot = true
			lx.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		lx.pos++
	}
	return token{Typ: tNumber, Val: lx.s[start:lx.pos], Pos: start}
}

func (lx *lexer) tokenizeIdent(start int) token {
	for lx.pos < len(lx.s) && isIdentPart(lx.s[lx.pos]) {
		lx.pos++
	}
	val := lx.s[start:lx.pos]
	if whereKeywords[strings.ToUpper(val)] {
		return token{Typ: tKeyword, Val: strings.ToUpper(val), Pos: start}
	}
	return token{Typ: tIdent, Val: val, Pos: start}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
