package ptype

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a type written in the syntax produced by PType.String.
// Keywords are case-insensitive. Parameters may be omitted where a default
// exists: DECIMAL and NUMERIC default to (38,0), CHAR to (1), TIME and
// TIMESTAMP to (6), ARRAY and BAG to an element type of DYNAMIC.
//
// Unlike the factories, Parse reports invalid parameters as errors.
func Parse(s string) (t PType, err error) {
	p := &parser{src: s}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("parse type %q: %w", s, e)
		}
	}()
	p.next()
	t = p.parseType()
	if p.tok.kind != tokEOF {
		panic(fmt.Errorf("unexpected %q at offset %d", p.tok.text, p.tok.pos))
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant input.
func MustParse(s string) PType {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	off int
	tok token
}

func (p *parser) next() {
	for p.off < len(p.src) && (p.src[p.off] == ' ' || p.src[p.off] == '\t') {
		p.off++
	}
	start := p.off
	if p.off >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.off]
	switch {
	case c == '_' || isLetter(c):
		for p.off < len(p.src) && (p.src[p.off] == '_' || isLetter(p.src[p.off]) || isDigit(p.src[p.off])) {
			p.off++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.off], pos: start}
	case isDigit(c):
		for p.off < len(p.src) && isDigit(p.src[p.off]) {
			p.off++
		}
		p.tok = token{kind: tokNumber, text: p.src[start:p.off], pos: start}
	case c == '"':
		p.off++
		for p.off < len(p.src) && p.src[p.off] != '"' {
			if p.src[p.off] == '\\' {
				p.off++
			}
			p.off++
		}
		if p.off >= len(p.src) {
			panic(fmt.Errorf("unterminated quoted name at offset %d", start))
		}
		p.off++
		name, err := strconv.Unquote(p.src[start:p.off])
		if err != nil {
			panic(fmt.Errorf("bad quoted name at offset %d: %w", start, err))
		}
		p.tok = token{kind: tokString, text: name, pos: start}
	default:
		p.off++
		p.tok = token{kind: tokPunct, text: string(c), pos: start}
	}
}

func (p *parser) accept(punct string) bool {
	if p.tok.kind == tokPunct && p.tok.text == punct {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(punct string) {
	if !p.accept(punct) {
		panic(fmt.Errorf("expected %q at offset %d", punct, p.tok.pos))
	}
}

func (p *parser) keyword() string {
	if p.tok.kind != tokIdent {
		panic(fmt.Errorf("expected type name at offset %d", p.tok.pos))
	}
	kw := strings.ToUpper(p.tok.text)
	p.next()
	return kw
}

func (p *parser) number() int {
	if p.tok.kind != tokNumber {
		panic(fmt.Errorf("expected number at offset %d", p.tok.pos))
	}
	n, err := strconv.Atoi(p.tok.text)
	if err != nil {
		panic(err)
	}
	p.next()
	return n
}

func (p *parser) name() string {
	switch p.tok.kind {
	case tokIdent, tokString:
		s := p.tok.text
		p.next()
		return s
	}
	panic(fmt.Errorf("expected field name at offset %d", p.tok.pos))
}

// params parses an optional parenthesized list of up to max integers.
func (p *parser) params(max int) []int {
	if !p.accept("(") {
		return nil
	}
	var out []int
	for {
		out = append(out, p.number())
		if len(out) > max {
			panic(fmt.Errorf("too many parameters at offset %d", p.tok.pos))
		}
		if p.accept(")") {
			return out
		}
		p.expect(",")
	}
}

func param(ps []int, i, def int) int {
	if i < len(ps) {
		return ps[i]
	}
	return def
}

var simpleKinds = map[string]func() PType{
	"DYNAMIC":  Dynamic,
	"ANY":      Dynamic,
	"BOOL":     Bool,
	"BOOLEAN":  Bool,
	"TINYINT":  TinyInt,
	"SMALLINT": SmallInt,
	"INT":      Integer,
	"INTEGER":  Integer,
	"BIGINT":   BigInt,
	"REAL":     Real,
	"DOUBLE":   Double,
	"STRING":   String,
	"DATE":     Date,
	"STRUCT":   Struct,
	"UNKNOWN":  Unknown,
}

func (p *parser) parseType() PType {
	kw := p.keyword()
	if f, ok := simpleKinds[kw]; ok {
		return f()
	}
	switch kw {
	case "NUMERIC":
		ps := p.params(2)
		return Numeric(param(ps, 0, MaxPrecision), param(ps, 1, 0))
	case "DECIMAL":
		ps := p.params(2)
		return Decimal(param(ps, 0, MaxPrecision), param(ps, 1, 0))
	case "CHAR":
		return Char(param(p.params(1), 0, 1))
	case "VARCHAR":
		ps := p.params(1)
		if len(ps) == 0 {
			panic(fmt.Errorf("VARCHAR requires a length"))
		}
		return Varchar(ps[0])
	case "BLOB":
		return Blob(param(p.params(1), 0, MaxLength))
	case "CLOB":
		return Clob(param(p.params(1), 0, MaxLength))
	case "TIME":
		return Time(param(p.params(1), 0, 6))
	case "TIMEZ":
		return TimeZ(param(p.params(1), 0, 6))
	case "TIMESTAMP":
		return Timestamp(param(p.params(1), 0, 6))
	case "TIMESTAMPZ":
		return TimestampZ(param(p.params(1), 0, 6))
	case "ARRAY", "BAG":
		elem := Dynamic()
		if p.accept("<") {
			elem = p.parseType()
			p.expect(">")
		}
		if kw == "ARRAY" {
			return Array(elem)
		}
		return Bag(elem)
	case "ROW":
		p.expect("(")
		var fields []Field
		if !p.accept(")") {
			for {
				name := p.name()
				fields = append(fields, F(name, p.parseType()))
				if p.accept(")") {
					break
				}
				p.expect(",")
			}
		}
		return Row(fields...)
	case "VARIANT":
		p.expect("(")
		enc := p.name()
		p.expect(")")
		return Variant(enc)
	case "INTERVAL":
		return p.parseInterval()
	}
	panic(fmt.Errorf("unknown type %q", kw))
}

func (p *parser) parseInterval() PType {
	lead := p.keyword()
	ps := p.params(2)
	trail := ""
	var tps []int
	if p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, "TO") {
		p.next()
		trail = p.keyword()
		tps = p.params(1)
	}
	code, ok := parseIntervalCode(lead, trail)
	if !ok {
		panic(fmt.Errorf("unknown interval qualifier %s TO %s", lead, trail))
	}
	precision := param(ps, 0, 2)
	if code.YearMonth() {
		return IntervalYearMonth(code, precision)
	}
	fraction := 0
	if code.HasSeconds() {
		if trail == "" {
			fraction = param(ps, 1, 6)
		} else {
			fraction = param(tps, 0, 6)
		}
	}
	return IntervalDayTime(code, precision, fraction)
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
