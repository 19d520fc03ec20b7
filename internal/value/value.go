// Package value holds the literal datums carried by plan literals.
//
// This is not the evaluator's runtime value model. It only needs to
// describe constants well enough to type them, print them, compare them and
// encode them canonically for plan fingerprints.
package value

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/planir/internal/ptype"
)

// Datum is a sealed interface over literal values.
// Only the types in this package implement it.
type Datum interface {
	// Type is the static type of the literal.
	Type() ptype.PType
	datum()
}

// Null is the typed-nowhere SQL NULL.
type Null struct{}

// Missing is the PartiQL absent value.
type Missing struct{}

type Bool bool

// Int is an exact integer. It types as INTEGER when it fits in 32 bits and
// BIGINT otherwise.
type Int int64

// Decimal is an exact decimal with its own precision and scale.
type Decimal struct {
	decimal.Decimal
}

type Double float64

type String string

type Blob []byte

// Date holds a calendar date; the clock part of the time is ignored.
type Date time.Time

// Timestamp holds a timestamp without time zone.
type Timestamp time.Time

// Array is an ordered collection.
type Array []Datum

// Bag is an unordered collection. The slice order carries no meaning.
type Bag []Datum

// Pair is a struct member. Keys may repeat.
type Pair struct {
	Key   string
	Value Datum
}

// Struct is an ordered list of key/value pairs.
type Struct []Pair

func (Null) datum()      {}
func (Missing) datum()   {}
func (Bool) datum()      {}
func (Int) datum()       {}
func (Decimal) datum()   {}
func (Double) datum()    {}
func (String) datum()    {}
func (Blob) datum()      {}
func (Date) datum()      {}
func (Timestamp) datum() {}
func (Array) datum()     {}
func (Bag) datum()       {}
func (Struct) datum()    {}

func (Null) Type() ptype.PType    { return ptype.Unknown() }
func (Missing) Type() ptype.PType { return ptype.Unknown() }
func (Bool) Type() ptype.PType    { return ptype.Bool() }

func (i Int) Type() ptype.PType {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return ptype.Integer()
	}
	return ptype.BigInt()
}

// Type derives DECIMAL(p,s) from the digits of the value, clamped to
// ptype.MaxPrecision.
func (d Decimal) Type() ptype.PType {
	scale := 0
	if e := d.Exponent(); e < 0 {
		scale = int(-e)
	}
	digits := len(strings.TrimPrefix(d.Coefficient().String(), "-"))
	if e := d.Exponent(); e > 0 {
		digits += int(e)
	}
	precision := max(digits, scale, 1)
	if precision > ptype.MaxPrecision {
		precision = ptype.MaxPrecision
	}
	scale = min(scale, precision)
	return ptype.Decimal(precision, scale)
}

func (Double) Type() ptype.PType    { return ptype.Double() }
func (String) Type() ptype.PType    { return ptype.String() }
func (b Blob) Type() ptype.PType    { return ptype.Blob(max(len(b), 1)) }
func (Date) Type() ptype.PType      { return ptype.Date() }
func (Timestamp) Type() ptype.PType { return ptype.Timestamp(6) }

func (a Array) Type() ptype.PType { return ptype.Array(elementType(a)) }
func (b Bag) Type() ptype.PType   { return ptype.Bag(elementType(b)) }
func (Struct) Type() ptype.PType  { return ptype.Struct() }

func elementType(ds []Datum) ptype.PType {
	if len(ds) == 0 {
		return ptype.Dynamic()
	}
	ts := make([]ptype.PType, len(ds))
	for i, d := range ds {
		ts[i] = d.Type()
	}
	return ptype.Common(ts...)
}

// NewDecimal parses an exact decimal literal such as "12.50".
func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal literal %q: %w", s, err)
	}
	return Decimal{d}, nil
}

// MustDecimal is like NewDecimal but panics on error.
// Use only in tests or with constant input.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// P is a shorthand for Pair construction.
func P(key string, v Datum) Pair {
	return Pair{Key: key, Value: v}
}

// Equal reports whether a and b are the same literal. Decimals compare by
// value and trailing zeros (1.0 and 1.00 differ, matching their types).
// Bags compare in order; callers that need multiset equality sort first.
func Equal(a, b Datum) bool {
	switch x := a.(type) {
	case Null, Missing, Bool, Int, Double, String:
		return a == b
	case Decimal:
		y, ok := b.(Decimal)
		return ok && x.Equal(y.Decimal) && x.Exponent() == y.Exponent()
	case Blob:
		y, ok := b.(Blob)
		return ok && bytes.Equal(x, y)
	case Date:
		y, ok := b.(Date)
		return ok && time.Time(x).Equal(time.Time(y))
	case Timestamp:
		y, ok := b.(Timestamp)
		return ok && time.Time(x).Equal(time.Time(y))
	case Array:
		y, ok := b.(Array)
		return ok && equalAll(x, y)
	case Bag:
		y, ok := b.(Bag)
		return ok && equalAll(x, y)
	case Struct:
		y, ok := b.(Struct)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Key != y[i].Key || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

func equalAll(a, b []Datum) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Format renders a literal in PartiQL-like text, for plan printing.
func Format(d Datum) string {
	var sb strings.Builder
	format(&sb, d)
	return sb.String()
}

func format(sb *strings.Builder, d Datum) {
	switch v := d.(type) {
	case Null:
		sb.WriteString("NULL")
	case Missing:
		sb.WriteString("MISSING")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(v)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case Decimal:
		sb.WriteString(v.Decimal.StringFixed(-v.Exponent()))
	case Double:
		sb.WriteString(strconv.FormatFloat(float64(v), 'e', -1, 64))
	case String:
		sb.WriteString(quote(string(v)))
	case Blob:
		sb.WriteString("X'")
		sb.WriteString(hex.EncodeToString(v))
		sb.WriteString("'")
	case Date:
		sb.WriteString("DATE '")
		sb.WriteString(time.Time(v).Format(time.DateOnly))
		sb.WriteString("'")
	case Timestamp:
		sb.WriteString("TIMESTAMP '")
		sb.WriteString(time.Time(v).Format("2006-01-02 15:04:05.999999"))
		sb.WriteString("'")
	case Array:
		formatList(sb, "[", "]", v)
	case Bag:
		formatList(sb, "<<", ">>", v)
	case Struct:
		sb.WriteString("{")
		for i, p := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quote(p.Key))
			sb.WriteString(": ")
			format(sb, p.Value)
		}
		sb.WriteString("}")
	default:
		fmt.Fprintf(sb, "<%T>", d)
	}
}

func formatList(sb *strings.Builder, lhs, rhs string, ds []Datum) {
	sb.WriteString(lhs)
	for i, d := range ds {
		if i > 0 {
			sb.WriteString(", ")
		}
		format(sb, d)
	}
	sb.WriteString(rhs)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
