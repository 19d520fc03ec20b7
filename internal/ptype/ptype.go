package ptype

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"strings"
)

// Parameter limits enforced by the named factories.
const (
	MaxPrecision         = 38
	MaxTimePrecision     = 9
	MaxIntervalPrecision = 9
	MaxLength            = 1<<31 - 1
)

// PType is an immutable, parameterized type.
//
// A PType is a value: copy it freely and compare it with Equal, never with
// reflection on unexported fields. Only the parameters owned by the kind are
// meaningful; the guarded accessors panic for any other kind. The zero value
// is DYNAMIC.
type PType struct {
	kind      Kind
	precision int
	scale     int
	length    int
	fraction  int
	code      IntervalCode
	elem      *PType
	fields    []Field
	encoding  string
}

// Field is a named member of a ROW or STRUCT type.
type Field struct {
	Name string
	Type PType
}

// F is a shorthand for Field construction.
// Example: Row(F("id", Integer()), F("name", String()))
func F(name string, t PType) Field {
	return Field{Name: name, Type: t}
}

func newPType(k Kind) PType {
	return PType{kind: k}
}

func Dynamic() PType  { return newPType(KindDynamic) }
func Bool() PType     { return newPType(KindBool) }
func TinyInt() PType  { return newPType(KindTinyInt) }
func SmallInt() PType { return newPType(KindSmallInt) }
func Integer() PType  { return newPType(KindInteger) }
func BigInt() PType   { return newPType(KindBigInt) }
func Real() PType     { return newPType(KindReal) }
func Double() PType   { return newPType(KindDouble) }
func String() PType   { return newPType(KindString) }
func Date() PType     { return newPType(KindDate) }
func Struct() PType   { return newPType(KindStruct) }
func Unknown() PType  { return newPType(KindUnknown) }

// Numeric returns NUMERIC(precision, scale).
func Numeric(precision, scale int) PType {
	checkDecimal(KindNumeric, precision, scale)
	return PType{kind: KindNumeric, precision: precision, scale: scale}
}

// Decimal returns DECIMAL(precision, scale). Panics when precision is
// outside [1, MaxPrecision] or scale is outside [0, precision].
func Decimal(precision, scale int) PType {
	checkDecimal(KindDecimal, precision, scale)
	return PType{kind: KindDecimal, precision: precision, scale: scale}
}

func Char(length int) PType    { return lengthOf(KindChar, length) }
func Varchar(length int) PType { return lengthOf(KindVarchar, length) }
func Blob(length int) PType    { return lengthOf(KindBlob, length) }
func Clob(length int) PType    { return lengthOf(KindClob, length) }

func Time(precision int) PType       { return timeOf(KindTime, precision) }
func TimeZ(precision int) PType      { return timeOf(KindTimeZ, precision) }
func Timestamp(precision int) PType  { return timeOf(KindTimestamp, precision) }
func TimestampZ(precision int) PType { return timeOf(KindTimestampZ, precision) }

// IntervalYearMonth returns a year-month interval with the given leading
// field precision. code must be YEAR, MONTH or YEAR TO MONTH.
func IntervalYearMonth(code IntervalCode, precision int) PType {
	if !code.YearMonth() {
		panic(fmt.Errorf("ptype: %s is not a year-month interval code", code))
	}
	checkRange("interval precision", precision, 1, MaxIntervalPrecision)
	return PType{kind: KindIntervalYM, code: code, precision: precision}
}

// IntervalDayTime returns a day-time interval. fraction is the
// fractional seconds precision and must be zero unless the code ends in
// SECOND.
func IntervalDayTime(code IntervalCode, precision, fraction int) PType {
	if !code.valid() || code.YearMonth() {
		panic(fmt.Errorf("ptype: %s is not a day-time interval code", code))
	}
	checkRange("interval precision", precision, 1, MaxIntervalPrecision)
	if code.HasSeconds() {
		checkRange("interval fractional precision", fraction, 0, MaxIntervalPrecision)
	} else if fraction != 0 {
		panic(fmt.Errorf("ptype: fractional precision is not defined for INTERVAL %s", code))
	}
	return PType{kind: KindIntervalDT, code: code, precision: precision, fraction: fraction}
}

// IntervalDaySecond is INTERVAL DAY(precision) TO SECOND(fraction).
func IntervalDaySecond(precision, fraction int) PType {
	return IntervalDayTime(IntervalDayToSecond, precision, fraction)
}

// Array returns an ordered collection of elem.
func Array(elem PType) PType {
	e := elem
	return PType{kind: KindArray, elem: &e}
}

// Bag returns an unordered collection of elem.
func Bag(elem PType) PType {
	e := elem
	return PType{kind: KindBag, elem: &e}
}

// Row returns a closed, ordered tuple type. Field names may repeat.
func Row(fields ...Field) PType {
	return PType{kind: KindRow, fields: append([]Field(nil), fields...)}
}

// Variant returns a type whose values carry their own encoding, e.g.
// "ion".
func Variant(encoding string) PType {
	return PType{kind: KindVariant, encoding: encoding}
}

// Kind returns the type's kind tag.
func (t PType) Kind() Kind {
	return t.kind
}

// Precision applies to NUMERIC, DECIMAL, TIME, TIMEZ, TIMESTAMP, TIMESTAMPZ,
// INTERVAL_YM and INTERVAL_DT. For intervals it is the leading field
// precision.
func (t PType) Precision() int {
	switch t.kind {
	case KindNumeric, KindDecimal, KindTime, KindTimeZ, KindTimestamp, KindTimestampZ, KindIntervalYM, KindIntervalDT:
		return t.precision
	}
	panic(unsupported(t.kind, "precision"))
}

// Scale applies to NUMERIC and DECIMAL.
func (t PType) Scale() int {
	if t.kind == KindNumeric || t.kind == KindDecimal {
		return t.scale
	}
	panic(unsupported(t.kind, "scale"))
}

// Length applies to CHAR, VARCHAR, BLOB and CLOB.
func (t PType) Length() int {
	switch t.kind {
	case KindChar, KindVarchar, KindBlob, KindClob:
		return t.length
	}
	panic(unsupported(t.kind, "length"))
}

// TypeParameter is the element type of ARRAY and BAG.
func (t PType) TypeParameter() PType {
	if t.kind == KindArray || t.kind == KindBag {
		return *t.elem
	}
	panic(unsupported(t.kind, "type parameter"))
}

// Fields applies to ROW and STRUCT. STRUCT is open and reports no fields.
// The returned slice is a copy.
func (t PType) Fields() []Field {
	if t.kind == KindRow || t.kind == KindStruct {
		return append([]Field(nil), t.fields...)
	}
	panic(unsupported(t.kind, "fields"))
}

// IntervalCode applies to INTERVAL_YM and INTERVAL_DT.
func (t PType) IntervalCode() IntervalCode {
	if t.kind.IsInterval() {
		return t.code
	}
	panic(unsupported(t.kind, "interval code"))
}

// FractionalPrecision applies to INTERVAL_DT.
func (t PType) FractionalPrecision() int {
	if t.kind == KindIntervalDT {
		return t.fraction
	}
	panic(unsupported(t.kind, "fractional precision"))
}

// Encoding applies to VARIANT.
func (t PType) Encoding() string {
	if t.kind == KindVariant {
		return t.encoding
	}
	panic(unsupported(t.kind, "encoding"))
}

// Equal reports structural equality: same kind and same kind-specific
// parameters, recursively.
func (t PType) Equal(o PType) bool {
	if t.kind != o.kind ||
		t.precision != o.precision ||
		t.scale != o.scale ||
		t.length != o.length ||
		t.fraction != o.fraction ||
		t.code != o.code ||
		t.encoding != o.encoding {
		return false
	}
	if (t.elem == nil) != (o.elem == nil) {
		return false
	}
	if t.elem != nil && !t.elem.Equal(*o.elem) {
		return false
	}
	if len(t.fields) != len(o.fields) {
		return false
	}
	for i := range t.fields {
		if t.fields[i].Name != o.fields[i].Name || !t.fields[i].Type.Equal(o.fields[i].Type) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal.
func (t PType) Hash() uint64 {
	h := fnv.New64a()
	t.writeHash(h)
	return h.Sum64()
}

func (t PType) writeHash(w io.Writer) {
	fmt.Fprintf(w, "%d|%d|%d|%d|%d|%d|%s|", t.kind, t.precision, t.scale, t.length, t.fraction, t.code, t.encoding)
	if t.elem != nil {
		io.WriteString(w, "<")
		t.elem.writeHash(w)
		io.WriteString(w, ">")
	}
	for _, f := range t.fields {
		fmt.Fprintf(w, "%d:%s=", len(f.Name), f.Name)
		f.Type.writeHash(w)
		io.WriteString(w, ";")
	}
}

// String renders the type in the syntax accepted by Parse.
func (t PType) String() string {
	var sb strings.Builder
	t.format(&sb)
	return sb.String()
}

func (t PType) format(sb *strings.Builder) {
	switch t.kind {
	case KindNumeric, KindDecimal:
		fmt.Fprintf(sb, "%s(%d,%d)", t.kind, t.precision, t.scale)
	case KindChar, KindVarchar, KindBlob, KindClob:
		fmt.Fprintf(sb, "%s(%d)", t.kind, t.length)
	case KindTime, KindTimeZ, KindTimestamp, KindTimestampZ:
		fmt.Fprintf(sb, "%s(%d)", t.kind, t.precision)
	case KindIntervalYM, KindIntervalDT:
		f := t.code.fields()
		sb.WriteString("INTERVAL ")
		sb.WriteString(f.lead)
		switch {
		case f.trail == "" && t.code.HasSeconds():
			fmt.Fprintf(sb, "(%d,%d)", t.precision, t.fraction)
		case f.trail == "":
			fmt.Fprintf(sb, "(%d)", t.precision)
		case t.code.HasSeconds():
			fmt.Fprintf(sb, "(%d) TO %s(%d)", t.precision, f.trail, t.fraction)
		default:
			fmt.Fprintf(sb, "(%d) TO %s", t.precision, f.trail)
		}
	case KindArray, KindBag:
		sb.WriteString(t.kind.String())
		sb.WriteByte('<')
		t.elem.format(sb)
		sb.WriteByte('>')
	case KindRow:
		sb.WriteString("ROW(")
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteName(f.Name))
			sb.WriteByte(' ')
			f.Type.format(sb)
		}
		sb.WriteByte(')')
	case KindVariant:
		fmt.Fprintf(sb, "VARIANT(%s)", quoteName(t.encoding))
	default:
		sb.WriteString(t.kind.String())
	}
}

// Common returns the shared type of ts when they are all equal, and DYNAMIC
// otherwise. UNKNOWN members (the type of NULL and MISSING literals) are
// ignored.
func Common(ts ...PType) PType {
	var out *PType
	for i := range ts {
		if ts[i].kind == KindUnknown {
			continue
		}
		if out == nil {
			out = &ts[i]
			continue
		}
		if !out.Equal(ts[i]) {
			return Dynamic()
		}
	}
	if out == nil {
		if len(ts) > 0 {
			return Unknown()
		}
		return Dynamic()
	}
	return *out
}

func unsupported(k Kind, accessor string) error {
	return fmt.Errorf("ptype: %s is not defined for %s: %w", accessor, k, errors.ErrUnsupported)
}

func checkRange(what string, v, lo, hi int) {
	if v < lo || v > hi {
		panic(fmt.Errorf("ptype: %s %d out of range [%d, %d]", what, v, lo, hi))
	}
}

func checkDecimal(k Kind, precision, scale int) {
	checkRange(k.String()+" precision", precision, 1, MaxPrecision)
	checkRange(k.String()+" scale", scale, 0, precision)
}

func lengthOf(k Kind, length int) PType {
	checkRange(k.String()+" length", length, 1, MaxLength)
	return PType{kind: k, length: length}
}

func timeOf(k Kind, precision int) PType {
	checkRange(k.String()+" precision", precision, 0, MaxTimePrecision)
	return PType{kind: k, precision: precision}
}

func quoteName(s string) string {
	if isIdent(s) {
		return s
	}
	return strconv.Quote(s)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
