package plan

import (
	"strconv"
	"strings"

	"github.com/roach88/planir/internal/ptype"
)

// JoinType selects the row-preservation rule of Join and Correlate.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

func (j JoinType) String() string {
	switch j {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	}
	return "JoinType(" + strconv.Itoa(int(j)) + ")"
}

// Order is a sort direction.
type Order int

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "DESC"
	}
	return "ASC"
}

// Nulls places NULL and MISSING keys before or after all other keys.
type Nulls int

const (
	NullsLast Nulls = iota
	NullsFirst
)

func (n Nulls) String() string {
	if n == NullsFirst {
		return "FIRST"
	}
	return "LAST"
}

// Comparison is the operator of a quantified subquery comparison.
type Comparison int

const (
	CompEQ Comparison = iota
	CompNE
	CompLT
	CompLE
	CompGT
	CompGE
)

var comparisonNames = [...]string{"EQ", "NE", "LT", "LE", "GT", "GE"}

func (c Comparison) String() string {
	if c >= 0 && int(c) < len(comparisonNames) {
		return comparisonNames[c]
	}
	return "Comparison(" + strconv.Itoa(int(c)) + ")"
}

// Quantifier is ANY, ALL or SOME. SOME is a synonym of ANY kept distinct so
// plans print the way they were written.
type Quantifier int

const (
	QuantAny Quantifier = iota
	QuantAll
	QuantSome
)

func (q Quantifier) String() string {
	switch q {
	case QuantAll:
		return "ALL"
	case QuantSome:
		return "SOME"
	}
	return "ANY"
}

// TestKind is the predicate applied by SubqueryTest.
type TestKind int

const (
	TestExists TestKind = iota
	TestUnique
)

func (k TestKind) String() string {
	if k == TestUnique {
		return "UNIQUE"
	}
	return "EXISTS"
}

// FnSignature is a statically resolved scalar function, as supplied by the
// catalog. The plan never looks inside it beyond the return type.
type FnSignature struct {
	Name    string
	Params  []ptype.PType
	Returns ptype.PType
	// NullCall marks functions that return NULL whenever any argument is NULL.
	NullCall bool
}

// ID renders the signature as name(T1, T2).
func (f *FnSignature) ID() string {
	return signatureID(f.Name, f.Params)
}

// AggSignature is a resolved aggregate function.
type AggSignature struct {
	Name    string
	Params  []ptype.PType
	Returns ptype.PType
}

func (a *AggSignature) ID() string {
	return signatureID(a.Name, a.Params)
}

// WindowFunctionSignature is a resolved window function such as RANK or LAG.
type WindowFunctionSignature struct {
	Name        string
	Returns     ptype.PType
	Params      []ptype.PType
	IgnoreNulls bool
}

func (w *WindowFunctionSignature) ID() string {
	return signatureID(w.Name, w.Params)
}

func signatureID(name string, params []ptype.PType) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// TableRef is an opaque catalog table handle. Schema is the static type of
// the table's value, normally BAG<ROW(...)>.
type TableRef struct {
	Name   string
	Schema ptype.PType
}

// Collation is a sort key attached to Sort and Window.
type Collation struct {
	column Rex
	order  Order
	nulls  Nulls
}

func NewCollation(column Rex, order Order, nulls Nulls) *Collation {
	return &Collation{column: column, order: order, nulls: nulls}
}

func (c *Collation) Column() Rex  { return c.column }
func (c *Collation) Order() Order { return c.order }
func (c *Collation) Nulls() Nulls { return c.nulls }

// Measure is one aggregate call of an Aggregate.
type Measure struct {
	agg      *AggSignature
	args     []Rex
	distinct bool
}

func NewMeasure(agg *AggSignature, args []Rex, distinct bool) *Measure {
	return &Measure{agg: agg, args: args, distinct: distinct}
}

func (m *Measure) Agg() *AggSignature { return m.agg }

// Args returns the argument list. Callers must not modify it.
func (m *Measure) Args() []Rex    { return m.args }
func (m *Measure) Distinct() bool { return m.distinct }

// CaseBranch is one WHEN condition THEN result arm.
type CaseBranch struct {
	condition Rex
	result    Rex
}

func NewCaseBranch(condition, result Rex) *CaseBranch {
	return &CaseBranch{condition: condition, result: result}
}

func (b *CaseBranch) Condition() Rex { return b.condition }
func (b *CaseBranch) Result() Rex    { return b.result }

// StructField is a key/value member of a Struct constructor. Keys are
// expressions; a literal string key gives the field a static name.
type StructField struct {
	key   Rex
	value Rex
}

func NewStructField(key, value Rex) *StructField {
	return &StructField{key: key, value: value}
}

func (f *StructField) Key() Rex   { return f.key }
func (f *StructField) Value() Rex { return f.value }

// WindowFunctionNode is one window function call of a Window.
type WindowFunctionNode struct {
	signature *WindowFunctionSignature
	args      []Rex
}

func NewWindowFunction(signature *WindowFunctionSignature, args []Rex) *WindowFunctionNode {
	return &WindowFunctionNode{signature: signature, args: args}
}

func (w *WindowFunctionNode) Signature() *WindowFunctionSignature { return w.signature }
func (w *WindowFunctionNode) Args() []Rex                         { return w.args }

// Exclusion removes the paths described by items from the value bound to
// variable. An empty item list excludes nothing.
type Exclusion struct {
	variable *Var
	items    []ExclusionItem
}

// NewExclusion panics when variable is nil.
func NewExclusion(variable *Var, items []ExclusionItem) *Exclusion {
	if variable == nil {
		panic("plan: exclusion requires a variable")
	}
	return &Exclusion{variable: variable, items: items}
}

func (e *Exclusion) Variable() *Var         { return e.variable }
func (e *Exclusion) Items() []ExclusionItem { return e.items }

// ExclusionItem is a sealed interface over the steps of an exclusion path.
// Each step may continue into nested items; a step with no nested items is
// the path's end and removes what it addresses.
type ExclusionItem interface {
	Items() []ExclusionItem
	exclusionItem()
}

// ExcludeKey addresses a struct field by case-sensitive key.
type ExcludeKey struct {
	Key  string
	Next []ExclusionItem
}

// ExcludeSymbol addresses a struct field by case-insensitive symbol.
type ExcludeSymbol struct {
	Symbol string
	Next   []ExclusionItem
}

// ExcludeIndex addresses a collection element by position.
type ExcludeIndex struct {
	Index int
	Next  []ExclusionItem
}

// ExcludeStructWildcard addresses every field of a struct.
type ExcludeStructWildcard struct {
	Next []ExclusionItem
}

// ExcludeCollWildcard addresses every element of a collection.
type ExcludeCollWildcard struct {
	Next []ExclusionItem
}

func (e ExcludeKey) Items() []ExclusionItem            { return e.Next }
func (e ExcludeSymbol) Items() []ExclusionItem         { return e.Next }
func (e ExcludeIndex) Items() []ExclusionItem          { return e.Next }
func (e ExcludeStructWildcard) Items() []ExclusionItem { return e.Next }
func (e ExcludeCollWildcard) Items() []ExclusionItem   { return e.Next }

func (ExcludeKey) exclusionItem()            {}
func (ExcludeSymbol) exclusionItem()         {}
func (ExcludeIndex) exclusionItem()          {}
func (ExcludeStructWildcard) exclusionItem() {}
func (ExcludeCollWildcard) exclusionItem()   {}
