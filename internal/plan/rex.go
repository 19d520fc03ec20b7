package plan

import (
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

// Lit is a constant.
type Lit struct {
	base
	value value.Datum
}

// Var is a resolved variable reference. Scope counts enclosing scopes
// outward from the current one (0 is the local row); offset is the field
// position within that scope's row.
type Var struct {
	base
	scope  int
	offset int
}

// Table is a reference to a catalog table.
type Table struct {
	base
	ref *TableRef
}

// Error is a placeholder for an expression that failed to resolve. It keeps
// the tree well formed so later passes can report more than one problem.
type Error struct {
	base
	message string
}

// PathKey addresses a struct field by case-sensitive key, as in x['a'].
type PathKey struct {
	base
	operand Rex
	key     Rex
}

// PathIndex addresses an array element by position, as in x[0].
type PathIndex struct {
	base
	operand Rex
	index   Rex
}

// PathSymbol addresses a struct field by case-insensitive name, as in x.a.
type PathSymbol struct {
	base
	operand Rex
	symbol  string
}

// Call invokes a statically resolved function.
type Call struct {
	base
	fn   *FnSignature
	args []Rex
}

// Dispatch is an unresolved overload set. The evaluator picks one of
// candidates by the runtime types of args.
type Dispatch struct {
	base
	name       string
	candidates []*FnSignature
	args       []Rex
}

// Case is CASE [match] WHEN ... THEN ... [ELSE default] END. With match set
// each branch condition is compared to it for equality (simple CASE);
// otherwise each condition is a predicate (searched CASE). Both match and
// def may be nil.
type Case struct {
	base
	match    Rex
	branches []*CaseBranch
	def      Rex
}

// Cast converts operand to target.
type Cast struct {
	base
	operand Rex
	target  ptype.PType
}

// Coalesce returns its first argument that is neither NULL nor MISSING.
type Coalesce struct {
	base
	args []Rex
}

// NullIf returns NULL when v1 equals v2, else v1.
type NullIf struct {
	base
	v1 Rex
	v2 Rex
}

// Struct constructs a struct from key/value pairs.
type Struct struct {
	base
	fields []*StructField
}

// Array constructs an ordered collection.
type Array struct {
	base
	values []Rex
}

// Bag constructs an unordered collection. The values are held in a fixed
// sequence so traversals are deterministic; the sequence carries no meaning.
type Bag struct {
	base
	values []Rex
}

// Select evaluates constructor for every row of input and collects the
// results (SELECT VALUE).
type Select struct {
	base
	input       Rel
	constructor Rex
}

// Pivot builds a struct with one key/value member per input row.
type Pivot struct {
	base
	input Rel
	key   Rex
	value Rex
}

// Spread merges the fields of its struct arguments, left to right.
type Spread struct {
	base
	args []Rex
}

// Subquery coerces a relation to a value. A scalar subquery must produce at
// most one row and yields that row's constructor value; a collection
// subquery yields every row's.
type Subquery struct {
	base
	input       Rel
	constructor Rex
	scalar      bool
}

// SubqueryComp is (args) <comparison> <quantifier> (input).
type SubqueryComp struct {
	base
	input      Rel
	args       []Rex
	comparison Comparison
	quantifier Quantifier
}

// SubqueryIn is (args) IN (input).
type SubqueryIn struct {
	base
	input Rel
	args  []Rex
}

// SubqueryTest is EXISTS (input) or UNIQUE (input).
type SubqueryTest struct {
	base
	input Rel
	test  TestKind
}

func (n *Lit) Value() value.Datum { return n.value }
func (n *Var) Scope() int         { return n.scope }
func (n *Var) Offset() int        { return n.offset }
func (n *Table) Ref() *TableRef   { return n.ref }
func (n *Error) Message() string  { return n.message }

func (n *PathKey) Operand() Rex    { return n.operand }
func (n *PathKey) Key() Rex        { return n.key }
func (n *PathIndex) Operand() Rex  { return n.operand }
func (n *PathIndex) Index() Rex    { return n.index }
func (n *PathSymbol) Operand() Rex { return n.operand }
func (n *PathSymbol) Symbol() string {
	return n.symbol
}

func (n *Call) Fn() *FnSignature { return n.fn }
func (n *Call) Args() []Rex      { return n.args }

func (n *Dispatch) Name() string               { return n.name }
func (n *Dispatch) Candidates() []*FnSignature { return n.candidates }
func (n *Dispatch) Args() []Rex                { return n.args }

// Match returns the simple-CASE operand, or nil for a searched CASE.
func (n *Case) Match() Rex              { return n.match }
func (n *Case) Branches() []*CaseBranch { return n.branches }

// Default returns the ELSE result, or nil when there is none.
func (n *Case) Default() Rex { return n.def }

func (n *Cast) Operand() Rex        { return n.operand }
func (n *Cast) Target() ptype.PType { return n.target }
func (n *Coalesce) Args() []Rex     { return n.args }
func (n *NullIf) V1() Rex           { return n.v1 }
func (n *NullIf) V2() Rex           { return n.v2 }

func (n *Struct) Fields() []*StructField { return n.fields }
func (n *Array) Values() []Rex           { return n.values }
func (n *Bag) Values() []Rex             { return n.values }

func (n *Select) Input() Rel       { return n.input }
func (n *Select) Constructor() Rex { return n.constructor }
func (n *Pivot) Input() Rel        { return n.input }
func (n *Pivot) Key() Rex          { return n.key }
func (n *Pivot) Value() Rex        { return n.value }
func (n *Spread) Args() []Rex      { return n.args }

func (n *Subquery) Input() Rel                 { return n.input }
func (n *Subquery) Constructor() Rex           { return n.constructor }
func (n *Subquery) Scalar() bool               { return n.scalar }
func (n *SubqueryComp) Input() Rel             { return n.input }
func (n *SubqueryComp) Args() []Rex            { return n.args }
func (n *SubqueryComp) Comparison() Comparison { return n.comparison }
func (n *SubqueryComp) Quantifier() Quantifier { return n.quantifier }
func (n *SubqueryIn) Input() Rel               { return n.input }
func (n *SubqueryIn) Args() []Rex              { return n.args }
func (n *SubqueryTest) Input() Rel             { return n.input }
func (n *SubqueryTest) Test() TestKind         { return n.test }

func (*Lit) Children() []Operator   { return nil }
func (*Var) Children() []Operator   { return nil }
func (*Table) Children() []Operator { return nil }
func (*Error) Children() []Operator { return nil }

func (n *PathKey) Children() []Operator    { return ops(n.operand, n.key) }
func (n *PathIndex) Children() []Operator  { return ops(n.operand, n.index) }
func (n *PathSymbol) Children() []Operator { return ops(n.operand) }
func (n *Call) Children() []Operator       { return appendRex(nil, n.args) }
func (n *Dispatch) Children() []Operator   { return appendRex(nil, n.args) }

// Children lists match if present, then each branch's condition and result,
// then the default if present.
func (n *Case) Children() []Operator {
	out := ops(n.match)
	for _, b := range n.branches {
		out = append(out, b.condition, b.result)
	}
	if n.def != nil {
		out = append(out, n.def)
	}
	return out
}

func (n *Cast) Children() []Operator     { return ops(n.operand) }
func (n *Coalesce) Children() []Operator { return appendRex(nil, n.args) }
func (n *NullIf) Children() []Operator   { return ops(n.v1, n.v2) }

// Children lists each field's key followed by its value.
func (n *Struct) Children() []Operator {
	out := make([]Operator, 0, 2*len(n.fields))
	for _, f := range n.fields {
		out = append(out, f.key, f.value)
	}
	return out
}

func (n *Array) Children() []Operator  { return appendRex(nil, n.values) }
func (n *Bag) Children() []Operator    { return appendRex(nil, n.values) }
func (n *Select) Children() []Operator { return ops(n.input, n.constructor) }
func (n *Pivot) Children() []Operator  { return ops(n.input, n.key, n.value) }
func (n *Spread) Children() []Operator { return appendRex(nil, n.args) }

func (n *Subquery) Children() []Operator     { return ops(n.input, n.constructor) }
func (n *SubqueryComp) Children() []Operator { return appendRex(ops(n.input), n.args) }
func (n *SubqueryIn) Children() []Operator   { return appendRex(ops(n.input), n.args) }
func (n *SubqueryTest) Children() []Operator { return ops(n.input) }

func (*Lit) rex()          {}
func (*Var) rex()          {}
func (*Table) rex()        {}
func (*Error) rex()        {}
func (*PathKey) rex()      {}
func (*PathIndex) rex()    {}
func (*PathSymbol) rex()   {}
func (*Call) rex()         {}
func (*Dispatch) rex()     {}
func (*Case) rex()         {}
func (*Cast) rex()         {}
func (*Coalesce) rex()     {}
func (*NullIf) rex()       {}
func (*Struct) rex()       {}
func (*Array) rex()        {}
func (*Bag) rex()          {}
func (*Select) rex()       {}
func (*Pivot) rex()        {}
func (*Spread) rex()       {}
func (*Subquery) rex()     {}
func (*SubqueryComp) rex() {}
func (*SubqueryIn) rex()   {}
func (*SubqueryTest) rex() {}

func (n *Lit) clone() Operator          { c := *n; return &c }
func (n *Var) clone() Operator          { c := *n; return &c }
func (n *Table) clone() Operator        { c := *n; return &c }
func (n *Error) clone() Operator        { c := *n; return &c }
func (n *PathKey) clone() Operator      { c := *n; return &c }
func (n *PathIndex) clone() Operator    { c := *n; return &c }
func (n *PathSymbol) clone() Operator   { c := *n; return &c }
func (n *Call) clone() Operator         { c := *n; return &c }
func (n *Dispatch) clone() Operator     { c := *n; return &c }
func (n *Case) clone() Operator         { c := *n; return &c }
func (n *Cast) clone() Operator         { c := *n; return &c }
func (n *Coalesce) clone() Operator     { c := *n; return &c }
func (n *NullIf) clone() Operator       { c := *n; return &c }
func (n *Struct) clone() Operator       { c := *n; return &c }
func (n *Array) clone() Operator        { c := *n; return &c }
func (n *Bag) clone() Operator          { c := *n; return &c }
func (n *Select) clone() Operator       { c := *n; return &c }
func (n *Pivot) clone() Operator        { c := *n; return &c }
func (n *Spread) clone() Operator       { c := *n; return &c }
func (n *Subquery) clone() Operator     { c := *n; return &c }
func (n *SubqueryComp) clone() Operator { c := *n; return &c }
func (n *SubqueryIn) clone() Operator   { c := *n; return &c }
func (n *SubqueryTest) clone() Operator { c := *n; return &c }
