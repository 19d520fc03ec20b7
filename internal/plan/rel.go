package plan

// Scan yields the rows of the collection produced by source.
type Scan struct {
	base
	source Rex
}

// Iterate is the dual of Scan for scalar collections that are not tables.
// It iterates values of any type, wrapping non-collections as singletons.
type Iterate struct {
	base
	source Rex
}

// Filter keeps the rows for which predicate is true. Unknown and missing
// results drop the row.
type Filter struct {
	base
	input     Rel
	predicate Rex
}

// Project maps every input row to a new row, one column per projection.
type Project struct {
	base
	input       Rel
	projections []Rex
}

// Aggregate groups input rows by groups and computes measures per group.
// An empty group list forms a single global group.
type Aggregate struct {
	base
	input    Rel
	measures []*Measure
	groups   []Rex
}

// Sort orders rows by collations. The sort is stable: ties keep input order.
type Sort struct {
	base
	input      Rel
	collations []*Collation
}

// Limit keeps at most count rows.
type Limit struct {
	base
	input Rel
	count Rex
}

// Offset skips the first count rows.
type Offset struct {
	base
	input Rel
	count Rex
}

// Join combines left and right rows on condition. Unmatched rows of the
// preserved side(s) are padded with MISSING.
type Join struct {
	base
	left      Rel
	right     Rel
	condition Rex
	joinType  JoinType
}

// Correlate is a lateral join: right may reference columns of left and is
// evaluated once per left row.
type Correlate struct {
	base
	left     Rel
	right    Rel
	joinType JoinType
}

// Union, Except and Intersect are the set operators. With all unset the
// result is deduplicated.
type Union struct {
	base
	left  Rel
	right Rel
	all   bool
}

type Except struct {
	base
	left  Rel
	right Rel
	all   bool
}

type Intersect struct {
	base
	left  Rel
	right Rel
	all   bool
}

// Distinct removes duplicate rows under value equality.
type Distinct struct {
	base
	input Rel
}

// Exclude removes the paths named by exclusions from every row.
type Exclude struct {
	base
	input      Rel
	exclusions []*Exclusion
}

// Unpivot turns the struct produced by source into (key, value) rows.
type Unpivot struct {
	base
	source Rex
}

// Window appends one column per window function, computed over partitions
// ordered by sorts.
type Window struct {
	base
	input      Rel
	functions  []*WindowFunctionNode
	partitions []Rex
	sorts      []*Collation
}

func (n *Scan) Source() Rex    { return n.source }
func (n *Iterate) Source() Rex { return n.source }

func (n *Filter) Input() Rel     { return n.input }
func (n *Filter) Predicate() Rex { return n.predicate }

func (n *Project) Input() Rel { return n.input }

// Projections returns the projection list. Callers must not modify it.
func (n *Project) Projections() []Rex { return n.projections }

func (n *Aggregate) Input() Rel           { return n.input }
func (n *Aggregate) Measures() []*Measure { return n.measures }
func (n *Aggregate) Groups() []Rex        { return n.groups }

func (n *Sort) Input() Rel               { return n.input }
func (n *Sort) Collations() []*Collation { return n.collations }

func (n *Limit) Input() Rel  { return n.input }
func (n *Limit) Count() Rex  { return n.count }
func (n *Offset) Input() Rel { return n.input }
func (n *Offset) Count() Rex { return n.count }

func (n *Join) Left() Rel               { return n.left }
func (n *Join) Right() Rel              { return n.right }
func (n *Join) Condition() Rex          { return n.condition }
func (n *Join) JoinType() JoinType      { return n.joinType }
func (n *Correlate) Left() Rel          { return n.left }
func (n *Correlate) Right() Rel         { return n.right }
func (n *Correlate) JoinType() JoinType { return n.joinType }

func (n *Union) Left() Rel      { return n.left }
func (n *Union) Right() Rel     { return n.right }
func (n *Union) All() bool      { return n.all }
func (n *Except) Left() Rel     { return n.left }
func (n *Except) Right() Rel    { return n.right }
func (n *Except) All() bool     { return n.all }
func (n *Intersect) Left() Rel  { return n.left }
func (n *Intersect) Right() Rel { return n.right }
func (n *Intersect) All() bool  { return n.all }

func (n *Distinct) Input() Rel { return n.input }

func (n *Exclude) Input() Rel               { return n.input }
func (n *Exclude) Exclusions() []*Exclusion { return n.exclusions }

func (n *Unpivot) Source() Rex { return n.source }

func (n *Window) Input() Rel                       { return n.input }
func (n *Window) Functions() []*WindowFunctionNode { return n.functions }
func (n *Window) Partitions() []Rex                { return n.partitions }
func (n *Window) Sorts() []*Collation              { return n.sorts }

func (n *Scan) Children() []Operator    { return ops(n.source) }
func (n *Iterate) Children() []Operator { return ops(n.source) }
func (n *Filter) Children() []Operator  { return ops(n.input, n.predicate) }

func (n *Project) Children() []Operator {
	return appendRex(ops(n.input), n.projections)
}

// Children lists the input, then every measure's arguments, then the groups.
func (n *Aggregate) Children() []Operator {
	out := ops(n.input)
	for _, m := range n.measures {
		out = appendRex(out, m.args)
	}
	return appendRex(out, n.groups)
}

// Children lists the input, then each collation's column.
func (n *Sort) Children() []Operator {
	return appendCollations(ops(n.input), n.collations)
}

func (n *Limit) Children() []Operator     { return ops(n.input, n.count) }
func (n *Offset) Children() []Operator    { return ops(n.input, n.count) }
func (n *Join) Children() []Operator      { return ops(n.left, n.right, n.condition) }
func (n *Correlate) Children() []Operator { return ops(n.left, n.right) }
func (n *Union) Children() []Operator     { return ops(n.left, n.right) }
func (n *Except) Children() []Operator    { return ops(n.left, n.right) }
func (n *Intersect) Children() []Operator { return ops(n.left, n.right) }
func (n *Distinct) Children() []Operator  { return ops(n.input) }

// Children lists the input, then each exclusion's variable.
func (n *Exclude) Children() []Operator {
	out := ops(n.input)
	for _, e := range n.exclusions {
		out = append(out, e.variable)
	}
	return out
}

func (n *Unpivot) Children() []Operator { return ops(n.source) }

// Children lists the input, every function's arguments, the partitions and
// then the sort columns.
func (n *Window) Children() []Operator {
	out := ops(n.input)
	for _, f := range n.functions {
		out = appendRex(out, f.args)
	}
	out = appendRex(out, n.partitions)
	return appendCollations(out, n.sorts)
}

func (*Scan) rel()      {}
func (*Iterate) rel()   {}
func (*Filter) rel()    {}
func (*Project) rel()   {}
func (*Aggregate) rel() {}
func (*Sort) rel()      {}
func (*Limit) rel()     {}
func (*Offset) rel()    {}
func (*Join) rel()      {}
func (*Correlate) rel() {}
func (*Union) rel()     {}
func (*Except) rel()    {}
func (*Intersect) rel() {}
func (*Distinct) rel()  {}
func (*Exclude) rel()   {}
func (*Unpivot) rel()   {}
func (*Window) rel()    {}

func (n *Scan) clone() Operator      { c := *n; return &c }
func (n *Iterate) clone() Operator   { c := *n; return &c }
func (n *Filter) clone() Operator    { c := *n; return &c }
func (n *Project) clone() Operator   { c := *n; return &c }
func (n *Aggregate) clone() Operator { c := *n; return &c }
func (n *Sort) clone() Operator      { c := *n; return &c }
func (n *Limit) clone() Operator     { c := *n; return &c }
func (n *Offset) clone() Operator    { c := *n; return &c }
func (n *Join) clone() Operator      { c := *n; return &c }
func (n *Correlate) clone() Operator { c := *n; return &c }
func (n *Union) clone() Operator     { c := *n; return &c }
func (n *Except) clone() Operator    { c := *n; return &c }
func (n *Intersect) clone() Operator { c := *n; return &c }
func (n *Distinct) clone() Operator  { c := *n; return &c }
func (n *Exclude) clone() Operator   { c := *n; return &c }
func (n *Unpivot) clone() Operator   { c := *n; return &c }
func (n *Window) clone() Operator    { c := *n; return &c }

// ops collects non-nil operators, skipping absent optional children.
func ops(children ...Operator) []Operator {
	out := make([]Operator, 0, len(children))
	for _, c := range children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func appendRex(out []Operator, rexes []Rex) []Operator {
	for _, r := range rexes {
		out = append(out, r)
	}
	return out
}

func appendCollations(out []Operator, cs []*Collation) []Operator {
	for _, c := range cs {
		out = append(out, c.column)
	}
	return out
}
