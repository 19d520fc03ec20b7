package plan

import "fmt"

// RelVisitor has one method per relational operator. R is the result type
// and C a caller-defined context threaded through the traversal.
type RelVisitor[R, C any] interface {
	VisitScan(n *Scan, ctx C) R
	VisitIterate(n *Iterate, ctx C) R
	VisitFilter(n *Filter, ctx C) R
	VisitProject(n *Project, ctx C) R
	VisitAggregate(n *Aggregate, ctx C) R
	VisitSort(n *Sort, ctx C) R
	VisitLimit(n *Limit, ctx C) R
	VisitOffset(n *Offset, ctx C) R
	VisitJoin(n *Join, ctx C) R
	VisitCorrelate(n *Correlate, ctx C) R
	VisitUnion(n *Union, ctx C) R
	VisitExcept(n *Except, ctx C) R
	VisitIntersect(n *Intersect, ctx C) R
	VisitDistinct(n *Distinct, ctx C) R
	VisitExclude(n *Exclude, ctx C) R
	VisitUnpivot(n *Unpivot, ctx C) R
	VisitWindow(n *Window, ctx C) R
}

// RexVisitor has one method per scalar operator.
type RexVisitor[R, C any] interface {
	VisitLit(n *Lit, ctx C) R
	VisitVar(n *Var, ctx C) R
	VisitTable(n *Table, ctx C) R
	VisitError(n *Error, ctx C) R
	VisitPathKey(n *PathKey, ctx C) R
	VisitPathIndex(n *PathIndex, ctx C) R
	VisitPathSymbol(n *PathSymbol, ctx C) R
	VisitCall(n *Call, ctx C) R
	VisitDispatch(n *Dispatch, ctx C) R
	VisitCase(n *Case, ctx C) R
	VisitCast(n *Cast, ctx C) R
	VisitCoalesce(n *Coalesce, ctx C) R
	VisitNullIf(n *NullIf, ctx C) R
	VisitStruct(n *Struct, ctx C) R
	VisitArray(n *Array, ctx C) R
	VisitBag(n *Bag, ctx C) R
	VisitSelect(n *Select, ctx C) R
	VisitPivot(n *Pivot, ctx C) R
	VisitSpread(n *Spread, ctx C) R
	VisitSubquery(n *Subquery, ctx C) R
	VisitSubqueryComp(n *SubqueryComp, ctx C) R
	VisitSubqueryIn(n *SubqueryIn, ctx C) R
	VisitSubqueryTest(n *SubqueryTest, ctx C) R
}

// Visitor visits the whole algebra.
type Visitor[R, C any] interface {
	RelVisitor[R, C]
	RexVisitor[R, C]
}

// Accept dispatches op to the visitor method for its variant.
func Accept[R, C any](v Visitor[R, C], op Operator, ctx C) R {
	switch op := op.(type) {
	case Rel:
		return AcceptRel[R, C](v, op, ctx)
	case Rex:
		return AcceptRex[R, C](v, op, ctx)
	}
	panic(fmt.Sprintf("plan: unknown operator %T", op))
}

// AcceptRel dispatches rel to the visitor method for its variant.
func AcceptRel[R, C any](v RelVisitor[R, C], rel Rel, ctx C) R {
	switch n := rel.(type) {
	case *Scan:
		return v.VisitScan(n, ctx)
	case *Iterate:
		return v.VisitIterate(n, ctx)
	case *Filter:
		return v.VisitFilter(n, ctx)
	case *Project:
		return v.VisitProject(n, ctx)
	case *Aggregate:
		return v.VisitAggregate(n, ctx)
	case *Sort:
		return v.VisitSort(n, ctx)
	case *Limit:
		return v.VisitLimit(n, ctx)
	case *Offset:
		return v.VisitOffset(n, ctx)
	case *Join:
		return v.VisitJoin(n, ctx)
	case *Correlate:
		return v.VisitCorrelate(n, ctx)
	case *Union:
		return v.VisitUnion(n, ctx)
	case *Except:
		return v.VisitExcept(n, ctx)
	case *Intersect:
		return v.VisitIntersect(n, ctx)
	case *Distinct:
		return v.VisitDistinct(n, ctx)
	case *Exclude:
		return v.VisitExclude(n, ctx)
	case *Unpivot:
		return v.VisitUnpivot(n, ctx)
	case *Window:
		return v.VisitWindow(n, ctx)
	}
	panic(fmt.Sprintf("plan: unknown rel %T", rel))
}

// AcceptRex dispatches rex to the visitor method for its variant.
func AcceptRex[R, C any](v RexVisitor[R, C], rex Rex, ctx C) R {
	switch n := rex.(type) {
	case *Lit:
		return v.VisitLit(n, ctx)
	case *Var:
		return v.VisitVar(n, ctx)
	case *Table:
		return v.VisitTable(n, ctx)
	case *Error:
		return v.VisitError(n, ctx)
	case *PathKey:
		return v.VisitPathKey(n, ctx)
	case *PathIndex:
		return v.VisitPathIndex(n, ctx)
	case *PathSymbol:
		return v.VisitPathSymbol(n, ctx)
	case *Call:
		return v.VisitCall(n, ctx)
	case *Dispatch:
		return v.VisitDispatch(n, ctx)
	case *Case:
		return v.VisitCase(n, ctx)
	case *Cast:
		return v.VisitCast(n, ctx)
	case *Coalesce:
		return v.VisitCoalesce(n, ctx)
	case *NullIf:
		return v.VisitNullIf(n, ctx)
	case *Struct:
		return v.VisitStruct(n, ctx)
	case *Array:
		return v.VisitArray(n, ctx)
	case *Bag:
		return v.VisitBag(n, ctx)
	case *Select:
		return v.VisitSelect(n, ctx)
	case *Pivot:
		return v.VisitPivot(n, ctx)
	case *Spread:
		return v.VisitSpread(n, ctx)
	case *Subquery:
		return v.VisitSubquery(n, ctx)
	case *SubqueryComp:
		return v.VisitSubqueryComp(n, ctx)
	case *SubqueryIn:
		return v.VisitSubqueryIn(n, ctx)
	case *SubqueryTest:
		return v.VisitSubqueryTest(n, ctx)
	}
	panic(fmt.Sprintf("plan: unknown rex %T", rex))
}

// DefaultVisitor is a Visitor that supplies the base case of the default
// traversal.
type DefaultVisitor[R, C any] interface {
	Visitor[R, C]
	// DefaultVisit handles every variant the visitor does not override.
	// Embedding BaseVisitor provides it.
	DefaultVisit(op Operator, ctx C) R
	// DefaultReturn is the result of visiting op once its children have
	// been visited.
	DefaultReturn(op Operator, ctx C) R
}

// BaseVisitor implements every Visit method as a call to the embedding
// visitor's DefaultVisit. Embed it and override only the variants of
// interest, and DefaultVisit itself when every child must pass through a
// common hook:
//
//	type varCounter struct {
//		plan.BaseVisitor[struct{}, any]
//		n int
//	}
//
//	func newVarCounter() *varCounter {
//		c := &varCounter{}
//		c.BaseVisitor = plan.NewBaseVisitor[struct{}, any](c)
//		return c
//	}
//
//	func (c *varCounter) VisitVar(*plan.Var, any) struct{} { c.n++; return struct{}{} }
//
//	func (c *varCounter) DefaultReturn(plan.Operator, any) struct{} { return struct{}{} }
type BaseVisitor[R, C any] struct {
	self DefaultVisitor[R, C]
}

// NewBaseVisitor returns a BaseVisitor that dispatches children and the
// base case through self, the embedding visitor.
func NewBaseVisitor[R, C any](self DefaultVisitor[R, C]) BaseVisitor[R, C] {
	return BaseVisitor[R, C]{self: self}
}

// DefaultVisit visits op's children in Children order, discarding their
// results, then returns DefaultReturn(op, ctx).
func (b BaseVisitor[R, C]) DefaultVisit(op Operator, ctx C) R {
	for _, child := range op.Children() {
		Accept[R, C](b.self, child, ctx)
	}
	return b.self.DefaultReturn(op, ctx)
}

func (b BaseVisitor[R, C]) VisitScan(n *Scan, ctx C) R           { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitIterate(n *Iterate, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitFilter(n *Filter, ctx C) R       { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitProject(n *Project, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitAggregate(n *Aggregate, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitSort(n *Sort, ctx C) R           { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitLimit(n *Limit, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitOffset(n *Offset, ctx C) R       { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitJoin(n *Join, ctx C) R           { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitCorrelate(n *Correlate, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitUnion(n *Union, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitExcept(n *Except, ctx C) R       { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitIntersect(n *Intersect, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitDistinct(n *Distinct, ctx C) R   { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitExclude(n *Exclude, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitUnpivot(n *Unpivot, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitWindow(n *Window, ctx C) R       { return b.self.DefaultVisit(n, ctx) }

func (b BaseVisitor[R, C]) VisitLit(n *Lit, ctx C) R             { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitVar(n *Var, ctx C) R             { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitTable(n *Table, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitError(n *Error, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitPathKey(n *PathKey, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitPathIndex(n *PathIndex, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitPathSymbol(n *PathSymbol, ctx C) R {
	return b.self.DefaultVisit(n, ctx)
}
func (b BaseVisitor[R, C]) VisitCall(n *Call, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitDispatch(n *Dispatch, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitCase(n *Case, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitCast(n *Cast, ctx C) R         { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitCoalesce(n *Coalesce, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitNullIf(n *NullIf, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitStruct(n *Struct, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitArray(n *Array, ctx C) R       { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitBag(n *Bag, ctx C) R           { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitSelect(n *Select, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitPivot(n *Pivot, ctx C) R       { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitSpread(n *Spread, ctx C) R     { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitSubquery(n *Subquery, ctx C) R { return b.self.DefaultVisit(n, ctx) }
func (b BaseVisitor[R, C]) VisitSubqueryComp(n *SubqueryComp, ctx C) R {
	return b.self.DefaultVisit(n, ctx)
}
func (b BaseVisitor[R, C]) VisitSubqueryIn(n *SubqueryIn, ctx C) R {
	return b.self.DefaultVisit(n, ctx)
}
func (b BaseVisitor[R, C]) VisitSubqueryTest(n *SubqueryTest, ctx C) R {
	return b.self.DefaultVisit(n, ctx)
}
