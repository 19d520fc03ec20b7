// Package plan is the logical plan intermediate representation: a typed
// tree of relational (Rel) and scalar (Rex) operators, plus the visitor and
// rewrite framework optimizer passes are built on.
//
// ALGEBRA:
//
// Operator, Rel and Rex are sealed interfaces. The relational variants are
// Scan, Iterate, Filter, Project, Aggregate, Sort, Limit, Offset, Join,
// Correlate, Union, Except, Intersect, Distinct, Exclude, Unpivot and
// Window. The scalar variants are Lit, Var, Table, Error, PathKey,
// PathIndex, PathSymbol, Call, Dispatch, Case, Cast, Coalesce, NullIf,
// Struct, Array, Bag, Select, Pivot, Spread, Subquery, SubqueryComp,
// SubqueryIn and SubqueryTest.
//
// Nodes are built only through an Operators factory (Standard by default)
// and are immutable afterwards. Each node's Children list reaches exactly
// the nodes its typed getters do, in a fixed order documented per variant.
//
// TRAVERSAL:
//
//	[Visitor]   read-only, one method per variant; BaseVisitor folds over
//	            Children and ends in DefaultReturn
//	[Rewriter]  rebuilds changed nodes, copying the old node's type
//	[Transform] rebuilds changed nodes, letting the factory type them
//
// Rewrites share structure: a node none of whose children changed is
// returned as is, so rewriting a tree with a pass that edits nothing returns
// the very same tree.
//
// CONCURRENCY:
//
// A finished tree is safe to share read-only across goroutines. Building
// and rewriting are single-threaded per plan.
package plan
