package plan

// Name returns the lower snake case name of op's variant, such as "scan" or
// "subquery_comp". Plan files and plan printouts use these names.
func Name(op Operator) string {
	switch op.(type) {
	case *Scan:
		return "scan"
	case *Iterate:
		return "iterate"
	case *Filter:
		return "filter"
	case *Project:
		return "project"
	case *Aggregate:
		return "aggregate"
	case *Sort:
		return "sort"
	case *Limit:
		return "limit"
	case *Offset:
		return "offset"
	case *Join:
		return "join"
	case *Correlate:
		return "correlate"
	case *Union:
		return "union"
	case *Except:
		return "except"
	case *Intersect:
		return "intersect"
	case *Distinct:
		return "distinct"
	case *Exclude:
		return "exclude"
	case *Unpivot:
		return "unpivot"
	case *Window:
		return "window"
	case *Lit:
		return "lit"
	case *Var:
		return "var"
	case *Table:
		return "table"
	case *Error:
		return "error"
	case *PathKey:
		return "path_key"
	case *PathIndex:
		return "path_index"
	case *PathSymbol:
		return "path_symbol"
	case *Call:
		return "call"
	case *Dispatch:
		return "dispatch"
	case *Case:
		return "case"
	case *Cast:
		return "cast"
	case *Coalesce:
		return "coalesce"
	case *NullIf:
		return "nullif"
	case *Struct:
		return "struct"
	case *Array:
		return "array"
	case *Bag:
		return "bag"
	case *Select:
		return "select"
	case *Pivot:
		return "pivot"
	case *Spread:
		return "spread"
	case *Subquery:
		return "subquery"
	case *SubqueryComp:
		return "subquery_comp"
	case *SubqueryIn:
		return "subquery_in"
	case *SubqueryTest:
		return "subquery_test"
	}
	return "unknown"
}
