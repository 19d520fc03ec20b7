package plan

// Walk visits op and its descendants in pre-order. If fn returns false the
// children of that node are skipped. Shared subtrees are visited once per
// path that reaches them.
func Walk(op Operator, fn func(Operator) bool) {
	if !fn(op) {
		return
	}
	for _, child := range op.Children() {
		Walk(child, fn)
	}
}

// Count returns the number of nodes in the tree rooted at op.
func Count(op Operator) int {
	n := 0
	Walk(op, func(Operator) bool {
		n++
		return true
	})
	return n
}

// Shared returns the number of nodes in after that are also nodes of
// before, by identity. After a rewrite it measures structural sharing.
func Shared(before, after Operator) int {
	seen := make(map[Operator]struct{})
	Walk(before, func(op Operator) bool {
		seen[op] = struct{}{}
		return true
	})
	n := 0
	Walk(after, func(op Operator) bool {
		if _, ok := seen[op]; ok {
			n++
		}
		return true
	})
	return n
}
