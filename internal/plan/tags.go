package plan

// Tags associates integer tags with operator instances. Optimizer passes use
// tags to correlate nodes across plan versions without making the tag part
// of a node's identity.
//
// Tags are keyed by node identity: two structurally equal nodes have
// separate tags. A Tags is not safe for concurrent use.
type Tags struct {
	tags map[Operator]int
	next int
}

func NewTags() *Tags {
	return &Tags{tags: make(map[Operator]int)}
}

// Get returns op's tag, if it has one.
func (t *Tags) Get(op Operator) (int, bool) {
	tag, ok := t.tags[op]
	return tag, ok
}

// Set tags op, replacing any previous tag.
func (t *Tags) Set(op Operator, tag int) {
	t.tags[op] = tag
	if tag >= t.next {
		t.next = tag + 1
	}
}

// Assign returns op's tag, giving it the next unused tag first if it has
// none.
func (t *Tags) Assign(op Operator) int {
	if tag, ok := t.tags[op]; ok {
		return tag
	}
	tag := t.next
	t.Set(op, tag)
	return tag
}

// AssignAll tags every node reachable from root in pre-order.
func (t *Tags) AssignAll(root Operator) {
	Walk(root, func(op Operator) bool {
		t.Assign(op)
		return true
	})
}

// Carry copies from's tag to to. It is how a pass keeps a rebuilt node
// correlated with the node it replaced.
func (t *Tags) Carry(from, to Operator) {
	if tag, ok := t.tags[from]; ok {
		t.tags[to] = tag
	}
}

func (t *Tags) Len() int { return len(t.tags) }
