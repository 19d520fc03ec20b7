package planfile

import (
	"fmt"
	"math"
	"strconv"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"
)

type nodeKind int

const (
	kindScalar nodeKind = iota
	kindMap
	kindList
)

func (k nodeKind) String() string {
	switch k {
	case kindMap:
		return "mapping"
	case kindList:
		return "list"
	}
	return "scalar"
}

// node is a decoded document value with its source position, independent
// of whether it came from YAML, CUE or an in-memory document.
type node struct {
	kind   nodeKind
	path   string
	line   int
	column int

	keys   []string
	fields map[string]*node
	items  []*node
	scalar any
}

func childPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func (n *node) addField(key string, child *node) {
	if n.fields == nil {
		n.fields = make(map[string]*node)
	}
	n.keys = append(n.keys, key)
	n.fields[key] = child
}

// plain converts n back to plain Go values for value.FromDocument.
func (n *node) plain() any {
	switch n.kind {
	case kindMap:
		m := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			m[k] = n.fields[k].plain()
		}
		return m
	case kindList:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.plain()
		}
		return out
	}
	return n.scalar
}

func fromYAML(y *yaml.Node, path string) (*node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return nil, &LoadError{Line: y.Line, Column: y.Column, Message: "empty document"}
		}
		return fromYAML(y.Content[0], path)
	case yaml.AliasNode:
		return fromYAML(y.Alias, path)
	case yaml.MappingNode:
		n := &node{kind: kindMap, path: path, line: y.Line, column: y.Column}
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i].Value
			if _, dup := n.fields[key]; dup {
				return nil, &LoadError{
					Line: y.Content[i].Line, Column: y.Content[i].Column,
					Path: childPath(path, key), Message: "duplicate key",
				}
			}
			child, err := fromYAML(y.Content[i+1], childPath(path, key))
			if err != nil {
				return nil, err
			}
			n.addField(key, child)
		}
		return n, nil
	case yaml.SequenceNode:
		n := &node{kind: kindList, path: path, line: y.Line, column: y.Column}
		for i, c := range y.Content {
			child, err := fromYAML(c, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, child)
		}
		return n, nil
	default:
		var v any
		if err := y.Decode(&v); err != nil {
			return nil, &LoadError{Line: y.Line, Column: y.Column, Path: path, Message: err.Error()}
		}
		return &node{kind: kindScalar, path: path, line: y.Line, column: y.Column, scalar: v}, nil
	}
}

func fromCUE(v cue.Value, path string) (*node, error) {
	pos := v.Pos()
	n := &node{path: path, line: pos.Line(), column: pos.Column()}
	fail := func(err error) error {
		return &LoadError{Line: n.line, Column: n.column, Path: path, Message: err.Error()}
	}

	switch v.Kind() {
	case cue.StructKind:
		n.kind = kindMap
		iter, err := v.Fields()
		if err != nil {
			return nil, fail(err)
		}
		for iter.Next() {
			key := iter.Label()
			child, err := fromCUE(iter.Value(), childPath(path, key))
			if err != nil {
				return nil, err
			}
			n.addField(key, child)
		}
	case cue.ListKind:
		n.kind = kindList
		iter, err := v.List()
		if err != nil {
			return nil, fail(err)
		}
		for i := 0; iter.Next(); i++ {
			child, err := fromCUE(iter.Value(), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, child)
		}
	case cue.NullKind:
		n.scalar = nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, fail(err)
		}
		n.scalar = b
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, fail(err)
		}
		n.scalar = i
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, fail(err)
		}
		n.scalar = f
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, fail(err)
		}
		n.scalar = s
	default:
		return nil, fail(fmt.Errorf("value must be concrete, got %v", v.IncompleteKind()))
	}
	return n, nil
}

// fromDocument wraps an in-memory document such as explain.Document
// returns. Such nodes carry no position.
func fromDocument(v any, path string) (*node, error) {
	switch val := v.(type) {
	case map[string]any:
		n := &node{kind: kindMap, path: path}
		for k, child := range val {
			c, err := fromDocument(child, childPath(path, k))
			if err != nil {
				return nil, err
			}
			n.addField(k, c)
		}
		return n, nil
	case []any:
		n := &node{kind: kindList, path: path}
		for i, child := range val {
			c, err := fromDocument(child, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, c)
		}
		return n, nil
	case []string:
		n := &node{kind: kindList, path: path}
		for i, s := range val {
			n.items = append(n.items, &node{kind: kindScalar, path: indexPath(path, i), scalar: s})
		}
		return n, nil
	case nil, bool, int, int64, float64, string:
		return &node{kind: kindScalar, path: path, scalar: val}, nil
	}
	return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported document value %T", v)}
}

// asInt accepts the integer forms the three sources produce, including
// integral floats from JSON.
func asInt(v any) (int, bool) {
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		if i < math.MinInt || i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	case float64:
		if i != math.Trunc(i) || math.Abs(i) > 1<<53 {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
