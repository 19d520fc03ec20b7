package explain

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/value"
)

// property is a key-value pair printed after a node's name. A single value
// prints as key=value and a multi-value property as key=(v1, v2).
type property struct {
	key    string
	values []string
	multi  bool
}

func prop(key string, v any) property {
	return property{key: key, values: []string{fmt.Sprint(v)}}
}

func multi(key string, vs []string) property {
	return property{key: key, values: vs, multi: true}
}

type options struct {
	types bool
	tags  *plan.Tags
}

// Option configures tree output.
type Option func(*options)

// WithTypes appends each node's type to its line.
func WithTypes() Option {
	return func(o *options) { o.types = true }
}

// WithTags prints each tagged node's tag as #n after its name.
func WithTags(tags *plan.Tags) Option {
	return func(o *options) { o.tags = tags }
}

// Tree renders op as an indented tree, one node per line:
//
//	filter
//	├── scan
//	│   └── table name=orders
//	└── call fn=gt(INTEGER, INTEGER)
//	    ├── var ref=$0.0
//	    └── lit value=10
//
// Children appear in Children order.
func Tree(op plan.Operator, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var sb strings.Builder
	p := printer{sb: &sb, opts: o}
	p.line(op)
	p.children(op.Children(), "")
	return sb.String()
}

// Fprint writes Tree(op, opts...) to w.
func Fprint(w io.Writer, op plan.Operator, opts ...Option) error {
	_, err := io.WriteString(w, Tree(op, opts...))
	return err
}

type printer struct {
	sb   *strings.Builder
	opts options
}

func (p *printer) children(children []plan.Operator, prefix string) {
	for i, c := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		p.sb.WriteString(prefix)
		p.sb.WriteString(branch)
		p.line(c)
		p.children(c.Children(), prefix+indent)
	}
}

func (p *printer) line(op plan.Operator) {
	p.sb.WriteString(plan.Name(op))
	if p.opts.tags != nil {
		if tag, ok := p.opts.tags.Get(op); ok {
			fmt.Fprintf(p.sb, " #%d", tag)
		}
	}
	for _, pr := range properties(op) {
		p.sb.WriteByte(' ')
		p.sb.WriteString(pr.key)
		p.sb.WriteByte('=')
		if pr.multi {
			p.sb.WriteString("(" + strings.Join(pr.values, ", ") + ")")
		} else {
			p.sb.WriteString(pr.values[0])
		}
	}
	if p.opts.types {
		p.sb.WriteString(" : ")
		p.sb.WriteString(op.Type().String())
	}
	p.sb.WriteByte('\n')
}

// properties lists the non-child fields of op.
func properties(op plan.Operator) []property {
	switch n := op.(type) {
	case *plan.Aggregate:
		measures := make([]string, len(n.Measures()))
		for i, m := range n.Measures() {
			measures[i] = m.Agg().ID()
			if m.Distinct() {
				measures[i] = "DISTINCT " + measures[i]
			}
		}
		return []property{multi("measures", measures), prop("groups", len(n.Groups()))}
	case *plan.Sort:
		return []property{collations("collations", n.Collations())}
	case *plan.Join:
		return []property{prop("type", n.JoinType()), prop("condition", n.Condition() != nil)}
	case *plan.Correlate:
		return []property{prop("type", n.JoinType())}
	case *plan.Union:
		return []property{prop("all", n.All())}
	case *plan.Except:
		return []property{prop("all", n.All())}
	case *plan.Intersect:
		return []property{prop("all", n.All())}
	case *plan.Exclude:
		paths := make([]string, 0, len(n.Exclusions()))
		for _, e := range n.Exclusions() {
			paths = append(paths, exclusionPaths(varRef(e.Variable()), e.Items())...)
		}
		return []property{multi("paths", paths)}
	case *plan.Window:
		functions := make([]string, len(n.Functions()))
		for i, f := range n.Functions() {
			functions[i] = f.Signature().ID()
		}
		return []property{
			multi("functions", functions),
			prop("partitions", len(n.Partitions())),
			collations("sorts", n.Sorts()),
		}
	case *plan.Lit:
		return []property{prop("value", value.Format(n.Value()))}
	case *plan.Var:
		return []property{prop("ref", varRef(n))}
	case *plan.Table:
		return []property{prop("name", n.Ref().Name)}
	case *plan.Error:
		return []property{prop("message", strconv.Quote(n.Message()))}
	case *plan.PathSymbol:
		return []property{prop("symbol", n.Symbol())}
	case *plan.Call:
		return []property{prop("fn", n.Fn().ID())}
	case *plan.Dispatch:
		ids := make([]string, len(n.Candidates()))
		for i, c := range n.Candidates() {
			ids[i] = c.ID()
		}
		return []property{prop("name", n.Name()), multi("candidates", ids)}
	case *plan.Case:
		return []property{prop("match", n.Match() != nil), prop("default", n.Default() != nil)}
	case *plan.Cast:
		return []property{prop("target", n.Target())}
	case *plan.Subquery:
		return []property{prop("scalar", n.Scalar())}
	case *plan.SubqueryComp:
		return []property{prop("comparison", n.Comparison()), prop("quantifier", n.Quantifier())}
	case *plan.SubqueryTest:
		return []property{prop("test", n.Test())}
	}
	return nil
}

func collations(key string, cs []*plan.Collation) property {
	vs := make([]string, len(cs))
	for i, c := range cs {
		vs[i] = c.Order().String() + " NULLS " + c.Nulls().String()
	}
	return multi(key, vs)
}

func varRef(v *plan.Var) string {
	return fmt.Sprintf("$%d.%d", v.Scope(), v.Offset())
}

// exclusionPaths flattens an exclusion tree into one path per leaf, for
// example $0.1[*].x.
func exclusionPaths(prefix string, items []plan.ExclusionItem) []string {
	var out []string
	for _, item := range items {
		var step string
		switch it := item.(type) {
		case plan.ExcludeKey:
			step = "." + strconv.Quote(it.Key)
		case plan.ExcludeSymbol:
			step = "." + it.Symbol
		case plan.ExcludeIndex:
			step = "[" + strconv.Itoa(it.Index) + "]"
		case plan.ExcludeStructWildcard:
			step = ".*"
		case plan.ExcludeCollWildcard:
			step = "[*]"
		}
		if next := item.Items(); len(next) > 0 {
			out = append(out, exclusionPaths(prefix+step, next)...)
		} else {
			out = append(out, prefix+step)
		}
	}
	return out
}
