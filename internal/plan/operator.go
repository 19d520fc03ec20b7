package plan

import (
	"github.com/roach88/planir/internal/ptype"
)

// Operator is the root of the plan algebra.
//
// This is a sealed interface - only types in this package implement it.
// Every operator is either a Rel or a Rex; exhaustive type switches over
// the two (see AcceptRel and AcceptRex) cover the whole algebra.
//
// Operators are immutable once built. The static type is fixed at
// construction; Retype produces a copy with a different type. Rewrites
// replace nodes by reference and share every unchanged subtree, so a node
// may have many parents across plan versions.
type Operator interface {
	// Type is the static type of the operator's value. For a Rel this is the
	// row type; for a Rex it is the scalar type.
	Type() ptype.PType

	// Children lists the child operators in a fixed per-variant order. The
	// list is derived from the typed getters on every call and always
	// reaches exactly the same nodes they do.
	Children() []Operator

	clone() Operator
	setType(t ptype.PType)
}

// Rel is an operator whose value is a relation (a stream of rows).
type Rel interface {
	Operator
	rel()
}

// Rex is an operator whose value is a scalar, which may itself be a
// collection or struct.
type Rex interface {
	Operator
	rex()
}

type base struct {
	typ ptype.PType
}

func (b *base) Type() ptype.PType { return b.typ }

func (b *base) setType(t ptype.PType) { b.typ = t }

// Retype returns a shallow copy of op whose type is t. Children are shared
// with op. It is how a resolver annotates nodes built before their type was
// known.
func Retype[T Operator](op T, t ptype.PType) T {
	c := op.clone()
	c.setType(t)
	return c.(T)
}
