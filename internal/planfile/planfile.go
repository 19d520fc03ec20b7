// Package planfile reads plans written as YAML, JSON or CUE documents.
//
// A plan document is the form explain.Document produces: every operator is
// a mapping with an "op" field naming its variant (plan.Name) and one field
// per child or attribute.
//
//	op: filter
//	input:
//	  op: scan
//	  source: {op: table, name: orders, schema: "BAG<ROW(id INTEGER)>"}
//	predicate:
//	  op: call
//	  fn: {name: gt, params: [INTEGER, INTEGER], returns: BOOL}
//	  args:
//	    - {op: var, scope: 0, offset: 0, type: INTEGER}
//	    - {op: lit, value: 10}
//
// Types use the ptype.Parse syntax. The "type" field is required on var and
// optional elsewhere; when given and different from the type the factory
// computes, the node is retyped. Literal values use the value.FromDocument
// form. Unknown fields are errors.
package planfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/planir/internal/plan"
)

// LoadError reports a problem at a position in a plan document.
type LoadError struct {
	File    string
	Line    int
	Column  int
	Path    string // field path, such as input.predicate.args[1]
	Message string
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteByte(':')
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d:", e.Line, e.Column)
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// IsLoadError reports whether err carries a *LoadError.
// Uses errors.As to handle wrapped errors.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

type options struct {
	ops plan.Operators
}

// Option configures decoding.
type Option func(*options)

// WithOperators builds nodes through ops instead of plan.Standard.
func WithOperators(ops plan.Operators) Option {
	return func(o *options) {
		o.ops = ops
	}
}

func resolve(opts []Option) options {
	o := options{ops: plan.Standard}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DecodeYAML decodes a YAML or JSON plan document. filename is used only in
// error messages.
func DecodeYAML(data []byte, filename string, opts ...Option) (plan.Operator, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("parse YAML: %v", err)}
	}
	root, err := fromYAML(&doc, "")
	if err != nil {
		return nil, withFile(err, filename)
	}
	return newDecoder(filename, resolve(opts)).run(root)
}

// DecodeCUE compiles a CUE plan document. The top-level value is the root
// operator; it must be concrete.
func DecodeCUE(data []byte, filename string, opts ...Option) (plan.Operator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(err, filename, "compile CUE")
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(err, filename, "validate CUE")
	}
	root, err := fromCUE(v, "")
	if err != nil {
		return nil, withFile(err, filename)
	}
	return newDecoder(filename, resolve(opts)).run(root)
}

// FromDocument decodes an in-memory document, the inverse of
// explain.Document.
func FromDocument(doc map[string]any, opts ...Option) (plan.Operator, error) {
	root, err := fromDocument(doc, "")
	if err != nil {
		return nil, err
	}
	return newDecoder("", resolve(opts)).run(root)
}

// LoadFile reads and decodes a plan file, choosing the format by extension:
// .cue is CUE and anything else is YAML, which includes JSON.
func LoadFile(path string, opts ...Option) (plan.Operator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return DecodeCUE(data, path, opts...)
	}
	return DecodeYAML(data, path, opts...)
}

func withFile(err error, filename string) error {
	var le *LoadError
	if errors.As(err, &le) && le.File == "" {
		le.File = filename
	}
	return err
}

func cueLoadError(err error, filename, what string) error {
	le := &LoadError{File: filename, Message: fmt.Sprintf("%s: %v", what, err)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
			le.Line, le.Column = positions[0].Line(), positions[0].Column()
		}
		le.Message = fmt.Sprintf("%s: %s", what, errs[0].Error())
	}
	return le
}
