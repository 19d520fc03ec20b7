// Package diag defines structured diagnostics and the listener interface
// that decides what to do with them.
//
// Semantic problems found in a plan are values, not errors: analysis keeps
// going and reports every problem it finds to a Listener. Whether a
// diagnostic aborts the current operation is the listener's decision,
// signalled by returning a non-nil error from Report.
package diag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/planir/internal/ptype"
)

// Severity is ERROR or WARNING.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "WARNING"
	}
	return "ERROR"
}

// Classification is the stage a diagnostic belongs to.
type Classification int

const (
	Syntax Classification = iota
	Semantic
	Compilation
	Execution
)

func (c Classification) String() string {
	switch c {
	case Syntax:
		return "SYNTAX"
	case Compilation:
		return "COMPILATION"
	case Execution:
		return "EXECUTION"
	}
	return "SEMANTIC"
}

// Location is a position in source text. Length may be zero when unknown.
type Location struct {
	Line   int
	Column int
	Length int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Diagnostic is one reported condition.
type Diagnostic struct {
	Code           Code
	Severity       Severity
	Classification Classification

	// Location is nil when the condition has no source position, which is
	// the case for anything found by analysing a plan.
	Location *Location

	// Properties holds the values documented for Code.
	Properties map[string]any
}

// New builds a diagnostic. props are alternating keys and values.
func New(code Code, severity Severity, class Classification, props ...any) Diagnostic {
	d := Diagnostic{Code: code, Severity: severity, Classification: class}
	if len(props) > 0 {
		d.Properties = make(map[string]any, len(props)/2)
		for i := 0; i+1 < len(props); i += 2 {
			d.Properties[fmt.Sprint(props[i])] = props[i+1]
		}
	}
	return d
}

// At returns a copy of d located at loc.
func (d Diagnostic) At(loc Location) Diagnostic {
	d.Location = &loc
	return d
}

// IsError reports whether d has ERROR severity.
func (d Diagnostic) IsError() bool { return d.Severity == SeverityError }

// Validate checks that d's code is declared and that it carries exactly the
// documented properties with the documented value types.
func (d Diagnostic) Validate() error {
	info, ok := codes[d.Code]
	if !ok {
		return fmt.Errorf("undeclared diagnostic code %d", int(d.Code))
	}
	for key, kind := range info.props {
		v, ok := d.Properties[key]
		if !ok {
			return fmt.Errorf("%s: missing property %s", d.Code, key)
		}
		if err := checkProp(key, kind, v); err != nil {
			return fmt.Errorf("%s: %w", d.Code, err)
		}
	}
	for key := range d.Properties {
		if _, ok := info.props[key]; !ok {
			return fmt.Errorf("%s: undocumented property %s", d.Code, key)
		}
	}
	return nil
}

// String renders d on one line with properties in key order, for example
// ERROR SEMANTIC FUNCTION_NOT_FOUND: ARG_TYPES=[INTEGER] FN_ID=upper.
func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s", d.Severity, d.Classification, d.Code)
	if d.Location != nil {
		fmt.Fprintf(&sb, " at %s", d.Location)
	}
	keys := make([]string, 0, len(d.Properties))
	for k := range d.Properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for i, k := range keys {
		if i == 0 {
			sb.WriteString(":")
		}
		fmt.Fprintf(&sb, " %s=%s", k, formatProp(d.Properties[k]))
	}
	return sb.String()
}

func formatProp(v any) string {
	if ts, ok := v.([]ptype.PType); ok {
		parts := make([]string, len(ts))
		for i, t := range ts {
			parts[i] = t.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

// The constructors below build semantic errors and warnings with the
// properties each code documents.

func Placeholder(message string) Diagnostic {
	return New(ErrorPlaceholder, SeverityError, Semantic, PropMessage, message)
}

func NotInScope(id string, scope int) Diagnostic {
	return New(VarRefNotInScope, SeverityError, Semantic, PropID, id, PropScope, scope)
}

func Ambiguous(id string) Diagnostic {
	return New(VarRefAmbiguous, SeverityError, Semantic, PropID, id)
}

func NoFunction(fnID string, argTypes []ptype.PType) Diagnostic {
	return New(FunctionNotFound, SeverityError, Semantic, PropFnID, fnID, PropArgTypes, argTypes)
}

func NoCast(input, target ptype.PType) Diagnostic {
	return New(UndefinedCast, SeverityError, Semantic, PropInputType, input, PropTargetType, target)
}

func Missing() Diagnostic {
	return New(AlwaysMissing, SeverityWarning, Semantic)
}

func KeyNeverSucceeds(key string, t ptype.PType) Diagnostic {
	return New(PathKeyNeverSucceeds, SeverityWarning, Semantic, PropKey, key, PropType, t)
}

func IndexNeverSucceeds(t ptype.PType) Diagnostic {
	return New(PathIndexNeverSucceeds, SeverityWarning, Semantic, PropType, t)
}

func SymbolNeverSucceeds(symbol string, t ptype.PType) Diagnostic {
	return New(PathSymbolNeverSucceeds, SeverityWarning, Semantic, PropSymbol, symbol, PropType, t)
}

func Cardinality() Diagnostic {
	return New(CardinalityViolation, SeverityError, Execution)
}

func OutOfRange(t ptype.PType) Diagnostic {
	return New(NumericValueOutOfRange, SeverityError, Semantic, PropType, t)
}

func Truncation(length int, t ptype.PType) Diagnostic {
	return New(StringTruncation, SeverityWarning, Semantic, PropLength, length, PropType, t)
}

func Unsupported(feature string) Diagnostic {
	return New(FeatureNotSupported, SeverityError, Compilation, PropFeature, feature)
}
