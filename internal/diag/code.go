package diag

import (
	"fmt"
	"strconv"

	"github.com/roach88/planir/internal/ptype"
)

// Code identifies a diagnostic. The set is closed: every code is declared
// here together with the properties it carries.
type Code int

const (
	// ErrorPlaceholder reports an Error node left in the plan by an earlier
	// stage. Properties: MESSAGE (string).
	ErrorPlaceholder Code = iota + 1

	// VarRefNotInScope reports a variable that resolves to no binding.
	// Properties: ID (string), SCOPE (int).
	VarRefNotInScope

	// VarRefAmbiguous reports a variable that resolves to more than one
	// binding. Properties: ID (string).
	VarRefAmbiguous

	// FunctionNotFound reports a call with no applicable overload.
	// Properties: FN_ID (string), ARG_TYPES ([]ptype.PType).
	FunctionNotFound

	// UndefinedCast reports a cast between types with no conversion.
	// Properties: INPUT_TYPE (ptype.PType), TARGET_TYPE (ptype.PType).
	UndefinedCast

	// AlwaysMissing reports an expression that evaluates to MISSING for
	// every input. No properties.
	AlwaysMissing

	// PathKeyNeverSucceeds reports x['k'] on a value that never has key k.
	// Properties: KEY (string), TYPE (ptype.PType).
	PathKeyNeverSucceeds

	// PathIndexNeverSucceeds reports x[i] on a value that is never an array.
	// Properties: TYPE (ptype.PType).
	PathIndexNeverSucceeds

	// PathSymbolNeverSucceeds reports x.s on a value that never has a field
	// matching s. Properties: SYMBOL (string), TYPE (ptype.PType).
	PathSymbolNeverSucceeds

	// CardinalityViolation reports a scalar subquery that can produce more
	// than one row. No properties.
	CardinalityViolation

	// NumericValueOutOfRange reports a constant that does not fit its target
	// numeric type. Properties: TYPE (ptype.PType).
	NumericValueOutOfRange

	// StringTruncation reports a constant string longer than its target
	// character type. Properties: LENGTH (int), TYPE (ptype.PType).
	StringTruncation

	// FeatureNotSupported reports a construct the pipeline cannot handle.
	// Properties: FEATURE (string).
	FeatureNotSupported
)

// Property keys.
const (
	PropMessage    = "MESSAGE"
	PropID         = "ID"
	PropScope      = "SCOPE"
	PropFnID       = "FN_ID"
	PropArgTypes   = "ARG_TYPES"
	PropInputType  = "INPUT_TYPE"
	PropTargetType = "TARGET_TYPE"
	PropKey        = "KEY"
	PropSymbol     = "SYMBOL"
	PropType       = "TYPE"
	PropLength     = "LENGTH"
	PropFeature    = "FEATURE"
)

// propKind is the Go type a property value must have.
type propKind int

const (
	propString propKind = iota
	propInt
	propType
	propTypes
)

type codeInfo struct {
	name  string
	props map[string]propKind
}

var codes = map[Code]codeInfo{
	ErrorPlaceholder:        {"ERROR_PLACEHOLDER", map[string]propKind{PropMessage: propString}},
	VarRefNotInScope:        {"VAR_REF_NOT_IN_SCOPE", map[string]propKind{PropID: propString, PropScope: propInt}},
	VarRefAmbiguous:         {"VAR_REF_AMBIGUOUS", map[string]propKind{PropID: propString}},
	FunctionNotFound:        {"FUNCTION_NOT_FOUND", map[string]propKind{PropFnID: propString, PropArgTypes: propTypes}},
	UndefinedCast:           {"UNDEFINED_CAST", map[string]propKind{PropInputType: propType, PropTargetType: propType}},
	AlwaysMissing:           {"ALWAYS_MISSING", nil},
	PathKeyNeverSucceeds:    {"PATH_KEY_NEVER_SUCCEEDS", map[string]propKind{PropKey: propString, PropType: propType}},
	PathIndexNeverSucceeds:  {"PATH_INDEX_NEVER_SUCCEEDS", map[string]propKind{PropType: propType}},
	PathSymbolNeverSucceeds: {"PATH_SYMBOL_NEVER_SUCCEEDS", map[string]propKind{PropSymbol: propString, PropType: propType}},
	CardinalityViolation:    {"CARDINALITY_VIOLATION", nil},
	NumericValueOutOfRange:  {"NUMERIC_VALUE_OUT_OF_RANGE", map[string]propKind{PropType: propType}},
	StringTruncation:        {"STRING_TRUNCATION", map[string]propKind{PropLength: propInt, PropType: propType}},
	FeatureNotSupported:     {"FEATURE_NOT_SUPPORTED", map[string]propKind{PropFeature: propString}},
}

func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Valid reports whether c is a declared code.
func (c Code) Valid() bool {
	_, ok := codes[c]
	return ok
}

// ParseCode looks up a code by its String form.
func ParseCode(name string) (Code, error) {
	for c, info := range codes {
		if info.name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown diagnostic code %q", name)
}

func checkProp(key string, kind propKind, v any) error {
	var ok bool
	switch kind {
	case propString:
		_, ok = v.(string)
	case propInt:
		_, ok = v.(int)
	case propType:
		_, ok = v.(ptype.PType)
	case propTypes:
		_, ok = v.([]ptype.PType)
	}
	if !ok {
		return fmt.Errorf("property %s has type %T", key, v)
	}
	return nil
}
