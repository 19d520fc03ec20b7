package value

import (
	"encoding/base64"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
)

// Tags used by the document form for datums that have no native JSON
// counterpart. A single-key object whose key is one of these tags decodes
// to the tagged datum rather than a struct.
const (
	tagNull      = "null"
	tagMissing   = "missing"
	tagDecimal   = "decimal"
	tagDouble    = "double"
	tagBlob      = "blob"
	tagDate      = "date"
	tagTimestamp = "timestamp"
	tagBag       = "bag"
	tagStruct    = "struct"
)

// Document converts a datum to plain Go values (string, int64, bool, []any,
// map[string]any) that canonical JSON accepts. Floats and nulls never
// appear in the output.
func Document(d Datum) any {
	switch v := d.(type) {
	case Null:
		return map[string]any{tagNull: true}
	case Missing:
		return map[string]any{tagMissing: true}
	case Bool:
		return bool(v)
	case Int:
		return int64(v)
	case Decimal:
		return map[string]any{tagDecimal: v.Decimal.StringFixed(-v.Exponent())}
	case Double:
		return map[string]any{tagDouble: strconv.FormatFloat(float64(v), 'g', -1, 64)}
	case String:
		return string(v)
	case Blob:
		return map[string]any{tagBlob: base64.StdEncoding.EncodeToString(v)}
	case Date:
		return map[string]any{tagDate: time.Time(v).Format(time.DateOnly)}
	case Timestamp:
		return map[string]any{tagTimestamp: time.Time(v).Format(time.RFC3339Nano)}
	case Array:
		return documents(v)
	case Bag:
		return map[string]any{tagBag: documents(v)}
	case Struct:
		pairs := make([]any, len(v))
		for i, p := range v {
			pairs[i] = map[string]any{"k": p.Key, "v": Document(p.Value)}
		}
		return map[string]any{tagStruct: pairs}
	default:
		panic(fmt.Sprintf("value: unknown datum %T", d))
	}
}

func documents(ds []Datum) []any {
	out := make([]any, len(ds))
	for i, d := range ds {
		out[i] = Document(d)
	}
	return out
}

// FromDocument converts decoded YAML, JSON or CUE data into a datum.
//
// Native scalars map directly: nil to Null, bool to Bool, integers to Int,
// floats to Double (integral floats become Int), strings to String. Lists
// become Array. Objects become Struct with keys in sorted order, unless the
// object has exactly one key that is a datum tag, e.g. {decimal: "1.50"} or
// {bag: [1, 2]}. FromDocument inverts Document.
func FromDocument(v any) (Datum, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Datum:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of int64 range", val)
		}
		return Int(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		return Double(val), nil
	case string:
		return String(val), nil
	case []any:
		arr, err := fromDocuments(val)
		if err != nil {
			return nil, err
		}
		return Array(arr), nil
	case map[string]any:
		if len(val) == 1 {
			for tag, inner := range val {
				if d, ok, err := fromTagged(tag, inner); ok || err != nil {
					return d, err
				}
			}
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		st := make(Struct, len(keys))
		for i, k := range keys {
			d, err := FromDocument(val[k])
			if err != nil {
				return nil, fmt.Errorf("struct[%q]: %w", k, err)
			}
			st[i] = P(k, d)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

func fromDocuments(vs []any) ([]Datum, error) {
	out := make([]Datum, len(vs))
	for i, v := range vs {
		d, err := FromDocument(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// fromTagged decodes a single-key tagged object. ok is false when tag is not
// a datum tag.
func fromTagged(tag string, v any) (Datum, bool, error) {
	str := func() (string, error) {
		s, isStr := v.(string)
		if !isStr {
			return "", fmt.Errorf("%s literal must be a string, got %T", tag, v)
		}
		return s, nil
	}

	switch tag {
	case tagNull:
		return Null{}, true, nil
	case tagMissing:
		return Missing{}, true, nil
	case tagDecimal:
		s, err := str()
		if err != nil {
			return nil, true, err
		}
		d, err := NewDecimal(s)
		return d, true, err
	case tagDouble:
		s, err := str()
		if err != nil {
			return nil, true, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, true, fmt.Errorf("double literal %q: %w", s, err)
		}
		return Double(f), true, nil
	case tagBlob:
		s, err := str()
		if err != nil {
			return nil, true, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, true, fmt.Errorf("blob literal: %w", err)
		}
		return Blob(b), true, nil
	case tagDate:
		s, err := str()
		if err != nil {
			return nil, true, err
		}
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, true, fmt.Errorf("date literal: %w", err)
		}
		return Date(t), true, nil
	case tagTimestamp:
		s, err := str()
		if err != nil {
			return nil, true, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, true, fmt.Errorf("timestamp literal: %w", err)
		}
		return Timestamp(t), true, nil
	case tagBag:
		list, isList := v.([]any)
		if !isList {
			return nil, true, fmt.Errorf("bag literal must be a list, got %T", v)
		}
		ds, err := fromDocuments(list)
		if err != nil {
			return nil, true, fmt.Errorf("bag%w", err)
		}
		return Bag(ds), true, nil
	case tagStruct:
		list, isList := v.([]any)
		if !isList {
			return nil, true, fmt.Errorf("struct literal must be a list of {k, v}, got %T", v)
		}
		st := make(Struct, len(list))
		for i, item := range list {
			m, isMap := item.(map[string]any)
			key, hasKey := m["k"].(string)
			if !isMap || !hasKey {
				return nil, true, fmt.Errorf("struct literal member %d must be {k: string, v: any}", i)
			}
			d, err := FromDocument(m["v"])
			if err != nil {
				return nil, true, fmt.Errorf("struct[%q]: %w", key, err)
			}
			st[i] = P(key, d)
		}
		return st, true, nil
	}
	return nil, false, nil
}
