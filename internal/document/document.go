// Package document defines the schema-less record model shared by the store,
// the query engine, and the rule engine. A Doc is an arbitrary JSON-shaped
// mapping; the four reserved fields are owned by the store and stripped from
// any client-supplied value.
package document

import (
	"fmt"
	"strings"

	"docbay/internal/constants"
)

// Doc is a single stored document. Values are the JSON shapes produced by
// encoding/json: string, float64, bool, nil, []any, map[string]any.
type Doc map[string]any

// reservedFields are set by the store and never accepted from clients.
var reservedFields = []string{
	constants.FieldID,
	constants.FieldCreatedOn,
	constants.FieldUpdatedOn,
	constants.FieldOwnerID,
}

// IsReserved reports whether key is one of the reserved system fields.
func IsReserved(key string) bool {
	for _, f := range reservedFields {
		if key == f {
			return true
		}
	}
	return false
}

// DeepCopy returns a copy sharing no mutable state with the original.
func (d Doc) DeepCopy() Doc {
	if d == nil {
		return nil
	}
	return CopyValue(map[string]any(d)).(map[string]any)
}

// CopyValue deep-copies any JSON-shaped value.
func CopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case Doc:
		return CopyValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	default:
		return v
	}
}

// AssignClean copies every non-reserved field of src into dst, deep-copying
// values. Returns dst.
func AssignClean(dst, src Doc) Doc {
	for k, v := range src {
		if IsReserved(k) {
			continue
		}
		dst[k] = CopyValue(v)
	}
	return dst
}

// PreserveSystemFields copies the reserved fields present on src into dst,
// overwriting whatever the caller supplied. Returns dst.
func PreserveSystemFields(dst, src Doc) Doc {
	for _, f := range reservedFields {
		if v, ok := src[f]; ok {
			dst[f] = CopyValue(v)
		}
	}
	return dst
}

// LooseEqual compares two values the way the query predicates do: numbers
// compare numerically regardless of concrete type, everything else by
// stringified equality when types differ and direct equality otherwise.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, aok := AsNumber(a)
	bn, bok := AsNumber(b)
	if aok && bok {
		return an == bn
	}
	if fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) {
		return true
	}
	return a == b
}

// AsNumber converts a value to float64 when it carries a numeric type.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Compare orders two field values for sorting. Both numeric → numeric
// order; otherwise the string forms compare lexicographically. Returns a
// negative, zero, or positive value.
func Compare(a, b any) int {
	an, aok := AsNumber(a)
	bn, bok := AsNumber(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(Stringify(a), Stringify(b))
}

// Stringify renders a value the way it participates in string comparisons.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Truthy applies the original coercion rules: false, 0, "" and nil are
// falsy, everything else is truthy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	default:
		if n, ok := AsNumber(v); ok {
			return n != 0
		}
		return true
	}
}
