// Package deepdiff compares JSON-like property documents: scalars, ordered
// sequences, and string-keyed mappings as produced by encoding/json or
// yaml unmarshalling into any.
package deepdiff

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Equal reports whether a and b are structurally equal. Map keys listed in
// exclude are ignored at every nesting depth, not just the top level.
// Sequences compare element-wise in order. A nil value equals only nil, so a
// key mapped to null is not the same as a missing key. Numbers compare by
// value regardless of Go type, because desired configs typically carry int
// while remote payloads decode to float64.
func Equal(a, b any, exclude map[string]struct{}) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return false
		}
		return equalMaps(av, bv, exclude)
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return false
		}
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i], exclude) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(a, b)
	}
}

// DiffKeys returns the sorted top-level keys whose values differ between a
// and b: the union of keys present on either side, minus excluded keys,
// minus keys whose values are deep-equal. A key present on one side only
// always counts as different.
func DiffKeys(a, b map[string]any, exclude map[string]struct{}) []string {
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}

	var diff []string
	for k := range union {
		if _, skip := exclude[k]; skip {
			continue
		}
		av, inA := a[k]
		bv, inB := b[k]
		if inA != inB || !Equal(av, bv, exclude) {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

func equalMaps(a, b map[string]any, exclude map[string]struct{}) bool {
	for k, av := range a {
		if _, skip := exclude[k]; skip {
			continue
		}
		bv, ok := b[k]
		if !ok || !Equal(av, bv, exclude) {
			return false
		}
	}
	for k := range b {
		if _, skip := exclude[k]; skip {
			continue
		}
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}

func scalarEqual(a, b any) bool {
	if na, ok := toFloat(a); ok {
		nb, ok := toFloat(b)
		return ok && na == nb
	}
	if _, ok := toFloat(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
