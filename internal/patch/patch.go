// Package patch builds minimal update documents in the RFC 6902 style:
// add, remove and replace operations addressing top-level properties by
// JSON pointer.
package patch

import (
	"sort"
	"strings"

	"github.com/spacelift-io/flows-app-aws-resources/internal/deepdiff"
)

// Op is a patch operation kind.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// Operation is a single patch step targeting one top-level property.
type Operation struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Generate diffs actual against desired and returns the operations needed to
// drive the remote document to the desired one. The considered key set is
// the union of desired's keys and explicit, minus immutable; anything
// outside it, such as server-populated defaults, is left untouched. Keys in
// desired but not actual become add, keys equal on both sides produce
// nothing, differing values become replace. A remove is emitted only for
// keys the caller explicitly configured at some point, never for properties
// the remote filled in on its own. Operations come back sorted by property
// name so the same inputs always serialize identically.
func Generate(actual, desired map[string]any, immutable, explicit map[string]struct{}) []Operation {
	keySet := make(map[string]struct{}, len(desired)+len(explicit))
	for k := range desired {
		keySet[k] = struct{}{}
	}
	for k := range explicit {
		keySet[k] = struct{}{}
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		if _, skip := immutable[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ops []Operation
	for _, k := range keys {
		desiredValue, inDesired := desired[k]
		actualValue, inActual := actual[k]

		switch {
		case inDesired && !inActual:
			ops = append(ops, Operation{Op: OpAdd, Path: Pointer(k), Value: desiredValue})
		case !inDesired && inActual:
			if _, configured := explicit[k]; configured {
				ops = append(ops, Operation{Op: OpRemove, Path: Pointer(k)})
			}
		case inDesired && inActual:
			if !deepdiff.Equal(actualValue, desiredValue, nil) {
				ops = append(ops, Operation{Op: OpReplace, Path: Pointer(k), Value: desiredValue})
			}
		}
	}
	return ops
}

// Pointer renders a top-level property name as a JSON pointer, escaping per
// RFC 6901: "~" becomes "~0" and "/" becomes "~1".
func Pointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return "/" + key
}

// Apply returns a copy of doc with ops applied. Only the top-level pointers
// Generate emits are understood. Removing an absent key is a no-op; add and
// replace both set the key unconditionally.
func Apply(doc map[string]any, ops []Operation) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, op := range ops {
		key := unescape(strings.TrimPrefix(op.Path, "/"))
		switch op.Op {
		case OpRemove:
			delete(out, key)
		case OpAdd, OpReplace:
			out[key] = op.Value
		}
	}
	return out
}

func unescape(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
