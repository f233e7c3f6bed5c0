package pytree

import (
	"sort"

	"github.com/nirum/pax/internal/tensor"
)

// FromValue converts a dynamically typed Go value into a pytree node.
//
// Recognized values:
//   - *Node: passed through unchanged
//   - *tensor.RawTensor: array leaf
//   - tensor.Deferred: deferred array leaf
//   - []any: list
//   - map[string]any: dict (keys sorted, since Go map order is random)
//
// Tuples and records have no dynamic Go counterpart; build them with
// the Tuple and Record constructors. Anything else yields an
// *UnsupportedTypeError.
func FromValue(v any) (*Node, error) {
	switch val := v.(type) {
	case *Node:
		return val, nil

	case *tensor.RawTensor:
		return Array(val), nil

	case tensor.Deferred:
		return DeferredArray(val), nil

	case []any:
		items := make([]*Node, len(val))
		for i, item := range val {
			n, err := FromValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		return List(items...), nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		d := Dict()
		for _, k := range keys {
			n, err := FromValue(val[k])
			if err != nil {
				return nil, err
			}
			d.Put(k, n)
		}
		return d, nil

	default:
		return nil, &UnsupportedTypeError{Value: v}
	}
}
