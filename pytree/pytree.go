// Copyright 2025 The pax authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pytree provides the public API for building and inspecting
// pytrees: recursive value trees with numeric arrays at the leaves,
// composed through lists, tuples, records, and string-keyed dicts.
//
// Example:
//
//	params := pytree.Dict(
//	    pytree.Entry{Key: "w", Value: pytree.Array(w)},
//	    pytree.Entry{Key: "b", Value: pytree.Array(b)},
//	)
package pytree

import (
	"github.com/nirum/pax/internal/pytree"
	"github.com/nirum/pax/internal/tensor"
)

// Type aliases for public API

// Node is a pytree node: an array leaf or one of the four container
// shapes (dict, list, tuple, record).
type Node = pytree.Node

// Kind discriminates the variants of a Node.
type Kind = pytree.Kind

// Node variants.
const (
	KindInvalid Kind = pytree.KindInvalid
	KindArray   Kind = pytree.KindArray
	KindDict    Kind = pytree.KindDict
	KindList    Kind = pytree.KindList
	KindTuple   Kind = pytree.KindTuple
	KindRecord  Kind = pytree.KindRecord
)

// Entry is one key-value pair of a dict or one named field of a record.
type Entry = pytree.Entry

// UnsupportedTypeError reports a value that is neither an array leaf
// nor one of the four recognized container shapes.
type UnsupportedTypeError = pytree.UnsupportedTypeError

// Array returns an array leaf holding a concrete host-resident array.
func Array(raw *tensor.RawTensor) *Node {
	return pytree.Array(raw)
}

// DeferredArray returns an array leaf whose values are still device
// resident or lazily computed.
func DeferredArray(d tensor.Deferred) *Node {
	return pytree.DeferredArray(d)
}

// List returns an ordered sequence node.
func List(items ...*Node) *Node {
	return pytree.List(items...)
}

// Tuple returns a fixed-arity ordered node with unnamed positions.
func Tuple(items ...*Node) *Node {
	return pytree.Tuple(items...)
}

// Dict returns a string-keyed mapping node with insertion-ordered
// entries.
func Dict(entries ...Entry) *Node {
	return pytree.Dict(entries...)
}

// Record returns a labeled tuple: an ordered, fixed-arity sequence of
// named fields carrying a schema type name.
func Record(typeName string, entries ...Entry) *Node {
	return pytree.Record(typeName, entries...)
}

// FromValue converts a dynamically typed Go value (arrays, []any,
// map[string]any) into a pytree node.
func FromValue(v any) (*Node, error) {
	return pytree.FromValue(v)
}

// Equal reports deep structural equality of two trees, with bit-exact
// array comparison.
func Equal(a, b *Node) bool {
	return pytree.Equal(a, b)
}

// RegisterRecord declares a record schema: a type name and its field
// names in order. Loading a record with a registered type name maps
// the stored fields onto the declared order.
func RegisterRecord(typeName string, fields []string) {
	pytree.RegisterRecord(typeName, fields)
}

// LookupRecord returns the declared field order for a registered
// record type name.
func LookupRecord(typeName string) ([]string, bool) {
	return pytree.LookupRecord(typeName)
}
