// Package pytree defines the recursive value trees persisted by pax:
// numeric arrays at the leaves, composed through ordered sequences,
// fixed tuples, labeled records, and string-keyed mappings.
package pytree

import (
	"fmt"

	"github.com/nirum/pax/internal/tensor"
)

// Kind discriminates the variants of a Node.
type Kind int

// Node variants. KindInvalid is the zero value and never a valid tree
// member; the save path rejects it.
const (
	KindInvalid Kind = iota
	KindArray
	KindDict
	KindList
	KindTuple
	KindRecord
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	default:
		return "invalid"
	}
}

// Entry is one key-value pair of a dict or one named field of a record.
type Entry struct {
	Key   string
	Value *Node
}

// Node is a pytree node: a tagged union over the five variants. The
// zero value is invalid; build nodes with the constructors below.
//
// A node is immutable once constructed, except that Dict and Record
// nodes can be extended with Put before being saved.
type Node struct {
	kind     Kind
	raw      *tensor.RawTensor
	deferred tensor.Deferred
	keys     []string // dict keys or record field names, insertion order
	items    []*Node
	typeName string // record schema name
}

// Array returns an array leaf holding a concrete host-resident array.
func Array(raw *tensor.RawTensor) *Node {
	return &Node{kind: KindArray, raw: raw}
}

// DeferredArray returns an array leaf whose values are still device
// resident or lazily computed. The leaf is realized by Materialize
// before saving.
func DeferredArray(d tensor.Deferred) *Node {
	return &Node{kind: KindArray, deferred: d}
}

// List returns an ordered sequence node.
func List(items ...*Node) *Node {
	return &Node{kind: KindList, items: items}
}

// Tuple returns a fixed-arity ordered node with unnamed positions.
func Tuple(items ...*Node) *Node {
	return &Node{kind: KindTuple, items: items}
}

// Dict returns a string-keyed mapping node. Entry order is preserved
// as the insertion order of the mapping.
func Dict(entries ...Entry) *Node {
	n := &Node{kind: KindDict}
	for _, e := range entries {
		n.Put(e.Key, e.Value)
	}
	return n
}

// Record returns a labeled tuple: an ordered, fixed-arity sequence of
// named fields carrying a schema type name.
func Record(typeName string, entries ...Entry) *Node {
	n := &Node{kind: KindRecord, typeName: typeName}
	for _, e := range entries {
		n.Put(e.Key, e.Value)
	}
	return n
}

// Put appends or replaces a named child of a dict or record node.
// Panics on other kinds.
func (n *Node) Put(key string, child *Node) {
	if n.kind != KindDict && n.kind != KindRecord {
		panic(fmt.Sprintf("pytree: Put on %s node", n.kind))
	}
	for i, k := range n.keys {
		if k == key {
			n.items[i] = child
			return
		}
	}
	n.keys = append(n.keys, key)
	n.items = append(n.items, child)
}

// Kind returns the node's variant tag.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindInvalid
	}
	return n.kind
}

// Array returns the concrete array of an array leaf, or nil if the
// leaf is still deferred or the node is not an array.
func (n *Node) Array() *tensor.RawTensor {
	return n.raw
}

// TypeName returns the schema name of a record node ("" otherwise).
func (n *Node) TypeName() string {
	return n.typeName
}

// Len returns the number of children of a container node.
func (n *Node) Len() int {
	return len(n.items)
}

// At returns the i-th child of a container node.
func (n *Node) At(i int) *Node {
	return n.items[i]
}

// Keys returns the dict keys or record field names in order.
// The returned slice must not be modified.
func (n *Node) Keys() []string {
	return n.keys
}

// Get returns the named child of a dict or record node.
func (n *Node) Get(key string) (*Node, bool) {
	for i, k := range n.keys {
		if k == key {
			return n.items[i], true
		}
	}
	return nil, false
}

// Entries returns the named children of a dict or record node in order.
func (n *Node) Entries() []Entry {
	entries := make([]Entry, len(n.keys))
	for i, k := range n.keys {
		entries[i] = Entry{Key: k, Value: n.items[i]}
	}
	return entries
}

// Materialize returns a tree in which every deferred array leaf has
// been realized to a concrete host-resident array. The receiver is
// left untouched; shared concrete leaves are reused, not copied.
func (n *Node) Materialize() (*Node, error) {
	if n == nil || n.kind == KindInvalid {
		return nil, &UnsupportedTypeError{Value: n}
	}

	if n.kind == KindArray {
		if n.deferred == nil {
			return n, nil
		}
		raw, err := n.deferred.Realize()
		if err != nil {
			return nil, fmt.Errorf("realizing deferred array: %w", err)
		}
		return Array(raw), nil
	}

	out := &Node{
		kind:     n.kind,
		typeName: n.typeName,
		keys:     append([]string(nil), n.keys...),
		items:    make([]*Node, len(n.items)),
	}
	for i, item := range n.items {
		m, err := item.Materialize()
		if err != nil {
			return nil, err
		}
		out.items[i] = m
	}
	return out, nil
}

// Equal reports deep structural equality of two trees: same variant
// tags, same key/field names and ordering, same record type names, and
// bit-identical arrays (dtype, shape, data).
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind || a.typeName != b.typeName {
		return false
	}
	if a.kind == KindArray {
		return a.raw.Equal(b.raw)
	}
	if len(a.items) != len(b.items) || len(a.keys) != len(b.keys) {
		return false
	}
	for i := range a.keys {
		if a.keys[i] != b.keys[i] {
			return false
		}
	}
	for i := range a.items {
		if !Equal(a.items[i], b.items[i]) {
			return false
		}
	}
	return true
}
