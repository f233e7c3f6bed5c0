package container

import (
	"fmt"
	"strings"

	"github.com/nirum/pax/internal/tensor"
)

// Node is a member of an in-memory container tree: either a *Group or
// a *Dataset.
type Node interface {
	// Name returns the node's name within its parent ("" for the root).
	Name() string
}

// Group is a named collection of child nodes with attached string
// attributes. Children keep insertion order.
type Group struct {
	name     string
	attrs    map[string]string
	names    []string
	children map[string]Node
}

// Dataset holds one array. Datasets carry no attributes: the presence
// of array data alone identifies a leaf during reconstruction.
type Dataset struct {
	name string
	raw  *tensor.RawTensor
}

// NewRoot creates an empty file-level root group. The root is unnamed;
// everything stored in a file hangs off it.
func NewRoot() *Group {
	return &Group{
		attrs:    make(map[string]string),
		children: make(map[string]Node),
	}
}

// Name returns the group's name within its parent ("" for the root).
func (g *Group) Name() string {
	return g.name
}

// SetAttr attaches a string attribute to the group.
func (g *Group) SetAttr(key, value string) {
	g.attrs[key] = value
}

// Attr returns the value of a group attribute.
func (g *Group) Attr(key string) (string, bool) {
	v, ok := g.attrs[key]
	return v, ok
}

// Attrs returns the group's attributes. The returned map must not be
// modified.
func (g *Group) Attrs() map[string]string {
	return g.attrs
}

// checkChildName rejects names the reader refuses, so a built tree can
// never produce a file that fails validation on open.
func checkChildName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ErrInvalidNodeName)
	}
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("name %q contains '/': %w", name, ErrInvalidNodeName)
	}
	if len(name) > MaxNodeNameLen {
		return fmt.Errorf("name length %d: %w", len(name), ErrNodeNameTooLong)
	}
	return nil
}

// AddGroup creates and returns a child group. Returns ErrNodeExists if
// a child with the same name is already present, ErrInvalidNodeName if
// the name is empty or contains '/'.
func (g *Group) AddGroup(name string) (*Group, error) {
	if err := checkChildName(name); err != nil {
		return nil, err
	}
	if _, ok := g.children[name]; ok {
		return nil, fmt.Errorf("group %q: %w", name, ErrNodeExists)
	}
	child := &Group{
		name:     name,
		attrs:    make(map[string]string),
		children: make(map[string]Node),
	}
	g.names = append(g.names, name)
	g.children[name] = child
	return child, nil
}

// AddDataset creates a child dataset holding the given array. Returns
// ErrNodeExists if a child with the same name is already present,
// ErrInvalidNodeName if the name is empty or contains '/'.
func (g *Group) AddDataset(name string, raw *tensor.RawTensor) (*Dataset, error) {
	if err := checkChildName(name); err != nil {
		return nil, err
	}
	if _, ok := g.children[name]; ok {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrNodeExists)
	}
	child := &Dataset{name: name, raw: raw}
	g.names = append(g.names, name)
	g.children[name] = child
	return child, nil
}

// Child returns the named child node.
func (g *Group) Child(name string) (Node, bool) {
	n, ok := g.children[name]
	return n, ok
}

// Children returns the child nodes in insertion order.
func (g *Group) Children() []Node {
	out := make([]Node, len(g.names))
	for i, name := range g.names {
		out[i] = g.children[name]
	}
	return out
}

// Len returns the number of children.
func (g *Group) Len() int {
	return len(g.names)
}

// Name returns the dataset's name within its parent.
func (d *Dataset) Name() string {
	return d.name
}

// Tensor returns the array held by the dataset.
func (d *Dataset) Tensor() *tensor.RawTensor {
	return d.raw
}
