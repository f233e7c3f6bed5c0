// Package checkpoint persists pytrees to hierarchical container files
// and restores them. Each pytree node maps to one file node: array
// leaves become datasets, containers become groups tagged with a
// "type" attribute naming their shape.
package checkpoint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nirum/pax/internal/container"
	"github.com/nirum/pax/internal/pytree"
)

// rootName is the name of the single node at the file root.
const rootName = "pytree"

// attrType is the group attribute carrying the container-shape tag.
const attrType = "type"

// Container-shape tags. Any other tag value names a record schema.
const (
	typeDict  = "dict"
	typeList  = "list"
	typeTuple = "tuple"
)

// indexPrefix is the positional naming scheme for list and tuple
// children: arr0, arr1, ... in order.
const indexPrefix = "arr"

// Save writes a pytree to a container file at path. Deferred array
// leaves are realized to host memory first; an existing file at the
// same path is replaced.
//
// A tree holding anything other than array leaves and the four
// recognized container shapes aborts the save with an error wrapping
// *pytree.UnsupportedTypeError. Dict keys and record field names must
// be non-empty and free of '/'; others abort with an error wrapping
// container.ErrInvalidNodeName before the file is touched.
func Save(path string, tree *pytree.Node) (err error) {
	resolved, err := tree.Materialize()
	if err != nil {
		return err
	}

	root := container.NewRoot()
	if err := writeNode(root, rootName, resolved); err != nil {
		return err
	}

	w, err := container.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := w.WriteTree(root); err != nil {
		return fmt.Errorf("failed to write pytree: %w", err)
	}

	return nil
}

// writeNode recursively maps a pytree node onto a container node named
// name under parent.
func writeNode(parent *container.Group, name string, n *pytree.Node) error {
	switch n.Kind() {
	case pytree.KindArray:
		raw := n.Array()
		if raw == nil {
			return fmt.Errorf("%s: %w", name, &pytree.UnsupportedTypeError{Value: n})
		}
		_, err := parent.AddDataset(name, raw)
		return err

	case pytree.KindDict:
		g, err := parent.AddGroup(name)
		if err != nil {
			return err
		}
		g.SetAttr(attrType, typeDict)
		for _, e := range n.Entries() {
			if err := writeNode(g, e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil

	case pytree.KindList, pytree.KindTuple:
		g, err := parent.AddGroup(name)
		if err != nil {
			return err
		}
		if n.Kind() == pytree.KindList {
			g.SetAttr(attrType, typeList)
		} else {
			g.SetAttr(attrType, typeTuple)
		}
		for i := 0; i < n.Len(); i++ {
			if err := writeNode(g, indexPrefix+strconv.Itoa(i), n.At(i)); err != nil {
				return err
			}
		}
		return nil

	case pytree.KindRecord:
		typeName := n.TypeName()
		if typeName == "" || typeName == typeDict || typeName == typeList || typeName == typeTuple {
			return fmt.Errorf("%s: record type name %q collides with a container tag", name, typeName)
		}
		g, err := parent.AddGroup(name)
		if err != nil {
			return err
		}
		g.SetAttr(attrType, typeName)
		for _, e := range n.Entries() {
			if err := writeNode(g, e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%s: %w", name, &pytree.UnsupportedTypeError{Value: n})
	}
}

// Load reads the pytree stored in the container file at path.
func Load(path string) (tree *pytree.Node, err error) {
	r, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	root, err := r.ReadTree()
	if err != nil {
		return nil, fmt.Errorf("failed to read node tree: %w", err)
	}

	return fromRoot(root)
}

// LoadMapped reads the pytree through a memory-mapped reader. The
// result is identical to Load.
func LoadMapped(path string) (tree *pytree.Node, err error) {
	r, err := container.OpenMapped(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	root, err := r.ReadTree()
	if err != nil {
		return nil, fmt.Errorf("failed to read node tree: %w", err)
	}

	return fromRoot(root)
}

// fromRoot locates the pytree root node in the file-level group.
func fromRoot(root *container.Group) (*pytree.Node, error) {
	node, ok := root.Child(rootName)
	if !ok {
		return nil, ErrMissingRoot
	}
	return readNode(node, rootName)
}

// readNode recursively reconstructs a pytree node from a container
// node. Datasets need no metadata: array data alone identifies a leaf.
func readNode(n container.Node, path string) (*pytree.Node, error) {
	switch c := n.(type) {
	case *container.Dataset:
		return pytree.Array(c.Tensor()), nil

	case *container.Group:
		tag, ok := c.Attr(attrType)
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingTypeAttr)
		}

		switch tag {
		case typeDict:
			d := pytree.Dict()
			for _, child := range c.Children() {
				v, err := readNode(child, path+"/"+child.Name())
				if err != nil {
					return nil, err
				}
				d.Put(child.Name(), v)
			}
			return d, nil

		case typeList:
			items, err := indexedChildren(c, path)
			if err != nil {
				return nil, err
			}
			return pytree.List(items...), nil

		case typeTuple:
			items, err := indexedChildren(c, path)
			if err != nil {
				return nil, err
			}
			return pytree.Tuple(items...), nil

		default:
			// Any other tag names a record schema; field names are
			// the child names in stored order.
			rec := pytree.Record(tag)
			for _, child := range c.Children() {
				v, err := readNode(child, path+"/"+child.Name())
				if err != nil {
					return nil, err
				}
				rec.Put(child.Name(), v)
			}
			return pytree.BindRecord(rec)
		}

	default:
		return nil, fmt.Errorf("%s: unknown node type %T", path, n)
	}
}

// indexedChildren reconstructs the children of a list or tuple group
// in ascending order of the numeric suffix of their arr{index} names.
// The file's physical child order is deliberately ignored.
func indexedChildren(g *container.Group, path string) ([]*pytree.Node, error) {
	type indexed struct {
		idx  int
		node container.Node
	}

	children := g.Children()
	ordered := make([]indexed, 0, len(children))
	for _, child := range children {
		suffix, ok := strings.CutPrefix(child.Name(), indexPrefix)
		if !ok {
			return nil, fmt.Errorf("%s/%s: %w", path, child.Name(), ErrBadIndexName)
		}
		idx, err := strconv.Atoi(suffix)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%s/%s: %w", path, child.Name(), ErrBadIndexName)
		}
		ordered = append(ordered, indexed{idx: idx, node: child})
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].idx < ordered[j].idx
	})

	items := make([]*pytree.Node, len(ordered))
	for i, o := range ordered {
		v, err := readNode(o.node, path+"/"+o.node.Name())
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}
