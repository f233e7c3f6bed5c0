// Copyright 2025 The pax authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pax saves and loads pytrees — recursive collections of
// dicts, lists, tuples, and records with numeric arrays at the
// leaves — to and from single hierarchical container files.
//
// The API is two functions:
//
//	err := pax.Save("params.pax", tree)
//	tree, err := pax.Load("params.pax")
//
// Load(Save(tree)) reproduces tree exactly: container shapes,
// key/field names and ordering, and bit-identical array values.
package pax

import (
	"github.com/nirum/pax/internal/checkpoint"
	"github.com/nirum/pax/internal/container"
	"github.com/nirum/pax/pytree"
)

// ErrInvalidKey reports a dict key or record field name that cannot be
// stored: empty, or containing '/'.
var ErrInvalidKey = container.ErrInvalidNodeName

// Save writes a pytree to a container file at path. Any existing file
// at the same path is replaced. Deferred array leaves are realized to
// host memory before anything is written.
//
// Saving a tree containing a node that is neither an array leaf nor
// one of the four recognized container shapes fails with an error
// wrapping *pytree.UnsupportedTypeError. Dict keys and record field
// names must be storable; others fail with an error wrapping
// ErrInvalidKey before the file is touched.
func Save(path string, tree *pytree.Node) error {
	return checkpoint.Save(path, tree)
}

// Load reads the pytree stored in the container file at path. The
// returned containers are fresh instances reconstructed from the
// stored type tags; arrays keep their stored dtype, shape, and values
// bit-exact.
func Load(path string) (*pytree.Node, error) {
	return checkpoint.Load(path)
}

// LoadMapped is Load over a memory-mapped reader. Large checkpoints
// avoid a second in-memory copy of the data section; the result is
// identical to Load.
func LoadMapped(path string) (*pytree.Node, error) {
	return checkpoint.LoadMapped(path)
}
