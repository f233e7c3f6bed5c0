// Package container implements the hierarchical .pax container format:
// a single-file tree of named group and dataset nodes, where groups
// carry string attributes and ordered children and datasets hold one
// numeric array each.
//
//	Format Structure:
//	  [0x00: Magic "PAXT" (4 bytes)]
//	  [0x04: Format version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x0C: Reserved (uint32)]
//	  [0x10: Header size (uint64 LE)]
//	  [0x18: Data size (uint64 LE)]
//	  [0x20: SHA-256 checksum of the data section (32 bytes)]
//	  [0x40: Header: CBOR-encoded node metadata tree]
//	  [Zero padding to a 64-byte boundary]
//	  [Dataset payload: raw bytes, depth-first order]
//
// The header is one recursive structure mirroring the node tree:
// every node records its name and kind, groups additionally their
// attributes and children, datasets their dtype, shape, and the
// offset/size of their bytes within the data section. The header is
// encoded with CBOR Core Deterministic Encoding, so the same logical
// tree always produces identical header bytes.
//
// Example usage:
//
//	root := container.NewRoot()
//	g, _ := root.AddGroup("pytree")
//	g.SetAttr("type", "dict")
//	g.AddDataset("weights", raw)
//
//	w, _ := container.Create("state.pax")
//	err := w.WriteTree(root)
//	w.Close()
//
//	r, _ := container.Open("state.pax")
//	tree, err := r.ReadTree()
//	r.Close()
package container
