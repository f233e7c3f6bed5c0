package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Writer writes a container tree to a .pax file. An existing file at
// the same path is replaced.
type Writer struct {
	file   *os.File
	closed bool
}

// Create creates a new container file writer at path.
func Create(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpointing
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{
		file:   file,
		closed: false,
	}, nil
}

// WriteTree serializes the node tree rooted at root into the file:
// fixed header with checksum, CBOR node metadata, alignment padding,
// then the dataset payload in depth-first order.
func (w *Writer) WriteTree(root *Group) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	// Flatten datasets into the payload, recording offsets in the
	// metadata tree along the way.
	var payload bytes.Buffer
	meta, err := buildMeta(root, &payload)
	if err != nil {
		return err
	}

	headerBytes, err := encMode.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if uint64(len(headerBytes)) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	checksum := ComputeChecksum(payload.Bytes())

	// Fixed header (64 bytes).
	fixed := make([]byte, FixedHeaderSize)

	// 0x00-0x03: Magic bytes "PAXT"
	copy(fixed[0:4], MagicBytes)

	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))

	// 0x08-0x0B: Flags (none defined for v1)
	// 0x0C-0x0F: Reserved
	// Already zero from make()

	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerBytes)))

	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(payload.Len()))

	// 0x20-0x3F: SHA-256 checksum of the data section
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.file.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}

	if _, err := w.file.Write(headerBytes); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad so the data section starts on a 64-byte boundary.
	currentPos := int64(FixedHeaderSize) + int64(len(headerBytes))
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("failed to write dataset payload: %w", err)
	}

	return nil
}

// buildMeta recursively converts a Group into its header metadata,
// appending every dataset's bytes to the payload and recording the
// resulting offsets.
func buildMeta(g *Group, payload *bytes.Buffer) (NodeMeta, error) {
	meta := NodeMeta{
		Name: g.name,
		Kind: KindGroup,
	}
	if len(g.attrs) > 0 {
		meta.Attrs = g.attrs
	}

	for _, child := range g.Children() {
		switch c := child.(type) {
		case *Group:
			childMeta, err := buildMeta(c, payload)
			if err != nil {
				return NodeMeta{}, err
			}
			meta.Children = append(meta.Children, childMeta)

		case *Dataset:
			raw := c.raw
			if raw == nil {
				return NodeMeta{}, fmt.Errorf("dataset %q holds no array", c.name)
			}
			offset := int64(payload.Len())
			payload.Write(raw.Data())
			meta.Children = append(meta.Children, NodeMeta{
				Name:   c.name,
				Kind:   KindDataset,
				DType:  dtypeToString(raw.DType()),
				Shape:  []int(raw.Shape()),
				Offset: offset,
				Size:   int64(raw.ByteSize()),
			})

		default:
			return NodeMeta{}, fmt.Errorf("unknown node type %T", child)
		}
	}

	return meta, nil
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
