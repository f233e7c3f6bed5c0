package container

import (
	"github.com/nirum/pax/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "PAXT"
	FormatVersion   = 1    // v1: CBOR node tree header, SHA-256 checksum
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	HeaderAlignment = 64   // Align dataset payload to 64 bytes
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Node kind tags stored in the header.
const (
	KindGroup   = "group"
	KindDataset = "dataset"
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
	DTypeInt32   = "int32"
	DTypeInt64   = "int64"
	DTypeUint8   = "uint8"
	DTypeBool    = "bool"
)

// NodeMeta is one node of the header tree. Groups carry Attrs and
// Children; datasets carry DType, Shape, Offset, and Size. The root
// node is an unnamed group.
type NodeMeta struct {
	Name     string            `cbor:"name"`
	Kind     string            `cbor:"kind"`
	Attrs    map[string]string `cbor:"attrs,omitempty"`
	Children []NodeMeta        `cbor:"children,omitempty"`
	DType    string            `cbor:"dtype,omitempty"`
	Shape    []int             `cbor:"shape,omitempty"`
	Offset   int64             `cbor:"offset,omitempty"`
	Size     int64             `cbor:"size,omitempty"`
}

// dtypeToString converts tensor.DataType to its string representation.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	case tensor.Int32:
		return DTypeInt32
	case tensor.Int64:
		return DTypeInt64
	case tensor.Uint8:
		return DTypeUint8
	case tensor.Bool:
		return DTypeBool
	default:
		return "unknown"
	}
}

// stringToDtype converts a string representation to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	case DTypeInt32:
		return tensor.Int32, true
	case DTypeInt64:
		return tensor.Int64, true
	case DTypeUint8:
		return tensor.Uint8, true
	case DTypeBool:
		return tensor.Bool, true
	default:
		return 0, false
	}
}
