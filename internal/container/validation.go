package container

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nirum/pax/internal/tensor"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize  = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxNodeCount   = 100_000           // Maximum number of nodes in a file
	MaxNodeNameLen = 4096              // Maximum node name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default, recommended for production).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal performs basic structural checks only.
	ValidationNormal
	// ValidationNone skips validation (dangerous! Use only with trusted input).
	ValidationNone
)

// datasetExtent records one dataset's region of the data section for
// overlap detection.
type datasetExtent struct {
	path   string
	offset int64
	size   int64
}

// ValidateTree checks a parsed header tree against the structural
// invariants of the format. Malformed files could otherwise cause
// out-of-bounds reads or data leakage between datasets.
func ValidateTree(root *NodeMeta, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	count := 0
	var extents []datasetExtent
	if err := validateNode(root, "", dataSize, level, &count, &extents); err != nil {
		return err
	}

	if level == ValidationStrict {
		return validateExtents(extents)
	}
	return nil
}

// validateNode checks one node and recurses into its children.
func validateNode(meta *NodeMeta, path string, dataSize int64, level ValidationLevel, count *int, extents *[]datasetExtent) error {
	*count++
	if *count > MaxNodeCount {
		return &ValidationError{
			Type:    "too_many_nodes",
			Details: fmt.Sprintf("more than %d nodes", MaxNodeCount),
			Err:     ErrTooManyNodes,
		}
	}

	if len(meta.Name) > MaxNodeNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Node:    path,
			Details: fmt.Sprintf("length %d > max %d", len(meta.Name), MaxNodeNameLen),
			Err:     ErrNodeNameTooLong,
		}
	}
	if strings.ContainsRune(meta.Name, '/') {
		return &ValidationError{
			Type:    "invalid_name",
			Node:    path,
			Details: "node names must not contain '/'",
			Err:     ErrInvalidNodeName,
		}
	}
	if meta.Name == "" && path != "" {
		return &ValidationError{
			Type:    "invalid_name",
			Node:    path,
			Details: "only the root node may be unnamed",
			Err:     ErrInvalidNodeName,
		}
	}

	switch meta.Kind {
	case KindGroup:
		return validateGroup(meta, path, dataSize, level, count, extents)
	case KindDataset:
		return validateDataset(meta, path, dataSize, level, extents)
	default:
		return &ValidationError{
			Type:    "unknown_kind",
			Node:    path,
			Details: fmt.Sprintf("kind %q", meta.Kind),
		}
	}
}

func validateGroup(meta *NodeMeta, path string, dataSize int64, level ValidationLevel, count *int, extents *[]datasetExtent) error {
	if meta.DType != "" || len(meta.Shape) > 0 || meta.Offset != 0 || meta.Size != 0 {
		return &ValidationError{
			Type:    "group_with_data",
			Node:    path,
			Details: "group nodes must not carry dataset fields",
		}
	}

	seen := make(map[string]struct{}, len(meta.Children))
	for i := range meta.Children {
		child := &meta.Children[i]
		if _, dup := seen[child.Name]; dup {
			return &ValidationError{
				Type:    "duplicate_child",
				Node:    path,
				Details: fmt.Sprintf("child %q appears twice", child.Name),
			}
		}
		seen[child.Name] = struct{}{}

		if err := validateNode(child, path+"/"+child.Name, dataSize, level, count, extents); err != nil {
			return err
		}
	}
	return nil
}

func validateDataset(meta *NodeMeta, path string, dataSize int64, level ValidationLevel, extents *[]datasetExtent) error {
	if len(meta.Attrs) > 0 || len(meta.Children) > 0 {
		return &ValidationError{
			Type:    "dataset_with_structure",
			Node:    path,
			Details: "dataset nodes must not carry attributes or children",
		}
	}

	// Check for negative values (potential integer overflow attacks).
	if meta.Offset < 0 || meta.Size < 0 {
		return &ValidationError{
			Type:    "negative_offset",
			Node:    path,
			Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", meta.Offset, meta.Size),
			Err:     ErrNegativeOffset,
		}
	}

	// Check bounds - prevent reading beyond the data section.
	if meta.Offset+meta.Size > dataSize {
		return &ValidationError{
			Type:    "out_of_bounds",
			Node:    path,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", meta.Offset, meta.Size, dataSize),
			Err:     ErrOutOfBounds,
		}
	}

	if level == ValidationStrict {
		dtype, ok := stringToDtype(meta.DType)
		if !ok {
			return &ValidationError{
				Type:    "unknown_dtype",
				Node:    path,
				Details: fmt.Sprintf("dtype %q", meta.DType),
			}
		}
		shape := tensor.Shape(meta.Shape)
		if err := shape.Validate(); err != nil {
			return &ValidationError{
				Type:    "invalid_shape",
				Node:    path,
				Details: err.Error(),
			}
		}
		if want := int64(shape.NumElements() * dtype.Size()); want != meta.Size {
			return &ValidationError{
				Type:    "size_mismatch",
				Node:    path,
				Details: fmt.Sprintf("size %d, shape %v with dtype %s needs %d", meta.Size, meta.Shape, meta.DType, want),
			}
		}
	}

	*extents = append(*extents, datasetExtent{path: path, offset: meta.Offset, size: meta.Size})
	return nil
}

// validateExtents checks that no two datasets share bytes of the data
// section.
func validateExtents(extents []datasetExtent) error {
	sort.Slice(extents, func(i, j int) bool {
		return extents[i].offset < extents[j].offset
	})

	for i := 0; i < len(extents)-1; i++ {
		cur, next := extents[i], extents[i+1]
		if cur.offset+cur.size > next.offset {
			return &ValidationError{
				Type:  "offset_overlap",
				Node:  cur.path,
				Node2: next.path,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
					cur.offset, cur.offset+cur.size, next.offset, next.offset+next.size),
				Err: ErrOffsetOverlap,
			}
		}
	}
	return nil
}
