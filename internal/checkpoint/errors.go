package checkpoint

import "errors"

// Common errors.
var (
	ErrMissingRoot     = errors.New("no pytree root node in file")
	ErrMissingTypeAttr = errors.New("group node has no type attribute")
	ErrBadIndexName    = errors.New("list/tuple child is not named arr{index}")
)
