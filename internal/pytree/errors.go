package pytree

import "fmt"

// UnsupportedTypeError reports a value that is neither an array leaf
// nor one of the four recognized container shapes. Saving such a tree
// aborts immediately.
type UnsupportedTypeError struct {
	Value any
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	if n, ok := e.Value.(*Node); ok {
		return fmt.Sprintf("pytree: unsupported node (kind %s)", n.Kind())
	}
	return fmt.Sprintf("pytree: unsupported type %T", e.Value)
}
