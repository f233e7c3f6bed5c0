package tensor

// Deferred is a handle to an array whose values are not yet resident
// in host memory: device buffers, lazily evaluated expressions, or any
// other placeholder that must be resolved before its bytes can be read.
//
// The save path realizes every Deferred leaf to a concrete RawTensor
// before anything is written.
type Deferred interface {
	// Realize resolves the handle to a concrete host-resident array.
	Realize() (*RawTensor, error)
}
