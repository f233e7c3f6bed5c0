// Copyright 2025 The pax authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the host-resident numeric
// arrays stored at pytree leaves.
//
// Example:
//
//	w, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3})
//	w.DType()       // tensor.Float32
//	w.AsFloat32()   // []float32{1, 2, 3}
package tensor

import (
	"github.com/nirum/pax/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for array element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType represents the underlying element type of an array.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of an array.
// Example: Shape{2, 3, 4} represents a 3D array with dimensions 2×3×4.
type Shape = tensor.Shape

// RawTensor is the host-resident array representation: a flat byte
// buffer interpreted according to its shape and element type.
type RawTensor = tensor.RawTensor

// Deferred is a handle to an array not yet resident in host memory
// (device buffers, lazy computations). The save path realizes all
// Deferred leaves before writing.
type Deferred = tensor.Deferred

// NewRaw creates a zero-initialized array with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromSlice creates an array from a flat slice of elements. The
// element count must match the shape's element count exactly.
//
// Example:
//
//	eye, _ := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}
