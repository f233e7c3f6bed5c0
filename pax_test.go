package pax_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirum/pax"
	"github.com/nirum/pax/pytree"
	"github.com/nirum/pax/tensor"
)

// TestSaveLoadModelParams round-trips a typical parameter tree: a dict
// holding a list of weight arrays and a bias vector.
func TestSaveLoadModelParams(t *testing.T) {
	w0, err := tensor.FromSlice([]int64{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	w1, err := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float64{0.5}, tensor.Shape{1})
	require.NoError(t, err)

	params := pytree.Dict(
		pytree.Entry{Key: "w", Value: pytree.List(pytree.Array(w0), pytree.Array(w1))},
		pytree.Entry{Key: "b", Value: pytree.Array(b)},
	)

	path := filepath.Join(t.TempDir(), "params.pax")
	require.NoError(t, pax.Save(path, params))

	got, err := pax.Load(path)
	require.NoError(t, err)
	require.True(t, pytree.Equal(params, got), "round trip should be exact")

	// Dtypes and shapes come back verbatim.
	weights, ok := got.Get("w")
	require.True(t, ok)
	assert.Equal(t, pytree.KindList, weights.Kind())
	assert.Equal(t, tensor.Int64, weights.At(0).Array().DType())
	assert.Equal(t, tensor.Shape{2, 2}, weights.At(1).Array().Shape())

	bias, ok := got.Get("b")
	require.True(t, ok)
	assert.Equal(t, tensor.Float64, bias.Array().DType())
	assert.Equal(t, []float64{0.5}, bias.Array().AsFloat64())
}

// TestRecordSchemaFidelity saves a labeled tuple with fields (x, y)
// and expects the loaded record to expose exactly those fields, in
// order, under the original type name.
func TestRecordSchemaFidelity(t *testing.T) {
	x, err := tensor.FromSlice([]float64{1.0}, tensor.Shape{1})
	require.NoError(t, err)
	y, err := tensor.FromSlice([]float64{2.0}, tensor.Shape{1})
	require.NoError(t, err)

	point := pytree.Record("Point2D",
		pytree.Entry{Key: "x", Value: pytree.Array(x)},
		pytree.Entry{Key: "y", Value: pytree.Array(y)},
	)

	path := filepath.Join(t.TempDir(), "point.pax")
	require.NoError(t, pax.Save(path, point))

	got, err := pax.Load(path)
	require.NoError(t, err)

	assert.Equal(t, pytree.KindRecord, got.Kind())
	assert.Equal(t, "Point2D", got.TypeName())
	assert.Equal(t, []string{"x", "y"}, got.Keys())

	gx, ok := got.Get("x")
	require.True(t, ok)
	assert.Equal(t, []float64{1.0}, gx.Array().AsFloat64())
	gy, ok := got.Get("y")
	require.True(t, ok)
	assert.Equal(t, []float64{2.0}, gy.Array().AsFloat64())
}

// TestTupleAndListStayDistinct verifies both shapes survive as
// themselves, not as each other.
func TestTupleAndListStayDistinct(t *testing.T) {
	a, err := tensor.FromSlice([]float32{1}, tensor.Shape{1})
	require.NoError(t, err)

	tree := pytree.Dict(
		pytree.Entry{Key: "l", Value: pytree.List(pytree.Array(a))},
		pytree.Entry{Key: "t", Value: pytree.Tuple(pytree.Array(a))},
	)

	path := filepath.Join(t.TempDir(), "shapes.pax")
	require.NoError(t, pax.Save(path, tree))

	got, err := pax.Load(path)
	require.NoError(t, err)

	l, _ := got.Get("l")
	tp, _ := got.Get("t")
	assert.Equal(t, pytree.KindList, l.Kind())
	assert.Equal(t, pytree.KindTuple, tp.Kind())
}

// TestUnsupportedValueRejected verifies dynamic trees holding a plain
// string fail with UnsupportedTypeError instead of being coerced.
func TestUnsupportedValueRejected(t *testing.T) {
	_, err := pytree.FromValue(map[string]any{"note": "plain strings are not pytrees"})
	require.Error(t, err)

	var unsupported *pytree.UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
}

// TestSaveRejectsInvalidKeys verifies keys the format cannot store
// fail the save up front rather than producing an unloadable file.
func TestSaveRejectsInvalidKeys(t *testing.T) {
	a, err := tensor.FromSlice([]float32{1}, tensor.Shape{1})
	require.NoError(t, err)

	for _, key := range []string{"a/b", ""} {
		path := filepath.Join(t.TempDir(), "bad.pax")
		tree := pytree.Dict(pytree.Entry{Key: key, Value: pytree.Array(a)})

		err := pax.Save(path, tree)
		require.ErrorIs(t, err, pax.ErrInvalidKey, "key %q", key)
		assert.NoFileExists(t, path)
	}
}

// TestOverwriteReplacesFile saves twice to the same path and expects
// only the second tree afterwards.
func TestOverwriteReplacesFile(t *testing.T) {
	big, err := tensor.FromSlice(make([]float32, 1024), tensor.Shape{32, 32})
	require.NoError(t, err)
	small, err := tensor.FromSlice([]float32{1}, tensor.Shape{1})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.pax")
	require.NoError(t, pax.Save(path, pytree.Dict(pytree.Entry{Key: "old", Value: pytree.Array(big)})))
	require.NoError(t, pax.Save(path, pytree.Dict(pytree.Entry{Key: "new", Value: pytree.Array(small)})))

	got, err := pax.Load(path)
	require.NoError(t, err)

	_, hasOld := got.Get("old")
	assert.False(t, hasOld)
	_, hasNew := got.Get("new")
	assert.True(t, hasNew)
}

// TestLoadMapped verifies the memory-mapped load path returns the same
// tree as the plain one.
func TestLoadMapped(t *testing.T) {
	w, err := tensor.FromSlice([]float32{3, 1, 4, 1, 5, 9}, tensor.Shape{2, 3})
	require.NoError(t, err)

	tree := pytree.Tuple(pytree.Array(w), pytree.Dict())

	path := filepath.Join(t.TempDir(), "mapped.pax")
	require.NoError(t, pax.Save(path, tree))

	plain, err := pax.Load(path)
	require.NoError(t, err)
	mapped, err := pax.LoadMapped(path)
	require.NoError(t, err)

	assert.True(t, pytree.Equal(plain, mapped))
	assert.True(t, pytree.Equal(tree, mapped))
}
