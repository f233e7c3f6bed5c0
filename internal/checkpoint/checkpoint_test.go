package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nirum/pax/internal/container"
	"github.com/nirum/pax/internal/pytree"
	"github.com/nirum/pax/internal/tensor"
)

func arr(t *testing.T, data ...float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(data, tensor.Shape{len(data)})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func roundTrip(t *testing.T, tree *pytree.Node) *pytree.Node {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ckpt.pax")
	if err := Save(path, tree); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return got
}

// TestRoundTripShapes covers each container shape and a bare array.
func TestRoundTripShapes(t *testing.T) {
	eye, err := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		tree *pytree.Node
	}{
		{"bare array", pytree.Array(eye)},
		{"dict", pytree.Dict(
			pytree.Entry{Key: "w", Value: pytree.Array(eye)},
			pytree.Entry{Key: "b", Value: pytree.Array(arr(t, 0.5))},
		)},
		{"list", pytree.List(pytree.Array(arr(t, 1)), pytree.Array(arr(t, 2)))},
		{"tuple", pytree.Tuple(pytree.Array(arr(t, 1)), pytree.Array(arr(t, 2)))},
		{"record", pytree.Record("OptState",
			pytree.Entry{Key: "mu", Value: pytree.Array(arr(t, 0.9))},
			pytree.Entry{Key: "nu", Value: pytree.Array(arr(t, 0.999))},
		)},
		{"empty dict", pytree.Dict()},
		{"empty list", pytree.List()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.tree)
			if !pytree.Equal(tt.tree, got) {
				t.Error("Round trip should reproduce the tree exactly")
			}
		})
	}
}

// TestRoundTripNested runs a dict of lists of records of arrays
// (recursion depth 3 with mixed shapes).
func TestRoundTripNested(t *testing.T) {
	layer := func(i float32) *pytree.Node {
		return pytree.Record("Layer",
			pytree.Entry{Key: "weight", Value: pytree.Array(arr(t, i, i+1))},
			pytree.Entry{Key: "bias", Value: pytree.Array(arr(t, -i))},
		)
	}
	tree := pytree.Dict(
		pytree.Entry{Key: "layers", Value: pytree.List(layer(1), layer(3), layer(5))},
		pytree.Entry{Key: "step", Value: pytree.Array(arr(t, 100))},
	)

	got := roundTrip(t, tree)
	if !pytree.Equal(tree, got) {
		t.Error("Nested round trip should reproduce the tree exactly")
	}

	// Tuple and list stay distinct shapes.
	layers, _ := got.Get("layers")
	if layers.Kind() != pytree.KindList {
		t.Errorf("Expected list, got %s", layers.Kind())
	}
	if layers.At(1).TypeName() != "Layer" {
		t.Errorf("Expected record Layer, got %q", layers.At(1).TypeName())
	}
}

// TestListOrderIgnoresPhysicalOrder writes arr{i} children physically
// out of order and expects Load to sort by numeric suffix.
func TestListOrderIgnoresPhysicalOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shuffled.pax")

	root := container.NewRoot()
	g, err := root.AddGroup("pytree")
	if err != nil {
		t.Fatal(err)
	}
	g.SetAttr("type", "list")
	// Physical insertion order: arr2, arr0, arr10, arr1.
	for _, e := range []struct {
		name  string
		value float32
	}{
		{"arr2", 2}, {"arr0", 0}, {"arr10", 10}, {"arr1", 1},
	} {
		if _, err := g.AddDataset(e.name, arr(t, e.value)); err != nil {
			t.Fatal(err)
		}
	}

	w, err := container.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTree(root); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Numeric sort: 0, 1, 2, 10 — not the lexicographic 0, 1, 10, 2.
	want := []float32{0, 1, 2, 10}
	if got.Len() != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), got.Len())
	}
	for i, v := range want {
		if data := got.At(i).Array().AsFloat32(); data[0] != v {
			t.Errorf("Item %d: expected %f, got %f", i, v, data[0])
		}
	}
}

// TestRecordFieldOrderFromFile verifies stored field order is kept for
// unregistered record types and remapped for registered ones.
func TestRecordFieldOrderFromFile(t *testing.T) {
	tree := pytree.Record("Pair",
		pytree.Entry{Key: "y", Value: pytree.Array(arr(t, 2))},
		pytree.Entry{Key: "x", Value: pytree.Array(arr(t, 1))},
	)
	got := roundTrip(t, tree)
	if keys := got.Keys(); keys[0] != "y" || keys[1] != "x" {
		t.Errorf("Expected stored order [y x], got %v", keys)
	}

	pytree.RegisterRecord("BoundPair", []string{"x", "y"})
	bound := pytree.Record("BoundPair",
		pytree.Entry{Key: "y", Value: pytree.Array(arr(t, 2))},
		pytree.Entry{Key: "x", Value: pytree.Array(arr(t, 1))},
	)
	got = roundTrip(t, bound)
	if keys := got.Keys(); keys[0] != "x" || keys[1] != "y" {
		t.Errorf("Expected declared order [x y], got %v", keys)
	}
}

// TestSaveRejectsInvalidNode aborts on nodes outside the four shapes.
func TestSaveRejectsInvalidNode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pax")

	var bad pytree.Node
	tree := pytree.Dict(pytree.Entry{Key: "oops", Value: &bad})

	err := Save(path, tree)
	var unsupported *pytree.UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedTypeError, got %v", err)
	}
}

// TestSaveRejectsUnloadableKeys refuses dict keys and record fields
// the reader's name rules would reject, instead of writing a file the
// module itself cannot load back.
func TestSaveRejectsUnloadableKeys(t *testing.T) {
	tests := []struct {
		name string
		tree *pytree.Node
	}{
		{"dict key with slash", pytree.Dict(
			pytree.Entry{Key: "a/b", Value: pytree.Array(arr(t, 1))},
		)},
		{"empty dict key", pytree.Dict(
			pytree.Entry{Key: "", Value: pytree.Array(arr(t, 1))},
		)},
		{"record field with slash", pytree.Record("State",
			pytree.Entry{Key: "mu/nu", Value: pytree.Array(arr(t, 1))},
		)},
		{"nested bad key", pytree.Dict(
			pytree.Entry{Key: "ok", Value: pytree.Dict(
				pytree.Entry{Key: "", Value: pytree.Array(arr(t, 1))},
			)},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.pax")
			err := Save(path, tt.tree)
			if !errors.Is(err, container.ErrInvalidNodeName) {
				t.Fatalf("Expected ErrInvalidNodeName, got %v", err)
			}
			if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
				t.Errorf("Rejected save must not create the file, stat: %v", statErr)
			}
		})
	}
}

// TestSaveRejectsReservedRecordName refuses record type names that
// collide with the container tags.
func TestSaveRejectsReservedRecordName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pax")

	for _, name := range []string{"dict", "list", "tuple", ""} {
		tree := pytree.Record(name, pytree.Entry{Key: "x", Value: pytree.Array(arr(t, 1))})
		if err := Save(path, tree); err == nil {
			t.Errorf("Expected error for record type name %q", name)
		}
	}
}

// TestLoadMissingRoot reports files without a pytree node.
func TestLoadMissingRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "norot.pax")

	root := container.NewRoot()
	g, err := root.AddGroup("something_else")
	if err != nil {
		t.Fatal(err)
	}
	g.SetAttr("type", "dict")

	w, err := container.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTree(root); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrMissingRoot) {
		t.Errorf("Expected ErrMissingRoot, got %v", err)
	}
}

// TestLoadMissingTypeAttr reports groups without the type tag.
func TestLoadMissingTypeAttr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untyped.pax")

	root := container.NewRoot()
	if _, err := root.AddGroup("pytree"); err != nil {
		t.Fatal(err)
	}

	w, err := container.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTree(root); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrMissingTypeAttr) {
		t.Errorf("Expected ErrMissingTypeAttr, got %v", err)
	}
}

// TestLoadBadIndexName reports list groups with misnamed children.
func TestLoadBadIndexName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badindex.pax")

	root := container.NewRoot()
	g, err := root.AddGroup("pytree")
	if err != nil {
		t.Fatal(err)
	}
	g.SetAttr("type", "list")
	if _, err := g.AddDataset("weights", arr(t, 1)); err != nil {
		t.Fatal(err)
	}

	w, err := container.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTree(root); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrBadIndexName) {
		t.Errorf("Expected ErrBadIndexName, got %v", err)
	}
}

// deviceStub pretends to hold a device-resident array.
type deviceStub struct {
	raw *tensor.RawTensor
}

func (s *deviceStub) Realize() (*tensor.RawTensor, error) {
	return s.raw, nil
}

// TestSaveDrainsDeferredLeaves verifies deferred arrays are realized
// before writing.
func TestSaveDrainsDeferredLeaves(t *testing.T) {
	concrete := arr(t, 7, 8, 9)
	tree := pytree.Dict(
		pytree.Entry{Key: "gpu", Value: pytree.DeferredArray(&deviceStub{raw: concrete})},
	)

	got := roundTrip(t, tree)
	leaf, _ := got.Get("gpu")
	if !leaf.Array().Equal(concrete) {
		t.Error("Deferred leaf should round-trip through its realized values")
	}
}

// TestLoadMappedMatchesLoad verifies both load paths agree.
func TestLoadMappedMatchesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.pax")
	tree := pytree.Dict(
		pytree.Entry{Key: "w", Value: pytree.List(pytree.Array(arr(t, 1, 2, 3)))},
	)
	if err := Save(path, tree); err != nil {
		t.Fatal(err)
	}

	plain, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	mapped, err := LoadMapped(path)
	if err != nil {
		t.Fatalf("LoadMapped failed: %v", err)
	}

	if !pytree.Equal(plain, mapped) {
		t.Error("Load and LoadMapped should return identical trees")
	}
	if !pytree.Equal(tree, mapped) {
		t.Error("LoadMapped should reproduce the saved tree")
	}
}
