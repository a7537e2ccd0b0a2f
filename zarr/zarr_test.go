package zarr

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDtypeParsing(t *testing.T) {
	good := map[string]Dtype{
		"|u1": Uint8,
		"|i1": Int8,
		"|b1": Bool,
		"<u2": Uint16,
		"<i4": Int32,
		"<f4": Float32,
		"<f8": Float64,
		">u8": {'>', 'u', 8},
	}
	for s, want := range good {
		got, err := ParseDtype(s)
		if err != nil {
			t.Fatalf("ParseDtype(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseDtype(%q) = %v, want %v", s, got, want)
		}
		if got.String() != s {
			t.Errorf("Dtype %v String() = %q, want %q", got, got.String(), s)
		}
	}
	for _, s := range []string{"", "u1", "<x4", "|u8", "<f0", "?f4"} {
		if _, err := ParseDtype(s); err == nil {
			t.Errorf("ParseDtype(%q) should have failed", s)
		}
	}
}

func TestArrayRoundTrip(t *testing.T) {
	for _, compressor := range []*Compressor{
		nil,
		{ID: "gzip", Level: 5},
		{ID: "zlib", Level: 3},
		{ID: "zstd", Level: 3},
	} {
		dir := t.TempDir()
		arr, err := CreateArray(filepath.Join(dir, "labels"), &ArrayMeta{
			Shape:      []int{5, 6, 7},
			Chunks:     []int{4, 4, 4},
			Dtype:      Uint8,
			Compressor: compressor,
		})
		if err != nil {
			t.Fatalf("CreateArray with %s: %v", compressor, err)
		}

		data := make([]uint8, 5*6*7)
		for i := range data {
			data[i] = uint8(i % 251)
		}
		if err := arr.WriteUint8(data); err != nil {
			t.Fatalf("WriteUint8 with %s: %v", compressor, err)
		}

		reopened, err := OpenArray(arr.Path())
		if err != nil {
			t.Fatalf("OpenArray: %v", err)
		}
		got, err := reopened.ReadUint8()
		if err != nil {
			t.Fatalf("ReadUint8 with %s: %v", compressor, err)
		}
		if !reflect.DeepEqual(got, data) {
			t.Errorf("round trip with %s corrupted data", compressor)
		}
	}
}

func TestArrayFloat32RoundTrip(t *testing.T) {
	dir := t.TempDir()
	arr, err := CreateArray(filepath.Join(dir, "distances"), &ArrayMeta{
		Shape:      []int{3, 3, 3},
		Chunks:     []int{2, 2, 2},
		Dtype:      Float32,
		Compressor: DefaultCompressor,
	})
	if err != nil {
		t.Fatal(err)
	}
	data := make([]float32, 27)
	for i := range data {
		data[i] = float32(i) * 0.5
	}
	data[13] = float32(math.NaN())
	if err := arr.WriteFloat32(data); err != nil {
		t.Fatal(err)
	}
	got, err := arr.ReadFloat32()
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if math.IsNaN(float64(data[i])) {
			if !math.IsNaN(float64(got[i])) {
				t.Errorf("voxel %d: NaN did not survive round trip", i)
			}
			continue
		}
		if got[i] != data[i] {
			t.Errorf("voxel %d: got %f, want %f", i, got[i], data[i])
		}
	}
}

func TestUnwrittenChunksReadAsFill(t *testing.T) {
	dir := t.TempDir()
	arr, err := CreateArray(filepath.Join(dir, "sparse"), &ArrayMeta{
		Shape:     []int{4, 4},
		Chunks:    []int{2, 2},
		Dtype:     Uint8,
		FillValue: float64(7),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := arr.ReadUint8()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != 7 {
			t.Fatalf("voxel %d: got %d, want fill value 7", i, v)
		}
	}
}

func TestEdgeChunkPadding(t *testing.T) {
	dir := t.TempDir()
	arr, err := CreateArray(filepath.Join(dir, "edges"), &ArrayMeta{
		Shape:  []int{3, 5},
		Chunks: []int{2, 4},
		Dtype:  Uint8,
	})
	if err != nil {
		t.Fatal(err)
	}
	data := make([]uint8, 15)
	for i := range data {
		data[i] = uint8(i + 1)
	}
	if err := arr.WriteUint8(data); err != nil {
		t.Fatal(err)
	}

	// Every stored chunk must be full sized even at the array edge.
	for _, key := range []string{"0.0", "0.1", "1.0", "1.1"} {
		encoded, err := os.ReadFile(filepath.Join(arr.Path(), key))
		if err != nil {
			t.Fatalf("chunk %s missing: %v", key, err)
		}
		if len(encoded) != 8 {
			t.Errorf("raw chunk %s has %d bytes, want 8", key, len(encoded))
		}
	}

	got, err := arr.ReadUint8()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("edge chunk round trip: got %v, want %v", got, data)
	}
}

func TestNestedChunkKeys(t *testing.T) {
	dir := t.TempDir()
	arr, err := CreateArray(filepath.Join(dir, "nested"), &ArrayMeta{
		Shape:              []int{4, 4},
		Chunks:             []int{2, 2},
		Dtype:              Uint8,
		DimensionSeparator: "/",
	})
	if err != nil {
		t.Fatal(err)
	}
	data := make([]uint8, 16)
	for i := range data {
		data[i] = uint8(i)
	}
	if err := arr.WriteUint8(data); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(arr.Path(), "1", "1")); err != nil {
		t.Errorf("nested chunk key 1/1 not found: %v", err)
	}
	got, err := arr.ReadUint8()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("nested separator round trip corrupted data")
	}
}

func TestGroupHierarchy(t *testing.T) {
	dir := t.TempDir()
	root, err := CreateGroup(filepath.Join(dir, "store.zarr"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := root.CreateGroup("volume1", false); err != nil {
		t.Fatal(err)
	}
	volume2, err := root.CreateGroup("volume2", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := volume2.CreateArray("mito", &ArrayMeta{
		Shape:  []int{2, 2, 2},
		Chunks: []int{2, 2, 2},
		Dtype:  Uint8,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := root.CreateGroup("volume2", false); err == nil {
		t.Error("recreating a group without overwrite should fail")
	}
	recreated, err := root.CreateGroup("volume2", true)
	if err != nil {
		t.Fatalf("recreating a group with overwrite failed: %v", err)
	}
	if arrays, err := recreated.Arrays(); err != nil || len(arrays) != 0 {
		t.Errorf("overwrite should wipe prior contents, got arrays %v (err %v)", arrays, err)
	}

	groups, err := root.Groups()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(groups, []string{"volume1", "volume2"}) {
		t.Errorf("Groups() = %v, want [volume1 volume2]", groups)
	}

	volume1, err := root.OpenGroup("volume1")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"mito", "er"} {
		if _, err := volume1.CreateArray(name, &ArrayMeta{
			Shape:  []int{2, 2, 2},
			Chunks: []int{2, 2, 2},
			Dtype:  Uint8,
		}); err != nil {
			t.Fatal(err)
		}
	}
	arrays, err := volume1.Arrays()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(arrays, []string{"er", "mito"}) {
		t.Errorf("Arrays() = %v, want [er mito]", arrays)
	}

	if _, err := OpenGroup(filepath.Join(dir, "nonexistent")); err == nil {
		t.Error("opening a missing group should fail")
	}
}

func TestAttributesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	root, err := CreateGroup(filepath.Join(dir, "store.zarr"))
	if err != nil {
		t.Fatal(err)
	}
	attrs, err := root.Attributes()
	if err != nil {
		t.Fatal(err)
	}
	if len(attrs) != 0 {
		t.Errorf("new group should have no attributes, got %v", attrs)
	}
	want := Attributes{
		"format_version": "1.0.0",
		"voxel_size_nm":  []interface{}{float64(8), float64(8), float64(8)},
	}
	if err := root.SetAttributes(want); err != nil {
		t.Fatal(err)
	}
	got, err := root.Attributes()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("attributes round trip: got %v, want %v", got, want)
	}
}

func TestBadMetadata(t *testing.T) {
	dir := t.TempDir()
	bad := []*ArrayMeta{
		{Shape: []int{4}, Chunks: []int{2, 2}, Dtype: Uint8},
		{Shape: []int{4}, Chunks: []int{0}, Dtype: Uint8},
		{Shape: []int{4}, Chunks: []int{2}},
		{Shape: []int{4}, Chunks: []int{2}, Dtype: Uint8, Order: "F"},
		{Shape: []int{4}, Chunks: []int{2}, Dtype: Uint8, Compressor: &Compressor{ID: "blosc"}},
		{Shape: []int{4}, Chunks: []int{2}, Dtype: Uint8, DimensionSeparator: "-"},
	}
	for i, meta := range bad {
		if _, err := CreateArray(filepath.Join(dir, "bad"), meta); err == nil {
			t.Errorf("case %d: CreateArray should have rejected %+v", i, meta)
		}
	}
}

func TestWriteSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	arr, err := CreateArray(filepath.Join(dir, "labels"), &ArrayMeta{
		Shape:  []int{4, 4},
		Chunks: []int{2, 2},
		Dtype:  Uint8,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := arr.WriteUint8(make([]uint8, 15)); err == nil {
		t.Error("writing a short buffer should fail")
	}
}
