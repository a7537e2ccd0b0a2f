package zarr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FormatVersion is the Zarr storage specification version this package
// reads and writes.
const FormatVersion = 2

// Keys for metadata documents within a store, per the Zarr v2 spec.
const (
	arrayMetaKey = ".zarray"
	groupMetaKey = ".zgroup"
	attrsKey     = ".zattrs"
)

// Attributes holds userland metadata stored under the ".zattrs" key.
type Attributes map[string]interface{}

type groupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// ArrayMeta is the essential configuration metadata of an array, stored as
// JSON under the ".zarray" key.
type ArrayMeta struct {
	// ZarrFormat is the storage specification version, always 2 here.
	ZarrFormat int `json:"zarr_format"`

	// Shape gives the length of each dimension of the array.
	Shape []int `json:"shape"`

	// Chunks gives the length of each dimension of a chunk.  All chunks
	// within an array share this shape; edge chunks are padded with the
	// fill value.
	Chunks []int `json:"chunks"`

	// Dtype is the element type in NumPy typestr format.
	Dtype Dtype `json:"dtype"`

	// Compressor names the chunk codec, or null for raw chunks.
	Compressor *Compressor `json:"compressor"`

	// FillValue is the default value for uninitialized regions.
	FillValue interface{} `json:"fill_value"`

	// Order is the memory layout within each chunk.  Only "C" (row-major,
	// last dimension varies fastest) is supported.
	Order string `json:"order"`

	// Filters would name additional codecs; none are supported.
	Filters []json.RawMessage `json:"filters"`

	// DimensionSeparator is "." or "/", the separator between chunk
	// indices in chunk keys.  Defaults to "." when empty.
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

// separator returns the effective dimension separator.
func (m *ArrayMeta) separator() string {
	if m.DimensionSeparator == "/" {
		return "/"
	}
	return "."
}

// NumElements returns the total number of elements given the array shape.
func (m *ArrayMeta) NumElements() int64 {
	n := int64(1)
	for _, d := range m.Shape {
		n *= int64(d)
	}
	return n
}

func (m *ArrayMeta) validate() error {
	if m.ZarrFormat != FormatVersion {
		return fmt.Errorf("unsupported zarr_format %d", m.ZarrFormat)
	}
	if len(m.Shape) == 0 {
		return fmt.Errorf("array shape must have at least one dimension")
	}
	if len(m.Chunks) != len(m.Shape) {
		return fmt.Errorf("chunk shape %v does not match array dimensionality %v", m.Chunks, m.Shape)
	}
	for d := range m.Shape {
		if m.Shape[d] < 0 || m.Chunks[d] <= 0 {
			return fmt.Errorf("bad extents: shape %v, chunks %v", m.Shape, m.Chunks)
		}
	}
	if m.Dtype.ItemSize == 0 {
		return fmt.Errorf("array metadata has no dtype")
	}
	if m.Order != "C" {
		return fmt.Errorf("unsupported chunk order %q, only C order is supported", m.Order)
	}
	if len(m.Filters) != 0 {
		return fmt.Errorf("codec filters are not supported")
	}
	if m.DimensionSeparator != "" && m.DimensionSeparator != "." && m.DimensionSeparator != "/" {
		return fmt.Errorf("bad dimension separator %q", m.DimensionSeparator)
	}
	if m.Compressor != nil {
		switch m.Compressor.ID {
		case "gzip", "zlib", "zstd":
		default:
			return fmt.Errorf("unknown compressor id %q", m.Compressor.ID)
		}
	}
	return nil
}

// readJSON decodes a metadata document from a file within a store.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON encodes a metadata document into a file within a store.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
