/*
	This file holds whole-array chunked I/O.  Arrays are read and written
	as flat C-order buffers; the chunk grid is encoded and decoded in
	parallel with edge chunks padded by the fill value.
*/

package zarr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
)

// Array is a chunked n-dimensional array within a directory store.
type Array struct {
	path string
	meta ArrayMeta
	fill []byte // one element of fill value, len == Dtype.ItemSize
}

// CreateArray creates a new array at the given directory path.  Zero-value
// metadata fields are defaulted: format version and C order.  A nil
// Compressor means chunks are stored raw.
func CreateArray(path string, meta *ArrayMeta) (*Array, error) {
	m := *meta
	if m.ZarrFormat == 0 {
		m.ZarrFormat = FormatVersion
	}
	if m.Order == "" {
		m.Order = "C"
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("bad array metadata for %s: %v", path, err)
	}
	metaPath := filepath.Join(path, arrayMetaKey)
	if _, err := os.Stat(metaPath); err == nil {
		return nil, fmt.Errorf("array already exists at %s", path)
	}
	fill, err := fillBytes(m.Dtype, m.FillValue)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(metaPath, &m); err != nil {
		return nil, err
	}
	return &Array{path: path, meta: m, fill: fill}, nil
}

// OpenArray opens an existing array, failing if no ".zarray" key is found.
func OpenArray(path string) (*Array, error) {
	var meta ArrayMeta
	if err := readJSON(filepath.Join(path, arrayMetaKey), &meta); err != nil {
		return nil, fmt.Errorf("no zarr array at %s: %v", path, err)
	}
	if err := meta.validate(); err != nil {
		return nil, fmt.Errorf("bad array metadata at %s: %v", path, err)
	}
	fill, err := fillBytes(meta.Dtype, meta.FillValue)
	if err != nil {
		return nil, err
	}
	return &Array{path: path, meta: meta, fill: fill}, nil
}

// Path returns the directory path of this array.
func (a *Array) Path() string {
	return a.path
}

// Shape returns the array extents per dimension.
func (a *Array) Shape() []int {
	return append([]int(nil), a.meta.Shape...)
}

// ChunkShape returns the chunk extents per dimension.
func (a *Array) ChunkShape() []int {
	return append([]int(nil), a.meta.Chunks...)
}

// Dtype returns the element type.
func (a *Array) Dtype() Dtype {
	return a.meta.Dtype
}

// Compressor returns the chunk codec, possibly nil for raw chunks.
func (a *Array) Compressor() *Compressor {
	return a.meta.Compressor
}

// Attributes returns the array's userland metadata.
func (a *Array) Attributes() (Attributes, error) {
	attrs := Attributes{}
	attrsPath := filepath.Join(a.path, attrsKey)
	if _, err := os.Stat(attrsPath); os.IsNotExist(err) {
		return attrs, nil
	}
	if err := readJSON(attrsPath, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// SetAttributes replaces the array's userland metadata.
func (a *Array) SetAttributes(attrs Attributes) error {
	return writeJSON(filepath.Join(a.path, attrsKey), attrs)
}

// Write stores a flat C-order buffer of raw element bytes as the full
// array contents.  Chunks are encoded and written in parallel.
func (a *Array) Write(data []byte) error {
	want := a.meta.NumElements() * int64(a.meta.Dtype.ItemSize)
	if int64(len(data)) != want {
		return fmt.Errorf("array %s expects %d bytes, got %d", a.path, want, len(data))
	}
	var g errgroup.Group
	g.SetLimit(numWorkers())
	for _, coord := range a.chunkCoords() {
		coord := coord
		g.Go(func() error {
			return a.writeChunk(data, coord)
		})
	}
	return g.Wait()
}

// Read returns the full array contents as a flat C-order buffer of raw
// element bytes.  Regions whose chunks have never been written read back
// as the fill value.
func (a *Array) Read() ([]byte, error) {
	out := make([]byte, a.meta.NumElements()*int64(a.meta.Dtype.ItemSize))
	if !isZero(a.fill) {
		tile(out, a.fill)
	}
	var g errgroup.Group
	g.SetLimit(numWorkers())
	for _, coord := range a.chunkCoords() {
		coord := coord
		g.Go(func() error {
			return a.readChunk(out, coord)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteUint8 stores single-byte element data.
func (a *Array) WriteUint8(data []uint8) error {
	if a.meta.Dtype.ItemSize != 1 {
		return fmt.Errorf("array %s has dtype %s, not a single-byte type", a.path, a.meta.Dtype)
	}
	return a.Write(data)
}

// ReadUint8 returns single-byte element data.
func (a *Array) ReadUint8() ([]uint8, error) {
	if a.meta.Dtype.ItemSize != 1 {
		return nil, fmt.Errorf("array %s has dtype %s, not a single-byte type", a.path, a.meta.Dtype)
	}
	return a.Read()
}

// WriteFloat32 stores float32 element data.
func (a *Array) WriteFloat32(data []float32) error {
	if a.meta.Dtype.Kind != 'f' || a.meta.Dtype.ItemSize != 4 {
		return fmt.Errorf("array %s has dtype %s, not float32", a.path, a.meta.Dtype)
	}
	var buf bytes.Buffer
	buf.Grow(len(data) * 4)
	if err := binary.Write(&buf, a.meta.Dtype.Order(), data); err != nil {
		return err
	}
	return a.Write(buf.Bytes())
}

// ReadFloat32 returns float32 element data.
func (a *Array) ReadFloat32() ([]float32, error) {
	if a.meta.Dtype.Kind != 'f' || a.meta.Dtype.ItemSize != 4 {
		return nil, fmt.Errorf("array %s has dtype %s, not float32", a.path, a.meta.Dtype)
	}
	raw, err := a.Read()
	if err != nil {
		return nil, err
	}
	data := make([]float32, len(raw)/4)
	if err := binary.Read(bytes.NewReader(raw), a.meta.Dtype.Order(), data); err != nil {
		return nil, err
	}
	return data, nil
}

// --- chunk grid ---

// chunkCoords enumerates every chunk coordinate in the grid.
func (a *Array) chunkCoords() [][]int {
	n := len(a.meta.Shape)
	grid := make([]int, n)
	total := 1
	for d := range grid {
		grid[d] = (a.meta.Shape[d] + a.meta.Chunks[d] - 1) / a.meta.Chunks[d]
		total *= grid[d]
	}
	if total == 0 {
		return nil
	}
	coords := make([][]int, 0, total)
	coord := make([]int, n)
	for {
		coords = append(coords, append([]int(nil), coord...))
		d := n - 1
		for ; d >= 0; d-- {
			coord[d]++
			if coord[d] < grid[d] {
				break
			}
			coord[d] = 0
		}
		if d < 0 {
			break
		}
	}
	return coords
}

// chunkFile returns the file path for a chunk coordinate, honoring the
// dimension separator.
func (a *Array) chunkFile(coord []int) string {
	parts := make([]string, len(coord))
	for d, c := range coord {
		parts[d] = strconv.Itoa(c)
	}
	if a.meta.separator() == "/" {
		return filepath.Join(append([]string{a.path}, parts...)...)
	}
	return filepath.Join(a.path, strings.Join(parts, "."))
}

// overlap returns the array-space extents [lo, hi) covered by a chunk.
func (a *Array) overlap(coord []int) (lo, hi []int) {
	n := len(coord)
	lo = make([]int, n)
	hi = make([]int, n)
	for d := range coord {
		lo[d] = coord[d] * a.meta.Chunks[d]
		hi[d] = lo[d] + a.meta.Chunks[d]
		if hi[d] > a.meta.Shape[d] {
			hi[d] = a.meta.Shape[d]
		}
	}
	return
}

// byteStrides returns per-dimension strides in bytes for a C-order layout
// of the given extents.
func byteStrides(extents []int, itemsize int) []int {
	n := len(extents)
	strides := make([]int, n)
	strides[n-1] = itemsize
	for d := n - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * extents[d+1]
	}
	return strides
}

// copyRows copies the contiguous runs along the last dimension between a
// flat array buffer and a flat chunk buffer for the chunk region [lo, hi).
// toChunk selects the copy direction.
func (a *Array) copyRows(array, chunk []byte, lo, hi []int, toChunk bool) {
	n := len(a.meta.Shape)
	itemsize := a.meta.Dtype.ItemSize
	arrStrides := byteStrides(a.meta.Shape, itemsize)
	chStrides := byteStrides(a.meta.Chunks, itemsize)
	rowLen := (hi[n-1] - lo[n-1]) * itemsize
	if rowLen == 0 {
		return
	}
	idx := append([]int(nil), lo...)
	for {
		arrOff := lo[n-1] * itemsize
		chOff := 0
		for d := 0; d < n-1; d++ {
			arrOff += idx[d] * arrStrides[d]
			chOff += (idx[d] - lo[d]) * chStrides[d]
		}
		if toChunk {
			copy(chunk[chOff:chOff+rowLen], array[arrOff:arrOff+rowLen])
		} else {
			copy(array[arrOff:arrOff+rowLen], chunk[chOff:chOff+rowLen])
		}
		d := n - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < hi[d] {
				break
			}
			idx[d] = lo[d]
		}
		if d < 0 {
			break
		}
	}
}

func (a *Array) chunkBytes() int {
	n := a.meta.Dtype.ItemSize
	for _, c := range a.meta.Chunks {
		n *= c
	}
	return n
}

func (a *Array) writeChunk(data []byte, coord []int) error {
	buf := make([]byte, a.chunkBytes())
	if !isZero(a.fill) {
		tile(buf, a.fill)
	}
	lo, hi := a.overlap(coord)
	a.copyRows(data, buf, lo, hi, true)
	encoded, err := a.meta.Compressor.encode(buf)
	if err != nil {
		return fmt.Errorf("encoding chunk %v of %s: %v", coord, a.path, err)
	}
	chunkPath := a.chunkFile(coord)
	if err := os.MkdirAll(filepath.Dir(chunkPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(chunkPath, encoded, 0644)
}

func (a *Array) readChunk(out []byte, coord []int) error {
	encoded, err := os.ReadFile(a.chunkFile(coord))
	if os.IsNotExist(err) {
		return nil // fill value region
	}
	if err != nil {
		return err
	}
	buf, err := a.meta.Compressor.decode(encoded)
	if err != nil {
		return fmt.Errorf("decoding chunk %v of %s: %v", coord, a.path, err)
	}
	if len(buf) != a.chunkBytes() {
		return fmt.Errorf("chunk %v of %s decoded to %d bytes, expected %d",
			coord, a.path, len(buf), a.chunkBytes())
	}
	lo, hi := a.overlap(coord)
	a.copyRows(out, buf, lo, hi, false)
	return nil
}

// --- small helpers ---

func numWorkers() int {
	if cmeval.NumCPU < 1 {
		return 1
	}
	return cmeval.NumCPU
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// tile repeats a single-element byte pattern across a buffer.
func tile(buf, pattern []byte) {
	for off := 0; off < len(buf); off += len(pattern) {
		copy(buf[off:], pattern)
	}
}
