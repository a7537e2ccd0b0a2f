/*
	This file supports compression of chunk data.  Codec ids and the
	compressor metadata object follow the numcodecs convention so stores
	written here are readable by other Zarr v2 implementations.
*/

package zarr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compressor identifies the codec applied to each stored chunk plus its
// configuration.  A nil *Compressor in array metadata means chunks are
// stored raw.
type Compressor struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

func (c *Compressor) String() string {
	if c == nil {
		return "no compression"
	}
	return fmt.Sprintf("%s (level %d)", c.ID, c.Level)
}

// DefaultCompressor is used for new arrays unless metadata says otherwise.
var DefaultCompressor = &Compressor{ID: "gzip", Level: 5}

// encode compresses one chunk of raw bytes.
func (c *Compressor) encode(data []byte) ([]byte, error) {
	if c == nil {
		return data, nil
	}
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c.ID {
	case "gzip":
		w, err = gzip.NewWriterLevel(&buf, c.Level)
	case "zlib":
		w, err = zlib.NewWriterLevel(&buf, c.Level)
	case "zstd":
		w, err = zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.Level)))
	default:
		return nil, fmt.Errorf("unknown compressor id %q", c.ID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode decompresses one stored chunk.
func (c *Compressor) decode(data []byte) ([]byte, error) {
	if c == nil {
		return data, nil
	}
	var r io.ReadCloser
	var err error
	switch c.ID {
	case "gzip":
		r, err = gzip.NewReader(bytes.NewReader(data))
	case "zlib":
		r, err = zlib.NewReader(bytes.NewReader(data))
	case "zstd":
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(bytes.NewReader(data))
		if err == nil {
			r = zr.IOReadCloser()
		}
	default:
		return nil, fmt.Errorf("unknown compressor id %q", c.ID)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
