package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Dtype describes an array element type using the NumPy typestr convention:
// a byte order character ('<' little-endian, '>' big-endian, '|' not
// relevant), a kind character ('b' boolean, 'i' signed integer, 'u' unsigned
// integer, 'f' floating point), and the element size in bytes.
type Dtype struct {
	ByteOrder byte
	Kind      byte
	ItemSize  int
}

var (
	Bool    = Dtype{'|', 'b', 1}
	Int8    = Dtype{'|', 'i', 1}
	Uint8   = Dtype{'|', 'u', 1}
	Int16   = Dtype{'<', 'i', 2}
	Uint16  = Dtype{'<', 'u', 2}
	Int32   = Dtype{'<', 'i', 4}
	Uint32  = Dtype{'<', 'u', 4}
	Int64   = Dtype{'<', 'i', 8}
	Uint64  = Dtype{'<', 'u', 8}
	Float32 = Dtype{'<', 'f', 4}
	Float64 = Dtype{'<', 'f', 8}
)

// ParseDtype decodes a typestr like "|u1" or "<f4" into a Dtype.
func ParseDtype(s string) (Dtype, error) {
	var d Dtype
	if len(s) < 3 {
		return d, fmt.Errorf("invalid dtype %q: too short", s)
	}
	switch s[0] {
	case '<', '>', '|':
		d.ByteOrder = s[0]
	default:
		return d, fmt.Errorf("invalid dtype %q: unknown byte order %q", s, s[0])
	}
	switch s[1] {
	case 'b', 'i', 'u', 'f':
		d.Kind = s[1]
	default:
		return d, fmt.Errorf("unsupported dtype kind %q in %q", s[1], s)
	}
	size, err := strconv.Atoi(s[2:])
	if err != nil || size <= 0 {
		return d, fmt.Errorf("invalid dtype %q: bad item size", s)
	}
	d.ItemSize = size
	if d.ItemSize == 1 && d.ByteOrder != '|' {
		d.ByteOrder = '|'
	}
	if d.ItemSize > 1 && d.ByteOrder == '|' {
		return d, fmt.Errorf("invalid dtype %q: multi-byte type needs a byte order", s)
	}
	return d, nil
}

func (d Dtype) String() string {
	return fmt.Sprintf("%c%c%d", d.ByteOrder, d.Kind, d.ItemSize)
}

// Order returns the binary byte order for multi-byte element access.
// Single-byte types default to little-endian, which is a no-op for them.
func (d Dtype) Order() binary.ByteOrder {
	if d.ByteOrder == '>' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (d Dtype) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Dtype) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDtype(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// fillBytes encodes a JSON fill value into the raw bytes of one element.
// A nil fill value encodes as zero.
func fillBytes(d Dtype, fill interface{}) ([]byte, error) {
	buf := make([]byte, d.ItemSize)
	if fill == nil {
		return buf, nil
	}
	var fval float64
	switch v := fill.(type) {
	case float64:
		fval = v
	case int:
		fval = float64(v)
	case bool:
		if v {
			fval = 1
		}
	default:
		return nil, fmt.Errorf("unsupported fill value %v (%T)", fill, fill)
	}
	order := d.Order()
	switch d.Kind {
	case 'b', 'u', 'i':
		uval := uint64(int64(fval))
		switch d.ItemSize {
		case 1:
			buf[0] = byte(uval)
		case 2:
			order.PutUint16(buf, uint16(uval))
		case 4:
			order.PutUint32(buf, uint32(uval))
		case 8:
			order.PutUint64(buf, uval)
		default:
			return nil, fmt.Errorf("unsupported item size %d for fill value", d.ItemSize)
		}
	case 'f':
		switch d.ItemSize {
		case 4:
			order.PutUint32(buf, math.Float32bits(float32(fval)))
		case 8:
			order.PutUint64(buf, math.Float64bits(fval))
		default:
			return nil, fmt.Errorf("unsupported float item size %d", d.ItemSize)
		}
	}
	return buf, nil
}
