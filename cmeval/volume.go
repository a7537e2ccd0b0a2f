/*
	This file holds in-memory 3d volume types shared by the packaging,
	scoring and loss packages.  Voxels are stored in a flat slice using
	C order (z, y, x with x varying fastest), matching the on-disk layout
	of submission arrays.
*/

package cmeval

import (
	"fmt"
	"math"
)

// Size3d gives the extents of a 3d volume in voxels as (z, y, x).
type Size3d [3]int32

func (s Size3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s[0], s[1], s[2])
}

// NumVoxels returns the total number of voxels within this size.
func (s Size3d) NumVoxels() int64 {
	return int64(s[0]) * int64(s[1]) * int64(s[2])
}

// Equals returns true if the sizes match in every dimension.
func (s Size3d) Equals(s2 Size3d) bool {
	return s[0] == s2[0] && s[1] == s2[1] && s[2] == s2[2]
}

// Shape returns the size as an []int shape usable for array metadata.
func (s Size3d) Shape() []int {
	return []int{int(s[0]), int(s[1]), int(s[2])}
}

// SizeFromShape converts an []int shape into a Size3d, requiring exactly
// three dimensions.
func SizeFromShape(shape []int) (Size3d, error) {
	if len(shape) != 3 {
		return Size3d{}, fmt.Errorf("expected 3d shape, got %d dimensions", len(shape))
	}
	return Size3d{int32(shape[0]), int32(shape[1]), int32(shape[2])}, nil
}

// LabelVolume is a 3d volume of 8-bit label data.  Data holds either class
// labels (0 = background) or a binarized mask (0 or 1) depending on use.
type LabelVolume struct {
	Size Size3d
	Data []uint8
}

// NewLabelVolume returns a zeroed label volume of the given size.
func NewLabelVolume(size Size3d) *LabelVolume {
	return &LabelVolume{Size: size, Data: make([]uint8, size.NumVoxels())}
}

// Binarize returns a mask volume that is 1 wherever this volume equals the
// given class label and 0 elsewhere.
func (v *LabelVolume) Binarize(class uint8) *LabelVolume {
	out := NewLabelVolume(v.Size)
	for i, label := range v.Data {
		if label == class {
			out.Data[i] = 1
		}
	}
	return out
}

// Volume is a 3d volume of float32 data.  NaN marks voxels with no valid
// value, e.g. unannotated regions in training targets.
type Volume struct {
	Size Size3d
	Data []float32
}

// NewVolume returns a zeroed float volume of the given size.
func NewVolume(size Size3d) *Volume {
	return &Volume{Size: size, Data: make([]float32, size.NumVoxels())}
}

// NumValid returns the number of voxels that are not NaN.
func (v *Volume) NumValid() int64 {
	var n int64
	for _, val := range v.Data {
		if !math.IsNaN(float64(val)) {
			n++
		}
	}
	return n
}
