/*
	Package submission packages predicted label volumes into the fixed
	challenge layout and handles zipped submission archives.

	A submission is a single Zarr-2 directory store:

		submission.zarr
		  /<test_volume_name>
		    /<label_name>

	Each label volume is a 3d binary uint8 array with the same shape and
	scale as the corresponding test volume.  The scale for all volumes is
	8x8x8 nm/voxel and arrays are chunked at 64x64x64.
*/
package submission

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
	"github.com/janelia-cellmap/cellmap-eval/zarr"
)

const (
	// ChunkSize is the chunk extent along each dimension of label arrays.
	ChunkSize = 64

	// VoxelResolutionNM is the physical scale of every volume in
	// nanometers per voxel along each dimension.
	VoxelResolutionNM = 8

	// LayoutVersion is the submission layout version written into root
	// attributes of packaged stores.
	LayoutVersion = "1.0.0"
)

// rootAttributes describes the whole store and is checked during
// validation.
func rootAttributes() zarr.Attributes {
	res := VoxelResolutionNM
	return zarr.Attributes{
		"format_version": LayoutVersion,
		"voxel_size_nm":  []int{res, res, res},
	}
}

// SaveLabels writes a single volume of class labels (0 = background) into
// a submission store, one binary array per class.  Class i+1 maps to
// labelNames[i].  If overwrite is set, an existing volume group of the
// same name is replaced.
func SaveLabels(submissionPath, volumeName string, labelNames []string, labels *cmeval.LabelVolume, overwrite bool) error {
	if int64(len(labels.Data)) != labels.Size.NumVoxels() {
		return fmt.Errorf("label volume %q has %d voxels but size %s", volumeName, len(labels.Data), labels.Size)
	}
	volume, err := createVolumeGroup(submissionPath, volumeName, overwrite)
	if err != nil {
		return err
	}
	for i, name := range labelNames {
		binary := labels.Binarize(uint8(i + 1))
		if err := writeLabelArray(volume, name, binary); err != nil {
			return err
		}
	}
	return nil
}

// SaveBinary writes a list of binary label volumes into a submission
// store, aligned with labelNames.  If overwrite is set, an existing
// volume group of the same name is replaced.
func SaveBinary(submissionPath, volumeName string, labelNames []string, labels []*cmeval.LabelVolume, overwrite bool) error {
	if len(labels) != len(labelNames) {
		return fmt.Errorf("got %d label volumes for %d label names", len(labels), len(labelNames))
	}
	volume, err := createVolumeGroup(submissionPath, volumeName, overwrite)
	if err != nil {
		return err
	}
	for i, name := range labelNames {
		if err := writeLabelArray(volume, name, labels[i]); err != nil {
			return err
		}
	}
	return nil
}

// createVolumeGroup opens or creates the store root, stamps the root
// attributes, and creates the test volume group.
func createVolumeGroup(submissionPath, volumeName string, overwrite bool) (*zarr.Group, error) {
	root, err := zarr.CreateGroup(submissionPath)
	if err != nil {
		return nil, err
	}
	if err := root.SetAttributes(rootAttributes()); err != nil {
		return nil, err
	}
	volume, err := root.CreateGroup(volumeName, overwrite)
	if err != nil {
		return nil, fmt.Errorf("can't create volume group %q in %s: %v", volumeName, submissionPath, err)
	}
	return volume, nil
}

func writeLabelArray(volume *zarr.Group, labelName string, binary *cmeval.LabelVolume) error {
	arr, err := volume.CreateArray(labelName, &zarr.ArrayMeta{
		Shape:      binary.Size.Shape(),
		Chunks:     []int{ChunkSize, ChunkSize, ChunkSize},
		Dtype:      zarr.Uint8,
		Compressor: zarr.DefaultCompressor,
	})
	if err != nil {
		return err
	}
	if err := arr.WriteUint8(binary.Data); err != nil {
		return err
	}
	cmeval.Debugf("Wrote label %q: %s voxels (%s raw)\n", labelName,
		humanize.Comma(binary.Size.NumVoxels()), humanize.Bytes(uint64(len(binary.Data))))
	return nil
}
