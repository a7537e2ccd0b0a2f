/*
	This file checks the structure of an unpacked submission before
	scoring: root attributes against a JSON schema, a compatible layout
	version, and 3d single-byte label arrays.
*/

package submission

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-cellmap/cellmap-eval/zarr"
)

const rootAttrsSchema = `{
    "type": "object",
    "required": ["format_version", "voxel_size_nm"],
    "properties": {
        "format_version": {
            "type": "string"
        },
        "voxel_size_nm": {
            "type": "array",
            "items": {"type": "number", "exclusiveMinimum": 0},
            "minItems": 3,
            "maxItems": 3
        }
    }
}`

var (
	attrsSchema = jsonschema.MustCompileString("submission_attrs.json", rootAttrsSchema)

	// supportedLayouts gates which packaged layout versions this code
	// knows how to score.
	supportedLayouts = semver.MustParseRange(">=1.0.0 <2.0.0")
)

// Validate checks an unpacked submission store.  It returns the first
// structural problem found, or nil for a well-formed submission.
func Validate(storePath string) error {
	root, err := zarr.OpenGroup(storePath)
	if err != nil {
		return err
	}
	if err := validateRootAttrs(root); err != nil {
		return err
	}

	volumes, err := root.Groups()
	if err != nil {
		return err
	}
	if len(volumes) == 0 {
		return fmt.Errorf("submission %s contains no volume groups", storePath)
	}
	for _, volumeName := range volumes {
		volume, err := root.OpenGroup(volumeName)
		if err != nil {
			return err
		}
		labels, err := volume.Arrays()
		if err != nil {
			return err
		}
		if len(labels) == 0 {
			return fmt.Errorf("volume %q contains no label arrays", volumeName)
		}
		for _, labelName := range labels {
			arr, err := volume.OpenArray(labelName)
			if err != nil {
				return err
			}
			if err := validateLabelArray(arr); err != nil {
				return fmt.Errorf("label %s/%s: %v", volumeName, labelName, err)
			}
		}
	}
	return nil
}

func validateRootAttrs(root *zarr.Group) error {
	attrs, err := root.Attributes()
	if err != nil {
		return err
	}
	if err := attrsSchema.Validate(map[string]interface{}(attrs)); err != nil {
		return fmt.Errorf("bad submission attributes: %v", err)
	}
	versionStr, _ := attrs["format_version"].(string)
	version, err := semver.Parse(versionStr)
	if err != nil {
		return fmt.Errorf("bad format_version %q: %v", versionStr, err)
	}
	if !supportedLayouts(version) {
		return fmt.Errorf("submission layout version %s is not supported", version)
	}
	return nil
}

func validateLabelArray(arr *zarr.Array) error {
	if len(arr.Shape()) != 3 {
		return fmt.Errorf("expected a 3d array, got shape %v", arr.Shape())
	}
	if d := arr.Dtype(); d.ItemSize != 1 || d.Kind == 'f' {
		return fmt.Errorf("expected a single-byte label dtype, got %s", d)
	}
	return nil
}
