package loss

import (
	"fmt"
	"math"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
)

// MaskedLoss wraps an elementwise loss so that voxels whose target is NaN
// do not contribute.  The wrapped loss sees NaN targets replaced by zero;
// its values at those positions are masked out before averaging over the
// valid count.
type MaskedLoss struct {
	fn Pointwise
}

func NewMaskedLoss(fn Pointwise) *MaskedLoss {
	return &MaskedLoss{fn: fn}
}

// CalcLoss returns the masked mean loss between one output and target
// volume.  A target with no valid voxels yields zero loss.
func (m *MaskedLoss) CalcLoss(output, target *cmeval.Volume) (float64, error) {
	if !output.Size.Equals(target.Size) {
		return 0, fmt.Errorf("output size %s does not match target size %s", output.Size, target.Size)
	}
	var sum float64
	var valid int64
	for i, t := range target.Data {
		if math.IsNaN(float64(t)) {
			continue
		}
		sum += float64(m.fn.Eval(output.Data[i], t))
		valid++
	}
	if valid == 0 {
		return 0, nil
	}
	return sum / float64(valid), nil
}

// Forward computes the loss across named prediction heads: the mean of
// per-head masked losses over every key in targets.  Every target key
// must have a matching output.
func (m *MaskedLoss) Forward(outputs, targets map[string]*cmeval.Volume) (float64, error) {
	if len(targets) == 0 {
		return 0, fmt.Errorf("no targets given")
	}
	var total float64
	for key, target := range targets {
		output, found := outputs[key]
		if !found {
			return 0, fmt.Errorf("no output for target %q", key)
		}
		headLoss, err := m.CalcLoss(output, target)
		if err != nil {
			return 0, fmt.Errorf("target %q: %v", key, err)
		}
		total += headLoss
	}
	return total / float64(len(targets)), nil
}

// MaskedDice returns the soft Dice loss (1 - dice coefficient) over the
// valid voxels of a target.  smooth is added to numerator and denominator;
// zero means 1.
func MaskedDice(output, target *cmeval.Volume, smooth float64) (float64, error) {
	if !output.Size.Equals(target.Size) {
		return 0, fmt.Errorf("output size %s does not match target size %s", output.Size, target.Size)
	}
	if smooth == 0 {
		smooth = 1
	}
	var intersection, outputSum, targetSum float64
	for i, t := range target.Data {
		if math.IsNaN(float64(t)) {
			continue
		}
		o := float64(output.Data[i])
		intersection += o * float64(t)
		outputSum += o
		targetSum += float64(t)
	}
	dice := (2*intersection + smooth) / (outputSum + targetSum + smooth)
	return 1 - dice, nil
}
