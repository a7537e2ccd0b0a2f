/*
	Package loss provides elementwise training losses and a masking wrapper
	for targets with missing values.

	Training targets for sparsely annotated volumes mark unannotated voxels
	with NaN.  MaskedLoss applies a wrapped elementwise loss with no
	reduction, zeroes the loss wherever the target is NaN, and averages
	over the valid voxels only.
*/
package loss

import "math"

// Pointwise is an elementwise loss evaluated per voxel with no reduction.
type Pointwise interface {
	Name() string
	Eval(output, target float32) float32
}

// MSE is squared error per voxel.
type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) Eval(output, target float32) float32 {
	d := output - target
	return d * d
}

// BCE is binary cross-entropy on probabilities.  Outputs are clamped away
// from 0 and 1 so the log terms stay finite.
type BCE struct {
	// Epsilon is the clamp distance from 0 and 1.  Zero means 1e-7.
	Epsilon float64
}

func (BCE) Name() string { return "bce" }

func (b BCE) Eval(output, target float32) float32 {
	eps := b.Epsilon
	if eps == 0 {
		eps = 1e-7
	}
	p := float64(output)
	if p < eps {
		p = eps
	} else if p > 1-eps {
		p = 1 - eps
	}
	t := float64(target)
	return float32(-(t*math.Log(p) + (1-t)*math.Log(1-p)))
}
