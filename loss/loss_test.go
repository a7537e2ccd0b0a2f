package loss

import (
	"math"
	"testing"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
)

var nan32 = float32(math.NaN())

func volumeOf(values ...float32) *cmeval.Volume {
	return &cmeval.Volume{
		Size: cmeval.Size3d{1, 1, int32(len(values))},
		Data: values,
	}
}

func TestMaskedMatchesUnmaskedWithoutNaNs(t *testing.T) {
	output := volumeOf(0.1, 0.9, 0.4, 0.7)
	target := volumeOf(0, 1, 1, 0)

	masked := NewMaskedLoss(MSE{})
	got, err := masked.CalcLoss(output, target)
	if err != nil {
		t.Fatal(err)
	}

	var want float64
	for i := range target.Data {
		d := float64(output.Data[i] - target.Data[i])
		want += d * d
	}
	want /= float64(len(target.Data))
	if math.Abs(got-want) > 1e-7 {
		t.Errorf("masked loss = %f, want unmasked %f", got, want)
	}
}

func TestMaskedIgnoresNaNPositions(t *testing.T) {
	output := volumeOf(0.1, 100, 0.4, -100)
	target := volumeOf(0, nan32, 1, nan32)

	masked := NewMaskedLoss(MSE{})
	got, err := masked.CalcLoss(output, target)
	if err != nil {
		t.Fatal(err)
	}

	// Only positions 0 and 2 are valid; the wild values at the NaN
	// positions must not leak in.
	want := (0.1*0.1 + 0.6*0.6) / 2
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("masked loss = %f, want %f", got, want)
	}
}

func TestAllInvalidTargetYieldsZero(t *testing.T) {
	output := volumeOf(1, 2, 3)
	target := volumeOf(nan32, nan32, nan32)

	masked := NewMaskedLoss(MSE{})
	got, err := masked.CalcLoss(output, target)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("all-NaN target should yield 0 loss, got %f", got)
	}
}

func TestSizeMismatch(t *testing.T) {
	masked := NewMaskedLoss(MSE{})
	if _, err := masked.CalcLoss(volumeOf(1, 2), volumeOf(1, 2, 3)); err == nil {
		t.Error("size mismatch should be an error")
	}
}

func TestForwardAveragesHeads(t *testing.T) {
	masked := NewMaskedLoss(MSE{})
	outputs := map[string]*cmeval.Volume{
		"mito": volumeOf(1, 1),
		"er":   volumeOf(0, 0),
	}
	targets := map[string]*cmeval.Volume{
		"mito": volumeOf(0, 0), // per-head loss 1
		"er":   volumeOf(0, 0), // per-head loss 0
	}
	got, err := masked.Forward(outputs, targets)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.5 {
		t.Errorf("multi-head loss = %f, want 0.5", got)
	}

	delete(outputs, "er")
	if _, err := masked.Forward(outputs, targets); err == nil {
		t.Error("a target without a matching output should be an error")
	}
}

func TestBCEStaysFinite(t *testing.T) {
	bce := BCE{}
	for _, output := range []float32{0, 1, 0.5} {
		for _, target := range []float32{0, 1} {
			v := bce.Eval(output, target)
			if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
				t.Errorf("BCE(%f, %f) = %f, not finite", output, target, v)
			}
		}
	}
	// A confident correct prediction is near zero loss.
	if v := bce.Eval(0.999, 1); v > 0.01 {
		t.Errorf("BCE(0.999, 1) = %f, should be near zero", v)
	}
	// A confident wrong prediction is heavily penalized.
	if v := bce.Eval(0.999, 0); v < 1 {
		t.Errorf("BCE(0.999, 0) = %f, should be large", v)
	}
}

func TestMaskedDice(t *testing.T) {
	// Perfect overlap with smoothing approaches zero loss.
	full := volumeOf(1, 1, 1, 1)
	got, err := MaskedDice(full, full, 1e-7)
	if err != nil {
		t.Fatal(err)
	}
	if got > 1e-6 {
		t.Errorf("perfect dice loss = %f, should be near 0", got)
	}

	// Disjoint masks approach a loss of one.
	pred := volumeOf(1, 1, 0, 0)
	target := volumeOf(0, 0, 1, 1)
	got, err = MaskedDice(pred, target, 1e-7)
	if err != nil {
		t.Fatal(err)
	}
	if got < 0.999 {
		t.Errorf("disjoint dice loss = %f, should be near 1", got)
	}

	// NaN positions do not contribute to the sums.
	predMasked := volumeOf(1, 1, 1)
	targetMasked := volumeOf(1, 1, nan32)
	got, err = MaskedDice(predMasked, targetMasked, 1e-7)
	if err != nil {
		t.Fatal(err)
	}
	if got > 1e-6 {
		t.Errorf("masked dice loss = %f, should be near 0", got)
	}
}
