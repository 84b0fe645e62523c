package albedotools

import (
	"math"
	"testing"
)

const (
	testMinVar = 1e-4
	testMaxVar = 1.0
)

// singlePixelAcc builds a 1x1, single-band accumulator with the given
// per-file weights and data values on every parameter plane.
func singlePixelAcc(t *testing.T, weights, data []float64) *Accumulator {
	t.Helper()
	acc, err := NewAccumulator(CombinedClass, len(weights), 1, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	for f := range weights {
		for k := 0; k < NumKernelParams; k++ {
			acc.WeightPlane(f, 0, k)[0] = weights[f]
			acc.SumPlane(f, 0, k)[0] = data[f]
		}
		if weights[f] > 0 {
			acc.SamplesPlane(f, 0)[0] = 1
		}
	}
	return acc
}

func TestFinalizeSingleContributor(t *testing.T) {
	acc := singlePixelAcc(t, []float64{2}, []float64{0.5})
	st := Finalize(acc, testMinVar, testMaxVar)

	if got := st.MeanPlane(0, 0)[0]; got != 0.5 {
		t.Errorf("mean: got %v, want 0.5", got)
	}
	// One contributor: the bias-correction denominator is non-positive and
	// the variance stays at its floor.
	if got, want := st.StdDevPlane(0, 0)[0], math.Sqrt(testMinVar); got != want {
		t.Errorf("sd: got %v, want %v", got, want)
	}
	if got := st.WeightPlane(0, 0)[0]; got != 2 {
		t.Errorf("total weight: got %v, want 2", got)
	}
}

func TestFinalizeBiasCorrection(t *testing.T) {
	acc := singlePixelAcc(t, []float64{1, 1}, []float64{1, 3})
	st := Finalize(acc, testMinVar, testMaxVar)

	if got := st.MeanPlane(0, 0)[0]; got != 2 {
		t.Errorf("mean: got %v, want 2", got)
	}
	// Corrected variance: tot*var/(tot^2 - tot2) = 2*2/(4-2) = 2, strictly
	// above the naive weighted variance var/tot = 1.
	naiveSD := math.Sqrt(1.0)
	got := st.StdDevPlane(0, 0)[0]
	if math.Abs(got-math.Sqrt(2)) > 1e-12 {
		t.Errorf("sd: got %v, want sqrt(2)", got)
	}
	if got <= naiveSD {
		t.Errorf("bias-corrected sd %v not above naive sd %v", got, naiveSD)
	}
}

func TestFinalizeRequiresSamples(t *testing.T) {
	// Weight without a recorded sample never validates a pixel: the
	// sample-count planes are the finalizer's validity mask.
	acc, err := NewAccumulator(CombinedClass, 1, 1, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	acc.WeightPlane(0, 0, 0)[0] = 2
	acc.SumPlane(0, 0, 0)[0] = 0.5

	st := Finalize(acc, testMinVar, testMaxVar)
	if st.TotalWeight[0] != 0 || st.Mean[0] != 0 || st.StdDev[0] != 0 {
		t.Errorf("unsampled pixel finalized: weight %v mean %v sd %v",
			st.TotalWeight[0], st.Mean[0], st.StdDev[0])
	}
}

func TestFinalizeZeroWeightPixels(t *testing.T) {
	acc, err := NewAccumulator(CombinedClass, 2, 1, 2, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Nothing accumulated: every pixel must come out defined and zero.
	st := Finalize(acc, testMinVar, testMaxVar)
	for _, arr := range [][]float64{st.TotalWeight, st.Mean, st.StdDev} {
		for i, v := range arr {
			if v != 0 {
				t.Fatalf("index %d: got %v, want 0", i, v)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("index %d: invalid float %v", i, v)
			}
		}
	}
}

func TestFinalStatsShrink(t *testing.T) {
	st := &FinalStats{
		NB: 1, NS: 2, NL: 2,
		TotalWeight: make([]float64, NumKernelParams*4),
		Mean:        make([]float64, NumKernelParams*4),
		StdDev:      make([]float64, NumKernelParams*4),
	}
	for k := 0; k < NumKernelParams; k++ {
		copy(st.MeanPlane(0, k), []float64{1, 3, 5, 7})
		copy(st.StdDevPlane(0, k), []float64{2, 2, 2, 2})
		copy(st.WeightPlane(0, k), []float64{4, 4, 0, 4})
	}

	if got := st.Shrink(1); got != st {
		t.Error("factor 1 should return the receiver")
	}

	out := st.Shrink(2)
	if out.NS != 1 || out.NL != 1 {
		t.Fatalf("extent: got %dx%d, want 1x1", out.NS, out.NL)
	}
	// Equal variances degenerate to the plain mean; zero weights are
	// excluded from the weight block mean.
	if got := out.MeanPlane(0, 0); !floatsEqual(got, []float64{4}) {
		t.Errorf("mean: got %v, want [4]", got)
	}
	if got := out.StdDevPlane(0, 0); !floatsEqual(got, []float64{2}) {
		t.Errorf("sd: got %v, want [2]", got)
	}
	if got := out.WeightPlane(0, 0); !floatsEqual(got, []float64{4}) {
		t.Errorf("weight: got %v, want [4]", got)
	}
}

func TestFinalizeCeiling(t *testing.T) {
	acc := singlePixelAcc(t, []float64{1, 1}, []float64{0.1, 99})
	st := Finalize(acc, testMinVar, testMaxVar)
	if got, want := st.StdDevPlane(0, 0)[0], math.Sqrt(testMaxVar); got != want {
		t.Errorf("sd: got %v, want ceiling %v", got, want)
	}
}

func TestFinalizeFloorAfterCorrection(t *testing.T) {
	// Two contributors nearly identical: corrected variance lands below the
	// floor and is raised back to it.
	acc := singlePixelAcc(t, []float64{1, 1}, []float64{0.5, 0.5 + 1e-9})
	st := Finalize(acc, testMinVar, testMaxVar)
	if got, want := st.StdDevPlane(0, 0)[0], math.Sqrt(testMinVar); got != want {
		t.Errorf("sd: got %v, want floor %v", got, want)
	}
}
