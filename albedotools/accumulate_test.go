package albedotools

import (
	"errors"
	"testing"
)

// newTestSample builds a 2x2 single-band sample from snow codes and raw f0
// values (storage units, 1000 = 1.0). All pixels are valid with exponent 0,
// so the weight is 1 everywhere.
func newTestSample(t *testing.T, snow []uint8, f0 []float64) *FileSample {
	t.Helper()
	flags, err := DecodeFlags(QualityPlanes{
		Quality:     []uint8{0, 0, 0, 0},
		Snow:        snow,
		Ancillary:   []uint8{1 << 4, 1 << 4, 1 << 4, 1 << 4},
		BandQuality: []uint32{0, 0, 0, 0},
	}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	f1 := []float64{100, 100, 100, 100}
	f2 := []float64{50, 50, 50, 50}
	s, err := NewFileSample(flags, 1.0, []plane{f0, f1, f2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSampleInvariantWeightZeroDataZero(t *testing.T) {
	// A paramFill value withdraws the pixel entirely.
	s := newTestSample(t, []uint8{0, 0, 0, 0}, []float64{1000, paramFill, 1000, 1000})
	if s.Mask[1] {
		t.Error("fill pixel still masked in")
	}
	for i := range s.Mask {
		if s.Weight[i] != 0 {
			continue
		}
		for k := 0; k < NumKernelParams; k++ {
			if s.Param(k, 0)[i] != 0 {
				t.Errorf("pixel %d param %d: weight 0 but data %v", i, k, s.Param(k, 0)[i])
			}
		}
	}
}

func TestAccumulateCoverageFiltering(t *testing.T) {
	snow := []uint8{1, 0, 2, 0} // snow, free, no-data, free
	f0 := []float64{1000, 2000, 3000, 4000}

	cases := []struct {
		class      CoverageClass
		wantWeight []float64
	}{
		{NoSnowClass, []float64{0, 1, 0, 1}},
		{SnowClass, []float64{1, 0, 0, 0}},
		{CombinedClass, []float64{1, 1, 0, 1}},
	}
	for _, tc := range cases {
		acc, err := NewAccumulator(tc.class, 1, 1, 2, 2, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err := acc.Accumulate(0, newTestSample(t, snow, f0)); err != nil {
			t.Fatalf("%s: %v", tc.class, err)
		}
		if got := acc.WeightPlane(0, 0, 0); !floatsEqual(got, tc.wantWeight) {
			t.Errorf("%s weight: got %v, want %v", tc.class, got, tc.wantWeight)
		}
	}
}

func TestAccumulateDropsZeroF0(t *testing.T) {
	// Pixel 1 is valid but its f0 sums to zero: physically invalid, so its
	// contribution is forced out.
	s := newTestSample(t, []uint8{0, 0, 0, 0}, []float64{1000, 0, 2000, 3000})
	acc, err := NewAccumulator(CombinedClass, 1, 1, 2, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Accumulate(0, s); err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 0, 1, 1}
	if got := acc.WeightPlane(0, 0, 0); !floatsEqual(got, want) {
		t.Errorf("weight: got %v, want %v", got, want)
	}
}

func TestAccumulateEmptyContribution(t *testing.T) {
	s := newTestSample(t, []uint8{0, 0, 0, 0}, []float64{1000, 2000, 3000, 4000})
	acc, err := NewAccumulator(SnowClass, 1, 1, 2, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	err = acc.Accumulate(0, s)
	if !errors.Is(err, ErrEmptyContribution) {
		t.Fatalf("got %v, want ErrEmptyContribution", err)
	}
}

func TestAccumulateOverwritesSlot(t *testing.T) {
	first := newTestSample(t, []uint8{0, 0, 0, 0}, []float64{1000, 1000, 1000, 1000})
	second := newTestSample(t, []uint8{0, 0, 0, 0}, []float64{2000, 2000, 2000, 2000})

	acc, err := NewAccumulator(CombinedClass, 1, 1, 2, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Accumulate(0, first); err != nil {
		t.Fatal(err)
	}
	if err := acc.Accumulate(0, second); err != nil {
		t.Fatal(err)
	}
	want := []float64{2, 2, 2, 2}
	if got := acc.SumPlane(0, 0, 0); !floatsEqual(got, want) {
		t.Errorf("sum after overwrite: got %v, want %v", got, want)
	}
}

func TestAccumulateShrinksAndRenormalises(t *testing.T) {
	// Weighted data is shrunk jointly with the weight and the weight
	// divided back out, so the stored sum holds plain data values.
	flags, err := DecodeFlags(QualityPlanes{
		Quality:     []uint8{0, 0, 255, 0},
		Snow:        []uint8{0, 0, 0, 0},
		Ancillary:   []uint8{1 << 4, 1 << 4, 1 << 4, 1 << 4},
		BandQuality: []uint32{0, 0, 0, 0},
	}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	f0 := []float64{1000, 3000, 9000, 5000}
	pad := []float64{100, 100, 100, 100}
	s, err := NewFileSample(flags, 1.0, []plane{f0, pad, pad}, 1)
	if err != nil {
		t.Fatal(err)
	}

	acc, err := NewAccumulator(CombinedClass, 1, 1, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := acc.Accumulate(0, s); err != nil {
		t.Fatal(err)
	}
	// Three valid unit-weight pixels: shrunk weight is 1, shrunk data is
	// the zero-excluding mean (1+3+5)/3 of the valid f0 values.
	if got := acc.WeightPlane(0, 0, 0); !floatsEqual(got, []float64{1}) {
		t.Errorf("weight: got %v, want [1]", got)
	}
	if got := acc.SumPlane(0, 0, 0); !floatsEqual(got, []float64{3}) {
		t.Errorf("sum: got %v, want [3]", got)
	}
	if acc.Samples[0] != 1 {
		t.Errorf("samples: got %d, want 1", acc.Samples[0])
	}
}
