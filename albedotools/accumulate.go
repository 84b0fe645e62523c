package albedotools

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// CoverageClass selects which pixels of a sample may contribute.
type CoverageClass int

const (
	NoSnowClass CoverageClass = iota
	SnowClass
	CombinedClass
)

// String returns the class name used in output filenames.
func (c CoverageClass) String() string {
	switch c {
	case NoSnowClass:
		return "NoSnow"
	case SnowClass:
		return "Snow"
	case CombinedClass:
		return "SnowAndNoSnow"
	default:
		return fmt.Sprintf("CoverageClass(%d)", int(c))
	}
}

// Accumulator holds the per-file weighted contributions for one day and one
// coverage class. Each input file occupies the positional slot given at
// Accumulate time, so re-accumulating a slot overwrites rather than double
// counts. Sum stores re-normalised data values (the weight has been divided
// back out after shrinking), so Sum and Weight remain independently
// meaningful for finalization. Sum is zero wherever Weight is zero.
type Accumulator struct {
	Class  CoverageClass
	NFiles int
	NB     int
	NS, NL int // reduced extent, after shrinking

	shrink         int
	fullNS, fullNL int

	Sum    []float64 // [NFiles][NB][NumKernelParams] planes of NS*NL
	Weight []float64 // same layout as Sum
	// Samples marks where a file actually contributed, [NFiles][NB] planes
	// of NS*NL, 0 or 1. Finalize sums these as its validity mask.
	Samples []int32
}

// NewAccumulator sizes the accumulation arrays for nFiles inputs of an
// (ns, nl) extent shrunk by the given factor. A fresh accumulator is
// required per day and class; slots are not reusable across runs.
func NewAccumulator(class CoverageClass, nFiles, nb, ns, nl, shrink int) (*Accumulator, error) {
	if shrink < 1 {
		shrink = 1
	}
	ons, onl := ns/shrink, nl/shrink
	if nFiles < 1 || nb < 1 || ons < 1 || onl < 1 {
		return nil, &AllocationError{NFiles: nFiles, NB: nb, NS: ons, NL: onl}
	}
	npix := ons * onl
	planes := nFiles * nb * NumKernelParams
	if planes > math.MaxInt/npix/2 {
		return nil, &AllocationError{NFiles: nFiles, NB: nb, NS: ons, NL: onl}
	}
	return &Accumulator{
		Class:   class,
		NFiles:  nFiles,
		NB:      nb,
		NS:      ons,
		NL:      onl,
		shrink:  shrink,
		fullNS:  ns,
		fullNL:  nl,
		Sum:     make([]float64, planes*npix),
		Weight:  make([]float64, planes*npix),
		Samples: make([]int32, nFiles*nb*npix),
	}, nil
}

func (a *Accumulator) planeOffset(f, b, k int) int {
	return ((f*a.NB+b)*NumKernelParams + k) * a.NS * a.NL
}

// SumPlane returns the stored data plane for (file, band, param).
func (a *Accumulator) SumPlane(f, b, k int) []float64 {
	off := a.planeOffset(f, b, k)
	return a.Sum[off : off+a.NS*a.NL]
}

// WeightPlane returns the stored weight plane for (file, band, param).
func (a *Accumulator) WeightPlane(f, b, k int) []float64 {
	off := a.planeOffset(f, b, k)
	return a.Weight[off : off+a.NS*a.NL]
}

// SamplesPlane returns the 0/1 sample-count plane for (file, band).
func (a *Accumulator) SamplesPlane(f, b int) []int32 {
	off := (f*a.NB + b) * a.NS * a.NL
	return a.Samples[off : off+a.NS*a.NL]
}

// Accumulate filters a sample by coverage class and stores its shrunk,
// re-normalised contribution at the given file slot. Returns
// ErrEmptyContribution when filtering leaves no pixels; that is a
// log-and-continue outcome, not a failure.
func (a *Accumulator) Accumulate(fileIndex int, s *FileSample) error {
	if fileIndex < 0 || fileIndex >= a.NFiles {
		return fmt.Errorf("file index %d out of range [0,%d)", fileIndex, a.NFiles)
	}
	if s.NS != a.fullNS || s.NL != a.fullNL || s.NB != a.NB {
		return &ShapeMismatchError{Plane: "sample", Want: a.fullNS * a.fullNL, Got: s.NS * s.NL}
	}

	n := s.NS * s.NL
	counts := make([]float64, n)
	for i := 0; i < n; i++ {
		switch a.Class {
		case NoSnowClass:
			if s.Snow[i] == SnowFree {
				counts[i] = s.Weight[i]
			}
		case SnowClass:
			if s.Snow[i] == SnowCovered {
				counts[i] = s.Weight[i]
			}
		default:
			if s.Snow[i] != SnowNoData {
				counts[i] = s.Weight[i]
			}
		}
	}

	// A pixel whose f0 sums to nothing across bands while still counted is
	// physically invalid; drop it before it can poison the denominator.
	var dropped int
	for i := 0; i < n; i++ {
		if counts[i] <= 0 {
			continue
		}
		var f0 float64
		for b := 0; b < s.NB; b++ {
			f0 += s.Param(0, b)[i]
		}
		if f0 <= 0 {
			counts[i] = 0
			dropped++
		}
	}
	if dropped > 0 {
		logrus.Infof("%s: dropped %d zero-valued samples", a.Class, dropped)
	}
	if floats.Sum(counts) == 0 {
		return ErrEmptyContribution
	}

	// The per-pixel weight broadcasts identically to every band and
	// parameter, so its shrunk form is computed once.
	sw := Shrink(counts, s.NS, s.NL, a.shrink)
	npix := a.NS * a.NL

	for b := 0; b < a.NB; b++ {
		for k := 0; k < NumKernelParams; k++ {
			data := s.Param(k, b)
			wd := make([]float64, n)
			for i := 0; i < n; i++ {
				wd[i] = data[i] * counts[i]
			}
			sd := Shrink(wd, s.NS, s.NL, a.shrink)

			sumPl := a.SumPlane(fileIndex, b, k)
			wPl := a.WeightPlane(fileIndex, b, k)
			for i := 0; i < npix; i++ {
				w := sw[i]
				wPl[i] = w
				if w > 0 {
					sumPl[i] = sd[i] / w
				} else {
					sumPl[i] = 0
				}
			}
		}
		sPl := a.SamplesPlane(fileIndex, b)
		for i := 0; i < npix; i++ {
			if sw[i] > 0 {
				sPl[i] = 1
			} else {
				sPl[i] = 0
			}
		}
	}
	return nil
}
