package albedotools

import "math"

// FinalStats is the per-pixel weighted mean and standard deviation of one
// day's accumulation for one coverage class. Pixels with TotalWeight zero
// carry mean and std-dev of exactly zero, never NaN or Inf; callers must
// check TotalWeight before trusting them. For every pixel with positive
// weight, StdDev lies in [sqrt(minVariance), sqrt(maxVariance)].
type FinalStats struct {
	NB, NS, NL int

	TotalWeight []float64 // [NB][NumKernelParams] planes of NS*NL
	Mean        []float64
	StdDev      []float64
}

func (st *FinalStats) planeOffset(b, k int) int {
	return (b*NumKernelParams + k) * st.NS * st.NL
}

// MeanPlane returns the mean plane for (band, param).
func (st *FinalStats) MeanPlane(b, k int) []float64 {
	off := st.planeOffset(b, k)
	return st.Mean[off : off+st.NS*st.NL]
}

// StdDevPlane returns the std-dev plane for (band, param).
func (st *FinalStats) StdDevPlane(b, k int) []float64 {
	off := st.planeOffset(b, k)
	return st.StdDev[off : off+st.NS*st.NL]
}

// WeightPlane returns the total-weight plane for (band, param).
func (st *FinalStats) WeightPlane(b, k int) []float64 {
	off := st.planeOffset(b, k)
	return st.TotalWeight[off : off+st.NS*st.NL]
}

// Shrink reduces finalized statistics by a further block factor. Mean and
// std-dev planes are shrunk as pairs so each subcell is weighted by its own
// reliability; the total-weight plane uses the plain zero-excluding block
// mean. A factor of 1 returns the receiver.
func (st *FinalStats) Shrink(factor int) *FinalStats {
	if factor <= 1 {
		return st
	}
	ons, onl := st.NS/factor, st.NL/factor
	out := &FinalStats{
		NB:          st.NB,
		NS:          ons,
		NL:          onl,
		TotalWeight: make([]float64, st.NB*NumKernelParams*ons*onl),
		Mean:        make([]float64, st.NB*NumKernelParams*ons*onl),
		StdDev:      make([]float64, st.NB*NumKernelParams*ons*onl),
	}
	for b := 0; b < st.NB; b++ {
		for k := 0; k < NumKernelParams; k++ {
			m, s := ShrinkPaired(st.MeanPlane(b, k), st.StdDevPlane(b, k), st.NS, st.NL, factor)
			copy(out.MeanPlane(b, k), m)
			copy(out.StdDevPlane(b, k), s)
			copy(out.WeightPlane(b, k), Shrink(st.WeightPlane(b, k), st.NS, st.NL, factor))
		}
	}
	return out
}

// Finalize turns an accumulator's state into per-pixel statistics. A pixel
// is valid only where at least one file recorded a sample and the total
// weight is positive; everything else stays zero. The weighted variance is
// bias-corrected by totalWeight/(totalWeight^2 - sum of squared weights)
// where that denominator is positive; a single contributor makes the
// denominator non-positive and the variance stays at the minVariance floor.
// All divide-by-zero paths are guarded by the validity mask, so finalization
// never produces an invalid float. No I/O happens here: the result depends
// only on the accumulator arrays.
func Finalize(a *Accumulator, minVariance, maxVariance float64) *FinalStats {
	npix := a.NS * a.NL
	st := &FinalStats{
		NB:          a.NB,
		NS:          a.NS,
		NL:          a.NL,
		TotalWeight: make([]float64, a.NB*NumKernelParams*npix),
		Mean:        make([]float64, a.NB*NumKernelParams*npix),
		StdDev:      make([]float64, a.NB*NumKernelParams*npix),
	}
	maxSD := math.Sqrt(maxVariance)

	for b := 0; b < a.NB; b++ {
		for k := 0; k < NumKernelParams; k++ {
			out := st.planeOffset(b, k)
			for p := 0; p < npix; p++ {
				var tot, tot2, wsum float64
				var nsamp int32
				for f := 0; f < a.NFiles; f++ {
					off := a.planeOffset(f, b, k)
					w := a.Weight[off+p]
					tot += w
					tot2 += w * w
					wsum += w * a.Sum[off+p]
					nsamp += a.SamplesPlane(f, b)[p]
				}
				if nsamp == 0 || tot <= 0 {
					continue
				}
				mean := wsum / tot

				var v float64
				for f := 0; f < a.NFiles; f++ {
					off := a.planeOffset(f, b, k)
					if w := a.Weight[off+p]; w > 0 {
						d := a.Sum[off+p] - mean
						v += w * d * d
					}
				}
				if v <= 0 {
					v = minVariance
				}
				if num := tot*tot - tot2; num > 0 {
					v = tot * v / num
				}
				if v < minVariance {
					v = minVariance
				}
				sd := math.Sqrt(v)
				if sd > maxSD {
					sd = maxSD
				}

				st.TotalWeight[out+p] = tot
				st.Mean[out+p] = mean
				st.StdDev[out+p] = sd
			}
		}
	}
	return st
}
