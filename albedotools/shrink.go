package albedotools

import "math"

// Shrink reduces an (ns, nl) plane to (ns/factor, nl/factor) by block
// averaging over only the non-zero subcells: a block of [5, 0, 0, 0]
// shrinks to 5, not 1.25, so invalid (zero-weight) pixels never dilute the
// local average. An all-zero block stays zero. A factor of 1 returns the
// input unchanged.
//
// Block partitioning floor-divides the extents; trailing rows and columns
// beyond the last full block are dropped. Known boundary behavior, kept
// from the reference algorithm.
func Shrink(data []float64, ns, nl, factor int) []float64 {
	if factor <= 1 {
		return data
	}
	ons, onl := ns/factor, nl/factor
	out := make([]float64, ons*onl)
	for ol := 0; ol < onl; ol++ {
		for os := 0; os < ons; os++ {
			var sum float64
			var n int
			for dl := 0; dl < factor; dl++ {
				row := (ol*factor+dl)*ns + os*factor
				for ds := 0; ds < factor; ds++ {
					if v := data[row+ds]; v != 0 {
						sum += v
						n++
					}
				}
			}
			if n > 0 {
				out[ol*ons+os] = sum / float64(n)
			}
		}
	}
	return out
}

// ShrinkPaired reduces a finalized mean plane together with its std-dev
// plane. Each subcell is weighted by its inverse variance (zero variance or
// zero mean contributes nothing), the block mean is the weighted mean, and
// the block std-dev is recovered from the number of contributing subcells
// over the summed inverse variance. Shrinking already-computed statistics
// this way keeps their reliability accounting instead of discarding it.
func ShrinkPaired(mean, sd []float64, ns, nl, factor int) ([]float64, []float64) {
	if factor <= 1 {
		return mean, sd
	}
	ons, onl := ns/factor, nl/factor
	omean := make([]float64, ons*onl)
	osd := make([]float64, ons*onl)
	for ol := 0; ol < onl; ol++ {
		for os := 0; os < ons; os++ {
			var wsum, dsum float64
			var n int
			for dl := 0; dl < factor; dl++ {
				row := (ol*factor+dl)*ns + os*factor
				for ds := 0; ds < factor; ds++ {
					m, s := mean[row+ds], sd[row+ds]
					if m == 0 || s == 0 {
						continue
					}
					w := 1 / (s * s)
					wsum += w
					dsum += m * w
					n++
				}
			}
			if wsum > 0 {
				o := ol*ons + os
				omean[o] = dsum / wsum
				osd[o] = math.Sqrt(float64(n) / wsum)
			}
		}
	}
	return omean, osd
}
