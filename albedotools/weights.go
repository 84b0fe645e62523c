package albedotools

import "math"

// Weights maps quality exponents to reliability weights, base**exponent,
// zero wherever the mask excludes the pixel. With base in (0,1] the weights
// stay in [0,1] and degrade monotonically as the exponent worsens.
func Weights(exponent []uint8, mask []bool, base float64) []float64 {
	w := make([]float64, len(exponent))
	for i, e := range exponent {
		if !mask[i] {
			continue
		}
		w[i] = math.Pow(base, float64(e))
	}
	return w
}
