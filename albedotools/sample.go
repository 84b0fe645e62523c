package albedotools

// NumKernelParams is the number of BRDF kernel parameters (f0, f1, f2)
// stored per spectral band.
const NumKernelParams = 3

const (
	// paramFill is the sentinel in the kernel-parameter planes.
	paramFill = 32767
	// paramScale converts the fixed-point storage to fractional values.
	paramScale = 1.0 / 1000
)

// FileSample is the decoded payload of one (data file, QA file) pair: the
// validity mask, the per-pixel reliability weight and the scaled kernel
// parameters for every configured band. Wherever Mask is false, Weight and
// every data plane are exactly zero.
type FileSample struct {
	NS, NL, NB int
	Mask       []bool
	Land       []uint8
	Snow       []int8
	Weight     []float64
	data       []plane // NumKernelParams * NB planes, parameter-major
}

type plane = []float64

// Param returns the data plane for kernel parameter k of band slot b.
func (s *FileSample) Param(k, b int) []float64 {
	return s.data[k*s.NB+b]
}

// SnowPixels counts the usable snow-covered pixels in the sample.
func (s *FileSample) SnowPixels() int {
	var n int
	for i, m := range s.Mask {
		if m && s.Snow[i] == SnowCovered {
			n++
		}
	}
	return n
}

// NewFileSample combines decoded flags with raw kernel-parameter planes
// into a sample ready for accumulation. params must hold NumKernelParams
// planes per band, band-major (params[b*3+k]), still in fixed-point
// storage units. A paramFill value withdraws the pixel from the mask, and
// the invariant weight==0 => data==0 is established here.
func NewFileSample(flags *QualityFlags, base float64, params []plane, nb int) (*FileSample, error) {
	n := flags.NS * flags.NL
	if len(params) != nb*NumKernelParams {
		return nil, &ShapeMismatchError{Plane: "params", Want: nb * NumKernelParams, Got: len(params)}
	}
	for _, p := range params {
		if len(p) != n {
			return nil, &ShapeMismatchError{Plane: "param plane", Want: n, Got: len(p)}
		}
	}

	mask := make([]bool, n)
	copy(mask, flags.Mask)
	for _, p := range params {
		for i, v := range p {
			if v == paramFill {
				mask[i] = false
			}
		}
	}

	s := &FileSample{
		NS:     flags.NS,
		NL:     flags.NL,
		NB:     nb,
		Mask:   mask,
		Land:   make([]uint8, n),
		Snow:   make([]int8, n),
		Weight: Weights(flags.Exponent, mask, base),
		data:   make([]plane, nb*NumKernelParams),
	}
	for i := 0; i < n; i++ {
		if mask[i] {
			s.Land[i] = flags.Land[i]
			s.Snow[i] = flags.Snow[i]
		} else {
			s.Snow[i] = SnowNoData
		}
	}
	for b := 0; b < nb; b++ {
		for k := 0; k < NumKernelParams; k++ {
			src := params[b*NumKernelParams+k]
			dst := make([]float64, n)
			for i, v := range src {
				if mask[i] {
					dst[i] = v * paramScale
				}
			}
			s.data[k*nb+b] = dst
		}
	}
	return s, nil
}
