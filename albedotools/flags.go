package albedotools

// Quality-flag decoding for the MCD43-style QA product. All planes are
// row-major with pixel index p = line*ns + sample.
//
// The ancillary plane carries the land/water category in bits 4-7:
//
//	0  Shallow ocean
//	1  Land (nothing else but land)
//	2  Ocean and lake shorelines
//	3  Shallow inland water
//	4  Ephemeral water
//	5  Deep inland water
//	6  Moderate or continental ocean
//	7  Deep ocean (never processed)
//
// The band-quality plane packs 4-bit quality codes, 0 (best, full
// inversion) to 3 (magnitude inversion with few observations); codes of 4
// and above mean the inversion failed.

const (
	fillSentinel      = 255
	deepOceanCategory = 7
	worstUsableCode   = 3
)

// Snow tri-state codes for a pixel.
const (
	SnowNoData  int8 = -1
	SnowFree    int8 = 0
	SnowCovered int8 = 1
)

// QualityPlanes are the raw per-pixel QA fields read from one source file.
type QualityPlanes struct {
	Quality     []uint8  // overall inversion quality; 255 is fill
	Snow        []uint8  // 1 snow, 0 snow-free, 255 fill
	Ancillary   []uint8  // land category in bits 4-7
	BandQuality []uint32 // packed 4-bit per-waveband quality codes
}

// QualityFlags is the decoded per-pixel result. Identical inputs always
// decode to identical flags.
type QualityFlags struct {
	NS, NL   int
	Mask     []bool  // true where the pixel is usable
	Snow     []int8  // SnowNoData / SnowFree / SnowCovered
	Land     []uint8 // land category 0-7
	Exponent []uint8 // worst quality code over the examined wavebands
}

// DecodeFlags turns raw QA planes into per-pixel flags for an (ns, nl)
// extent. Validity starts true and is withdrawn by fill sentinels, the
// deep-ocean category, and failed-inversion quality codes. The quality
// exponent is the pixel-wise worst of the primary and secondary 4-bit
// encodings.
func DecodeFlags(p QualityPlanes, ns, nl int) (*QualityFlags, error) {
	n := ns * nl
	if n <= 0 {
		return nil, &ShapeMismatchError{Plane: "extent", Want: 1, Got: n}
	}
	planes := []struct {
		name string
		got  int
	}{
		{"quality", len(p.Quality)},
		{"snow", len(p.Snow)},
		{"ancillary", len(p.Ancillary)},
		{"band_quality", len(p.BandQuality)},
	}
	for _, pl := range planes {
		if pl.got != n {
			return nil, &ShapeMismatchError{Plane: pl.name, Want: n, Got: pl.got}
		}
	}

	f := &QualityFlags{
		NS:       ns,
		NL:       nl,
		Mask:     make([]bool, n),
		Snow:     make([]int8, n),
		Land:     make([]uint8, n),
		Exponent: make([]uint8, n),
	}
	for i := 0; i < n; i++ {
		ok := p.Quality[i] != fillSentinel && p.Snow[i] != fillSentinel

		switch p.Snow[i] {
		case 1:
			f.Snow[i] = SnowCovered
		case 0:
			f.Snow[i] = SnowFree
		default:
			f.Snow[i] = SnowNoData
		}

		land := (p.Ancillary[i] >> 4) & 0x0f
		f.Land[i] = land
		ok = ok && land != deepOceanCategory

		primary := uint8(p.BandQuality[i] & 0x0f)
		secondary := uint8((p.BandQuality[i] >> 4) & 0x0f)
		exp := primary
		if secondary > exp {
			exp = secondary
		}
		f.Exponent[i] = exp
		ok = ok && primary <= worstUsableCode && secondary <= worstUsableCode

		f.Mask[i] = ok
	}
	return f, nil
}
