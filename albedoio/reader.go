package albedoio

import (
	"errors"
	"fmt"

	"albedo-tools/albedotools"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

// QA plane order inside the quality product.
const (
	qaQualityBand = iota
	qaSnowBand
	qaAncillaryBand
	qaBandQualityBand
	qaBandCount
)

// DaySource reads one (data, QA) pair per call and produces decoded
// samples for the day driver. Only one sample is resident at a time.
type DaySource struct {
	cfg   albedotools.Config
	pairs []FilePair
}

func NewDaySource(cfg albedotools.Config, pairs []FilePair) *DaySource {
	godal.RegisterAll()
	return &DaySource{cfg: cfg, pairs: pairs}
}

func (s *DaySource) Len() int { return len(s.pairs) }

// Sample reads, decodes and assembles the sample for file slot i.
func (s *DaySource) Sample(i int) (*albedotools.FileSample, error) {
	pair := s.pairs[i]
	logrus.Infof("reading qa %s", pair.QA)
	flags, region, err := readQuality(pair.QA, s.cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("qa %s: %w", pair.QA, err)
	}
	logrus.Infof("reading data %s", pair.Data)
	params, err := readParams(pair.Data, region, s.cfg.Bands)
	if err != nil {
		return nil, fmt.Errorf("data %s: %w", pair.Data, err)
	}
	return albedotools.NewFileSample(flags, s.cfg.BackupBase, params, len(s.cfg.Bands))
}

// resolveRegion clips a requested [s0, ns, l0, nl] window (-1 entries mean
// "use the file extent") against the actual dataset size.
func resolveRegion(req [4]int, sizeX, sizeY int) (s0, ns, l0, nl int) {
	s0, ns, l0, nl = 0, sizeX, 0, sizeY
	if req[0] > 0 {
		s0 = req[0]
	}
	if req[2] > 0 {
		l0 = req[2]
	}
	if s0 > sizeX-1 {
		s0 = sizeX - 1
	}
	if l0 > sizeY-1 {
		l0 = sizeY - 1
	}
	if req[1] != -1 {
		ns = req[1]
	}
	if req[3] != -1 {
		nl = req[3]
	}
	ns = clamp(ns, 1, sizeX-s0)
	nl = clamp(nl, 1, sizeY-l0)
	return s0, ns, l0, nl
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func readQuality(path string, region [4]int) (flags *albedotools.QualityFlags, resolved [4]int, err error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, resolved, err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	bands := ds.Bands()
	if len(bands) < qaBandCount {
		return nil, resolved, fmt.Errorf("quality product has %d bands, want %d", len(bands), qaBandCount)
	}
	st := ds.Structure()
	s0, ns, l0, nl := resolveRegion(region, st.SizeX, st.SizeY)
	resolved = [4]int{s0, ns, l0, nl}

	planes := albedotools.QualityPlanes{
		Quality:     make([]uint8, ns*nl),
		Snow:        make([]uint8, ns*nl),
		Ancillary:   make([]uint8, ns*nl),
		BandQuality: make([]uint32, ns*nl),
	}
	if err := bands[qaQualityBand].Read(s0, l0, planes.Quality, ns, nl); err != nil {
		return nil, resolved, err
	}
	if err := bands[qaSnowBand].Read(s0, l0, planes.Snow, ns, nl); err != nil {
		return nil, resolved, err
	}
	if err := bands[qaAncillaryBand].Read(s0, l0, planes.Ancillary, ns, nl); err != nil {
		return nil, resolved, err
	}
	if err := bands[qaBandQualityBand].Read(s0, l0, planes.BandQuality, ns, nl); err != nil {
		return nil, resolved, err
	}

	flags, err = albedotools.DecodeFlags(planes, ns, nl)
	return flags, resolved, err
}

// readParams reads the three kernel-parameter planes for each configured
// band. The data product lays its bands out parameter-innermost: dataset
// band index = spectral band * 3 + parameter.
func readParams(path string, region [4]int, bands []int) (params [][]float64, err error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	dsBands := ds.Bands()
	s0, ns, l0, nl := region[0], region[1], region[2], region[3]
	for _, b := range bands {
		for k := 0; k < albedotools.NumKernelParams; k++ {
			idx := b*albedotools.NumKernelParams + k
			if idx >= len(dsBands) {
				return nil, fmt.Errorf("band %d parameter %d: dataset has only %d bands", b, k, len(dsBands))
			}
			buf := make([]float64, ns*nl)
			if err := dsBands[idx].Read(s0, l0, buf, ns, nl); err != nil {
				return nil, err
			}
			params = append(params, buf)
		}
	}
	return params, nil
}
