package albedoio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"albedo-tools/albedotools"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

var kernelParamNames = [albedotools.NumKernelParams]string{"F0", "F1", "F2"}

// WeightBandName labels the total-weight band in the BAND_n dataset
// metadata. Consumers locate the band by this name rather than by index,
// since its position depends on the band count.
const WeightBandName = "Weighted number of samples"

// StatsMeta describes one output bundle. It is carried into the file as
// metadata only; the core never computes from it.
type StatsMeta struct {
	Product string
	Tile    string
	Version string
	Class   albedotools.CoverageClass
	DOY     int
	Years   []int
	Bands   []int
}

// Filename follows the Kernels.<doy>.<version>.<tile>.<class>.tif scheme.
func (m StatsMeta) Filename() string {
	return fmt.Sprintf("Kernels.%03d.%s.%s.%s.tif", m.DOY, m.Version, m.Tile, m.Class)
}

// Description summarises the run for the output file's metadata.
func (m StatsMeta) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s MODIS Mean/SD %03d over the years %v version %s tile %s using input bands",
		m.Class, m.DOY, m.Years, m.Version, m.Tile)
	for _, band := range m.Bands {
		fmt.Fprintf(&b, " %d", band)
	}
	return b.String()
}

// bandNames lists the output band layout: interleaved mean/sd per (band,
// parameter), then the total weight, then the land summary.
func bandNames(nb int) []string {
	names := make([]string, 0, nb*albedotools.NumKernelParams*2+2)
	for b := 0; b < nb; b++ {
		for k := 0; k < albedotools.NumKernelParams; k++ {
			names = append(names,
				fmt.Sprintf("MEAN: BAND %d PARAMETER %s", b, kernelParamNames[k]),
				fmt.Sprintf("SD: BAND %d PARAMETER %s", b, kernelParamNames[k]))
		}
	}
	return append(names, WeightBandName, "land mask")
}

// WriteStats writes a finalized statistics bundle plus the land summary to
// a deflate-compressed Float32 GTiff and returns its path. The file is
// only created here, after finalization, so a skipped day leaves nothing
// behind.
func WriteStats(dir string, st *albedotools.FinalStats, land []float64, meta StatsMeta) (path string, err error) {
	godal.RegisterAll()
	path = filepath.Join(dir, meta.Filename())
	logrus.Infof("writing %s", path)

	names := bandNames(st.NB)
	ds, err := godal.Create(godal.GTiff, path, len(names), godal.Float32, st.NS, st.NL,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	bands := ds.Bands()
	idx := 0
	write := func(plane []float64) error {
		if werr := bands[idx].Write(0, 0, plane, st.NS, st.NL); werr != nil {
			return werr
		}
		idx++
		return nil
	}
	for b := 0; b < st.NB; b++ {
		for k := 0; k < albedotools.NumKernelParams; k++ {
			if err := write(st.MeanPlane(b, k)); err != nil {
				return "", err
			}
			if err := write(st.StdDevPlane(b, k)); err != nil {
				return "", err
			}
		}
	}
	// The weight band carries the first (band, parameter) plane; the
	// weight is identical across parameters wherever data exists.
	if err := write(st.WeightPlane(0, 0)); err != nil {
		return "", err
	}
	if err := write(land); err != nil {
		return "", err
	}

	if err := ds.SetMetadata("DESCRIPTION", meta.Description()); err != nil {
		return "", err
	}
	if err := ds.SetMetadata("DATA_IGNORE_VALUE", "-1.0"); err != nil {
		return "", err
	}
	for i, name := range names {
		if err := ds.SetMetadata(fmt.Sprintf("BAND_%d", i+1), name); err != nil {
			return "", err
		}
	}
	return path, nil
}
