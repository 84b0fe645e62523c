// Package cellindex exports a finalized statistics raster into S2 cells:
// every pixel with a positive weight is mapped to its containing cell at a
// configured level, and per-cell weighted means are streamed to a sink.
package cellindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"albedo-tools/albedoio"

	"github.com/airbusgeo/godal"
	"github.com/golang/geo/s2"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options configures one export run.
type Options struct {
	Level    int // S2 cell level, essentially output resolution
	Workers  int
	MeanBand int // zero-based band index of the mean plane
	// WeightBand is the zero-based index of the total-weight plane. A
	// negative value resolves the band from the BAND_n dataset metadata;
	// its position depends on the band count, so there is no usable static
	// default.
	WeightBand int
}

// CellStat is the aggregate for one S2 cell.
type CellStat struct {
	Cell   s2.CellID
	Mean   float64 // weighted by the raster's own weight plane
	Weight float64 // summed weight of the contributing pixels
	Pixels int64
}

type point struct {
	lat float64
	lng float64
}

type pixelValue struct {
	cell   s2.CellID
	value  float64
	weight float64
}

type rasterBands struct {
	mean   *godal.Band
	weight *godal.Band
	origin point
	xRes   float64
	yRes   float64
	mu     sync.Mutex
}

// IndexStatsRaster reads the stats raster at path, aggregates it into S2
// cells and hands the per-cell results to sink as a channel. Zero-weight
// pixels never contribute.
func IndexStatsRaster(path string, opts Options, sink func(<-chan CellStat) error) (err error) {
	godal.RegisterAll()

	ds, err := godal.Open(path)
	if err != nil {
		logrus.Error(err)
		return err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	bands := ds.Bands()
	if opts.WeightBand < 0 {
		wb, err := weightBandIndex(len(bands), func(key string) string { return ds.Metadata(key) })
		if err != nil {
			logrus.Error(err)
			return err
		}
		opts.WeightBand = wb
	}
	if opts.MeanBand >= len(bands) || opts.WeightBand >= len(bands) {
		return fmt.Errorf("stats raster has %d bands, want mean %d and weight %d",
			len(bands), opts.MeanBand, opts.WeightBand)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		logrus.Error(err)
		return err
	}
	raster := &rasterBands{
		mean:   &bands[opts.MeanBand],
		weight: &bands[opts.WeightBand],
		origin: point{gt[3], gt[0]},
		xRes:   gt[1],
		yRes:   gt[5],
	}

	blocks := genBlocks(raster)
	pixels := processBlocks(raster, blocks, opts)
	cells := aggregateCells(groupByCell(pixels))

	out := make(chan CellStat)
	go func() {
		defer close(out)
		for _, c := range cells {
			out <- c
		}
	}()
	return sink(out)
}

// Produce blocks from the mean band serially; the parallelism worth having
// is in the per-block pixel work downstream.
func genBlocks(raster *rasterBands) <-chan godal.Block {
	blocks := make(chan godal.Block)
	firstBlock := raster.mean.Structure().FirstBlock()
	go func() {
		defer close(blocks)
		for block, ok := firstBlock, true; ok; block, ok = block.Next() {
			blocks <- block
		}
	}()
	return blocks
}

func processBlocks(raster *rasterBands, blocks <-chan godal.Block, opts Options) chan pixelValue {
	struc := raster.mean.Structure()
	resCh := make(chan pixelValue, struc.BlockSizeX*struc.BlockSizeY)
	var wg sync.WaitGroup

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for block := range blocks {
				logrus.Debugf("indexing block at [%v, %v]", block.X0, block.Y0)
				if err := indexBlock(raster, block, opts.Level, resCh); err != nil {
					logrus.Error(err)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()
	return resCh
}

func indexBlock(raster *rasterBands, block godal.Block, level int, resCh chan<- pixelValue) error {
	meanBuf := make([]float64, block.W*block.H)
	weightBuf := make([]float64, block.W*block.H)
	if err := lockedRead(raster, block, meanBuf, weightBuf); err != nil {
		return err
	}

	for pix := 0; pix < block.W*block.H; pix++ {
		if weightBuf[pix] <= 0 {
			continue
		}
		// GDAL is row-major
		row := pix / block.W
		col := pix % block.W

		lat := raster.origin.lat + (float64(block.Y0+row)+0.5)*raster.yRes
		lng := raster.origin.lng + (float64(block.X0+col)+0.5)*raster.xRes

		latLng := s2.LatLngFromDegrees(lat, lng)
		cell := s2.CellIDFromLatLng(latLng).Parent(level)
		resCh <- pixelValue{cell, meanBuf[pix], weightBuf[pix]}
	}
	return nil
}

// Locking is required to read from compressed rasters.
func lockedRead(raster *rasterBands, block godal.Block, meanBuf, weightBuf []float64) error {
	raster.mu.Lock()
	defer raster.mu.Unlock()
	if err := raster.mean.Read(block.X0, block.Y0, meanBuf, block.W, block.H); err != nil {
		return err
	}
	return raster.weight.Read(block.X0, block.Y0, weightBuf, block.W, block.H)
}

// weightBandIndex locates the total-weight band by scanning the BAND_n
// dataset metadata written alongside the statistics.
func weightBandIndex(nBands int, meta func(key string) string) (int, error) {
	for i := 0; i < nBands; i++ {
		if meta(fmt.Sprintf("BAND_%d", i+1)) == albedoio.WeightBandName {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no %q band in metadata; pass the weight band index explicitly",
		albedoio.WeightBandName)
}

type cellGroup struct {
	values  []float64
	weights []float64
}

func groupByCell(pixels <-chan pixelValue) map[s2.CellID]*cellGroup {
	groups := make(map[s2.CellID]*cellGroup)
	for px := range pixels {
		g, ok := groups[px.cell]
		if !ok {
			g = &cellGroup{}
			groups[px.cell] = g
		}
		g.values = append(g.values, px.value)
		g.weights = append(g.weights, px.weight)
	}
	return groups
}

// aggregateCells reduces each group to its weighted mean, sorted by cell ID
// so output order is reproducible.
func aggregateCells(groups map[s2.CellID]*cellGroup) []CellStat {
	cells := make([]CellStat, 0, len(groups))
	for id, g := range groups {
		cells = append(cells, CellStat{
			Cell:   id,
			Mean:   stat.Mean(g.values, g.weights),
			Weight: floats.Sum(g.weights),
			Pixels: int64(len(g.values)),
		})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Cell < cells[j].Cell })
	return cells
}
