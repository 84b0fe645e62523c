package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"albedo-tools/albedoio"
	"albedo-tools/albedotools"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate multi-year kernel rasters into per-day weighted statistics",
	Long: `Scan the source directory for paired data/QA products for one tile,
	decode the quality flags into reliability weights, accumulate weighted
	sums across all configured years, and write per-day GeoTIFF bundles of
	weighted mean and standard deviation per band, parameter and coverage
	class (snow, snow-free, combined), plus a land-category summary.

	A file that fails to read is skipped with a warning; a day with no
	usable files is skipped entirely. Neither stops the run.

	Options of note:
		--shrink:      spatial block-averaging factor applied to both axes.
		--backupscale: base mapped onto QA codes, weight = base**code.
		--sdim:        sub-window [s0,ns,l0,nl]; -1 entries mean full extent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevels()

		cfg := configFromFlags()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return err
		}

		bar := progressbar.Default(int64(len(cfg.DOYs)), "days")
		for _, doy := range cfg.DOYs {
			processOneDay(cfg, doy)
			if err := bar.Add(1); err != nil {
				logrus.Debug(err)
			}
		}
		return nil
	},
}

// processOneDay runs discovery, aggregation and output for a single day of
// year. Every failure mode here is per-day: log it and move on.
func processOneDay(cfg albedotools.Config, doy int) {
	pairs := albedoio.DiscoverDayFiles(cfg, doy)
	src := albedoio.NewDaySource(cfg, pairs)

	res, err := albedotools.ProcessDay(cfg, doy, src)
	summaryPath := filepath.Join(cfg.OutDir, "summary.csv")
	switch {
	case errors.Is(err, albedotools.ErrNoUsableFiles):
		rows := []albedoio.DaySummary{{
			DOY:        doy,
			Class:      "-",
			FilesFound: len(pairs),
			Skipped:    true,
		}}
		if serr := albedoio.AppendSummary(summaryPath, rows); serr != nil {
			logrus.Error(serr)
		}
		return
	case err != nil:
		logrus.Errorf("doy %03d failed: %v", doy, err)
		return
	}

	land := res.Land
	if cfg.OutShrink > 1 {
		land = albedotools.Shrink(land, res.NS, res.NL, cfg.OutShrink)
	}

	var rows []albedoio.DaySummary
	for _, class := range cfg.Classes() {
		meta := albedoio.StatsMeta{
			Product: cfg.Product,
			Tile:    cfg.Tile,
			Version: cfg.Version,
			Class:   class,
			DOY:     doy,
			Years:   cfg.Years,
			Bands:   cfg.Bands,
		}
		path, werr := albedoio.WriteStats(cfg.OutDir, res.Stats[class].Shrink(cfg.OutShrink), land, meta)
		if werr != nil {
			logrus.Errorf("doy %03d %s: %v", doy, class, werr)
			continue
		}
		rows = append(rows, albedoio.DaySummary{
			DOY:        doy,
			Class:      class.String(),
			FilesFound: res.FilesFound,
			FilesUsed:  res.FilesUsed,
			SnowPixels: res.SnowPixels,
			Output:     path,
		})
	}
	if err := albedoio.AppendSummary(summaryPath, rows); err != nil {
		logrus.Error(err)
	}
}

func configFromFlags() albedotools.Config {
	cfg := albedotools.DefaultConfig()
	cfg.SrcDir = viper.GetString("srcdir")
	cfg.OutDir = viper.GetString("opdir")
	cfg.Product = viper.GetString("product")
	cfg.Tile = viper.GetString("tile")
	cfg.Version = viper.GetString("version")
	if years := viper.GetIntSlice("years"); len(years) > 0 {
		cfg.Years = years
	}
	if doys := viper.GetIntSlice("doys"); len(doys) > 0 {
		cfg.DOYs = doys
	}
	if bands := viper.GetIntSlice("bands"); len(bands) > 0 {
		cfg.Bands = bands
	}
	cfg.BackupBase = viper.GetFloat64("backupscale")
	cfg.Shrink = viper.GetInt("shrink")
	cfg.OutShrink = viper.GetInt("outshrink")
	cfg.MinVariance = viper.GetFloat64("minvar")
	cfg.MaxVariance = viper.GetFloat64("maxvar")
	cfg.Snow = viper.GetBool("snow")
	cfg.NoSnow = viper.GetBool("nosnow")
	cfg.Combined = viper.GetBool("combined")
	if sdim := viper.GetIntSlice("sdim"); len(sdim) == 4 {
		copy(cfg.Region[:], sdim)
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	defaults := albedotools.DefaultConfig()

	flags := aggregateCmd.Flags()
	flags.String("srcdir", defaults.SrcDir, "Source data directory")
	flags.String("opdir", defaults.OutDir, "Output directory")
	flags.String("product", defaults.Product, "Product name, e.g. MCD43A")
	flags.String("tile", defaults.Tile, "Tile ID, e.g. h18v03")
	flags.String("version", defaults.Version, "Product collection version string")
	flags.IntSlice("years", nil, "Years to process (default: all years 2000-2099)")
	flags.IntSlice("doys", nil, "Days of year to process (default: 1,9,...,361)")
	flags.IntSlice("bands", defaults.Bands, "Spectral band indices to process")
	flags.Float64("backupscale", defaults.BackupBase, "Weight base mapped onto QA codes")
	flags.Int("shrink", defaults.Shrink, "Spatial shrink factor (1 for none)")
	flags.Int("outshrink", defaults.OutShrink, "Further shrink factor applied to the finalized statistics")
	flags.Float64("minvar", defaults.MinVariance, "Variance floor for valid pixels")
	flags.Float64("maxvar", defaults.MaxVariance, "Variance ceiling for valid pixels")
	flags.Bool("snow", defaults.Snow, "Produce snow-only statistics")
	flags.Bool("nosnow", defaults.NoSnow, "Produce snow-free statistics")
	flags.Bool("combined", defaults.Combined, "Produce combined snow+snow-free statistics")
	flags.IntSlice("sdim", []int{-1, -1, -1, -1}, "Sub-window [s0,ns,l0,nl], -1 for full extent")

	for _, name := range []string{
		"srcdir", "opdir", "product", "tile", "version", "years", "doys",
		"bands", "backupscale", "shrink", "outshrink", "minvar", "maxvar",
		"snow", "nosnow", "combined", "sdim",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			logrus.Exit(1)
		}
	}
}
