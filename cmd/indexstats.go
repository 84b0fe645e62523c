package cmd

import (
	"albedo-tools/cellindex"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var s2Level int
var indexWorkers int
var meanBand int
var weightBand int

// indexstatsCmd represents the indexstats command
var indexstatsCmd = &cobra.Command{
	Use:   "indexstats [stats_tif] [output_parquet]",
	Short: "Index a finalized statistics raster into S2 cells",
	Long: `Map every valid pixel of a statistics GeoTIFF produced by the
	aggregate command to its S2 cell and write per-cell weighted means to a
	parquet file. Pixels with zero total weight never contribute; the
	raster's own weight band drives the weighting.

	Options:
		--s2Lvl:      S2 cell level, essentially output resolution.
		--numWorkers: Workers for parallel block processing. Not recommended
									to exceed number of CPU cores.
		--meanBand:   Zero-based index of the mean band to export.
		--weightBand: Zero-based index of the total-weight band. The default
									of -1 resolves it from the file's band metadata.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevels()

		sink := func(cells <-chan cellindex.CellStat) error {
			return cellindex.StreamToParquet(cells, args[1])
		}
		opts := cellindex.Options{
			Level:      s2Level,
			Workers:    indexWorkers,
			MeanBand:   meanBand,
			WeightBand: weightBand,
		}
		return cellindex.IndexStatsRaster(args[0], opts, sink)
	},
}

func init() {
	rootCmd.AddCommand(indexstatsCmd)

	indexstatsCmd.Flags().IntVarP(&s2Level, "s2Lvl", "l", 11, "S2 cell level to generate results for")
	err := viper.BindPFlag("s2Lvl", indexstatsCmd.Flags().Lookup("s2Lvl"))
	if err != nil {
		logrus.Exit(1)
	}

	indexstatsCmd.Flags().IntVarP(&indexWorkers, "numWorkers", "n", 8, "Number of workers for parallel block processing")
	err = viper.BindPFlag("numWorkers", indexstatsCmd.Flags().Lookup("numWorkers"))
	if err != nil {
		logrus.Exit(1)
	}

	indexstatsCmd.Flags().IntVarP(&meanBand, "meanBand", "m", 0, "Zero-based index of the mean band")
	err = viper.BindPFlag("meanBand", indexstatsCmd.Flags().Lookup("meanBand"))
	if err != nil {
		logrus.Exit(1)
	}

	indexstatsCmd.Flags().IntVarP(&weightBand, "weightBand", "w", -1, "Zero-based index of the weight band (-1: resolve from band metadata)")
	err = viper.BindPFlag("weightBand", indexstatsCmd.Flags().Lookup("weightBand"))
	if err != nil {
		logrus.Exit(1)
	}
}
