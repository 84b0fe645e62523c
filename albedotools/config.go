package albedotools

import (
	"fmt"
)

// DefaultBackupBase is the golden-ratio conjugate used to map quality
// exponents to weights, matching the MCD43 backup-algorithm convention.
const DefaultBackupBase = 0.61803398875

// Config holds every value the aggregation core recognises. Flag parsing
// lives in cmd; the core only ever sees this struct.
type Config struct {
	SrcDir  string
	OutDir  string
	Product string
	Tile    string
	Version string

	Years []int
	DOYs  []int
	Bands []int

	BackupBase  float64
	Shrink      int
	OutShrink   int // further block reduction of the finalized statistics
	MinVariance float64
	MaxVariance float64

	Snow     bool
	NoSnow   bool
	Combined bool

	// Region is an optional sub-window [s0, ns, l0, nl]. Entries of -1
	// default against the file extent.
	Region [4]int
}

func DefaultConfig() Config {
	years := make([]int, 0, 100)
	for y := 2000; y < 2100; y++ {
		years = append(years, y)
	}
	doys := make([]int, 0, 46)
	for d := 1; d < 366; d += 8 {
		doys = append(doys, d)
	}
	return Config{
		SrcDir:      "files",
		OutDir:      "results",
		Product:     "MCD43A",
		Tile:        "h18v03",
		Version:     "005",
		Years:       years,
		DOYs:        doys,
		Bands:       []int{0, 1, 2, 3, 4, 5, 6},
		BackupBase:  DefaultBackupBase,
		Shrink:      1,
		OutShrink:   1,
		MinVariance: 1e-5,
		MaxVariance: 1.0,
		Snow:        true,
		NoSnow:      true,
		Combined:    true,
		Region:      [4]int{-1, -1, -1, -1},
	}
}

func (c *Config) Validate() error {
	if c.Shrink < 1 {
		return fmt.Errorf("shrink factor must be >= 1, got %d", c.Shrink)
	}
	if c.OutShrink < 1 {
		return fmt.Errorf("output shrink factor must be >= 1, got %d", c.OutShrink)
	}
	if c.BackupBase <= 0 || c.BackupBase > 1 {
		return fmt.Errorf("backup base must be in (0,1], got %g", c.BackupBase)
	}
	if c.MinVariance <= 0 {
		return fmt.Errorf("minimum variance must be positive, got %g", c.MinVariance)
	}
	if c.MaxVariance <= c.MinVariance {
		return fmt.Errorf("maximum variance %g must exceed minimum variance %g",
			c.MaxVariance, c.MinVariance)
	}
	if len(c.Bands) == 0 {
		return fmt.Errorf("at least one band is required")
	}
	for _, b := range c.Bands {
		if b < 0 {
			return fmt.Errorf("band indices must be non-negative, got %d", b)
		}
	}
	if !c.Snow && !c.NoSnow && !c.Combined {
		return fmt.Errorf("all coverage classes disabled, nothing to do")
	}
	if len(c.DOYs) == 0 {
		return fmt.Errorf("at least one day of year is required")
	}
	return nil
}

// Classes returns the enabled coverage classes in a fixed order so that
// processing and logging stay deterministic.
func (c Config) Classes() []CoverageClass {
	var classes []CoverageClass
	if c.NoSnow {
		classes = append(classes, NoSnowClass)
	}
	if c.Snow {
		classes = append(classes, SnowClass)
	}
	if c.Combined {
		classes = append(classes, CombinedClass)
	}
	return classes
}
