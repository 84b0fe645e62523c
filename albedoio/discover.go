// Package albedoio handles the file-facing edges of the pipeline: product
// discovery on disk, godal-backed reading of QA and kernel-parameter
// planes, and writing of finalized statistics.
package albedoio

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"albedo-tools/albedotools"

	"github.com/sirupsen/logrus"
)

// FilePair is one year's (data, QA) product pair for a given day.
type FilePair struct {
	Year int
	Data string // the "1" product, kernel parameters
	QA   string // the "2" product, quality planes
}

// insensitiveGlob rewrites every letter of the pattern into a [xX]
// character class so that directory layouts with inconsistent casing still
// match. Malformed patterns match nothing.
func insensitiveGlob(pattern string) []string {
	var b strings.Builder
	for _, r := range pattern {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			fmt.Fprintf(&b, "[%c%c]", toLower(r), toUpper(r))
		} else {
			b.WriteRune(r)
		}
	}
	matches, err := filepath.Glob(b.String())
	if err != nil {
		logrus.Debugf("bad glob pattern %q: %v", pattern, err)
		return nil
	}
	return matches
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// DiscoverDayFiles locates the paired data/QA products for one day of year
// across all configured years. Three directory layouts are tried per year:
// the archive layout product/year/tile/<anything>/, a flat source
// directory, and product/year/. Years missing either half of the pair are
// logged and dropped. Pairs come back in ascending year order, which fixes
// the positional accumulator slots.
func DiscoverDayFiles(cfg albedotools.Config, doy int) []FilePair {
	var pairs []FilePair
	d := fmt.Sprintf("%03d", doy)
	for _, year := range cfg.Years {
		y := fmt.Sprintf("%d", year)
		data, qa := findPair(cfg, y, d)
		if len(data) == 0 || len(qa) == 0 {
			logrus.Debugf("doy %s year %s tile %s: inconsistent or missing data", d, y, cfg.Tile)
			continue
		}
		pairs = append(pairs, FilePair{Year: year, Data: data[0], QA: qa[0]})
		logrus.Infof("doy %s year %s: %s", d, y, data[0])
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Year < pairs[j].Year })
	return pairs
}

func findPair(cfg albedotools.Config, year, doy string) (data, qa []string) {
	stamp := "A" + year + doy
	layouts := []struct{ data, qa string }{
		{
			filepath.Join(cfg.SrcDir, cfg.Product+"1", year, cfg.Tile, "*",
				"*"+cfg.Product+"1."+stamp+"."+cfg.Tile+"."+cfg.Version+".*.hdf"),
			filepath.Join(cfg.SrcDir, cfg.Product+"2", year, cfg.Tile, "*",
				"*"+cfg.Product+"2."+stamp+"."+cfg.Tile+"."+cfg.Version+".*.hdf"),
		},
		{
			filepath.Join(cfg.SrcDir, "*"+cfg.Product+"1."+stamp+"."+cfg.Tile+"."+cfg.Version+".*.hdf"),
			filepath.Join(cfg.SrcDir, "*"+cfg.Product+"2."+stamp+"."+cfg.Tile+"."+cfg.Version+".*.hdf"),
		},
		{
			filepath.Join(cfg.SrcDir, "*"+cfg.Product+"1", year, "*."+stamp+"."+cfg.Tile+".*hdf"),
			filepath.Join(cfg.SrcDir, "*"+cfg.Product+"2", year, "*."+stamp+"."+cfg.Tile+".*hdf"),
		},
	}
	for _, l := range layouts {
		data, qa = insensitiveGlob(l.data), insensitiveGlob(l.qa)
		if len(data) > 0 && len(qa) > 0 {
			return data, qa
		}
	}
	return nil, nil
}
