package albedotools

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// DayState is the terminal state of one day's processing.
type DayState int

const (
	DayCompleted DayState = iota
	DaySkipped
)

func (s DayState) String() string {
	if s == DaySkipped {
		return "Skipped"
	}
	return "Completed"
}

// SampleSource yields decoded per-file samples for one day, in discovery
// order. Implementations read one file per call; the driver holds at most
// one sample at a time and releases it after accumulation.
type SampleSource interface {
	Len() int
	Sample(i int) (*FileSample, error)
}

// DayResult is the output of one day's aggregation, handed to the writer.
type DayResult struct {
	DOY    int
	State  DayState
	Stats  map[CoverageClass]*FinalStats
	Land   []float64 // land-category summary at the reduced extent
	NS, NL int       // reduced extent

	FilesFound int
	FilesUsed  int
	SnowPixels int
}

// Land categories that take part in the summary vote. Deep-ocean pixels
// never reach this point: they are masked out at decode time.
var summaryCategories = [...]uint8{1, 2, 3}

// ProcessDay runs the per-day state machine: produce one sample per
// discovered file, accumulate it into every enabled coverage class, then
// finalize. A file that fails to read or decode is skipped with a warning;
// a day with zero usable files returns a DaySkipped result along with
// ErrNoUsableFiles so the caller can log and continue. An allocation
// failure aborts this day only.
func ProcessDay(cfg Config, doy int, src SampleSource) (*DayResult, error) {
	res := &DayResult{
		DOY:        doy,
		State:      DaySkipped,
		Stats:      make(map[CoverageClass]*FinalStats),
		FilesFound: src.Len(),
	}
	if res.FilesFound == 0 {
		logrus.Warnf("doy %03d: no input files discovered", doy)
		return res, ErrNoUsableFiles
	}

	classes := cfg.Classes()
	var accs map[CoverageClass]*Accumulator
	var landVotes [len(summaryCategories)][]float64

	for i := 0; i < res.FilesFound; i++ {
		s, err := src.Sample(i)
		if err != nil {
			logrus.Warnf("doy %03d: skipping file %d/%d: %v", doy, i+1, res.FilesFound, err)
			continue
		}
		if accs == nil {
			accs = make(map[CoverageClass]*Accumulator, len(classes))
			for _, class := range classes {
				acc, err := NewAccumulator(class, res.FilesFound, s.NB, s.NS, s.NL, cfg.Shrink)
				if err != nil {
					return nil, err
				}
				accs[class] = acc
			}
			for c := range landVotes {
				landVotes[c] = make([]float64, s.NS*s.NL)
			}
			res.NS = s.NS / cfg.Shrink
			res.NL = s.NL / cfg.Shrink
		}

		for c, cat := range summaryCategories {
			votes := landVotes[c]
			for p, l := range s.Land {
				if l == cat {
					votes[p] += s.Weight[p]
				}
			}
		}
		res.SnowPixels += s.SnowPixels()

		used := false
		for _, class := range classes {
			err := accs[class].Accumulate(i, s)
			switch {
			case err == nil:
				used = true
			case errors.Is(err, ErrEmptyContribution):
				logrus.Infof("doy %03d file %d/%d: %s: %v", doy, i+1, res.FilesFound, class, err)
			default:
				logrus.Warnf("doy %03d file %d/%d: %s: %v", doy, i+1, res.FilesFound, class, err)
			}
		}
		if used {
			res.FilesUsed++
		}
	}

	if res.FilesUsed == 0 {
		logrus.Warnf("doy %03d: %v", doy, ErrNoUsableFiles)
		return res, ErrNoUsableFiles
	}

	res.Land = summariseLand(landVotes, accs[classes[0]].fullNS, accs[classes[0]].fullNL, cfg.Shrink)
	for _, class := range classes {
		res.Stats[class] = Finalize(accs[class], cfg.MinVariance, cfg.MaxVariance)
	}
	res.State = DayCompleted
	return res, nil
}

// summariseLand reduces the per-category weighted votes and assigns each
// output pixel the winning category code (1-3), or zero where no votes
// landed.
func summariseLand(votes [len(summaryCategories)][]float64, ns, nl, shrink int) []float64 {
	var shrunk [len(summaryCategories)][]float64
	for c := range votes {
		shrunk[c] = Shrink(votes[c], ns, nl, shrink)
	}
	out := make([]float64, len(shrunk[0]))
	var cell [len(summaryCategories)]float64
	for p := range out {
		for c := range shrunk {
			cell[c] = shrunk[c][p]
		}
		if floats.Sum(cell[:]) > 0 {
			out[p] = float64(floats.MaxIdx(cell[:]) + 1)
		}
	}
	return out
}
