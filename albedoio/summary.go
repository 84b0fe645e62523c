package albedoio

import (
	"os"

	"github.com/gocarina/gocsv"
)

// DaySummary is one row of the per-run summary CSV: what happened to one
// (day, coverage class) combination.
type DaySummary struct {
	DOY        int    `csv:"doy"`
	Class      string `csv:"class"`
	FilesFound int    `csv:"files_found"`
	FilesUsed  int    `csv:"files_used"`
	SnowPixels int    `csv:"snow_pixels"`
	Skipped    bool   `csv:"skipped"`
	Output     string `csv:"output"`
}

// AppendSummary appends rows to the run summary, writing the header only
// when the file is new.
func AppendSummary(path string, rows []DaySummary) error {
	if len(rows) == 0 {
		return nil
	}
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if fresh {
		return gocsv.MarshalFile(&rows, f)
	}
	return gocsv.MarshalWithoutHeaders(&rows, f)
}
