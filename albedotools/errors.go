package albedotools

import (
	"errors"
	"fmt"
)

// ErrEmptyContribution reports that a file had no contributing pixels left
// for a coverage class after filtering. This is a valid degenerate outcome,
// not a file failure: the caller should log it and move on.
var ErrEmptyContribution = errors.New("no contributing pixels after coverage filtering")

// ErrNoUsableFiles reports that an entire day yielded no usable input, so
// the day is skipped. The run continues with the next day.
var ErrNoUsableFiles = errors.New("no usable files for this day")

// ShapeMismatchError reports an input plane whose length is inconsistent
// with the declared extent. Decoding stops without a partial result.
type ShapeMismatchError struct {
	Plane string
	Want  int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("plane %s: expected %d pixels, got %d", e.Plane, e.Want, e.Got)
}

// AllocationError reports that accumulator arrays could not be sized for
// the requested extent. Fatal for the day being processed, not for the run.
type AllocationError struct {
	NFiles, NB, NS, NL int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("cannot allocate accumulator for %d files x %d bands x %dx%d pixels",
		e.NFiles, e.NB, e.NS, e.NL)
}
