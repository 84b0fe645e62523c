package albedotools

import (
	"errors"
	"fmt"
	"testing"
)

type fakeSource struct {
	samples []*FileSample
	errs    []error
}

func (f *fakeSource) Len() int { return len(f.samples) }

func (f *fakeSource) Sample(i int) (*FileSample, error) {
	if f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.samples[i], nil
}

func dayConfig() Config {
	cfg := DefaultConfig()
	cfg.Bands = []int{0}
	cfg.MinVariance = testMinVar
	cfg.MaxVariance = testMaxVar
	return cfg
}

// daySample decodes a 2x2 sample: a snow-free land pixel, a snow pixel, a
// deep-ocean pixel and a snow-free shoreline pixel.
func daySample(t *testing.T, f0 float64) *FileSample {
	t.Helper()
	flags, err := DecodeFlags(QualityPlanes{
		Quality:     []uint8{0, 0, 0, 0},
		Snow:        []uint8{0, 1, 0, 0},
		Ancillary:   []uint8{1 << 4, 1 << 4, 7 << 4, 2 << 4},
		BandQuality: []uint32{0, 0, 0, 1},
	}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	raw := []float64{f0, f0, f0, f0}
	pad := []float64{100, 100, 100, 100}
	s, err := NewFileSample(flags, 0.5, []plane{raw, pad, pad}, 1)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestProcessDayNoFiles(t *testing.T) {
	res, err := ProcessDay(dayConfig(), 1, &fakeSource{})
	if !errors.Is(err, ErrNoUsableFiles) {
		t.Fatalf("got %v, want ErrNoUsableFiles", err)
	}
	if res.State != DaySkipped {
		t.Errorf("state: got %v, want Skipped", res.State)
	}
	if len(res.Stats) != 0 {
		t.Errorf("skipped day produced %d stats bundles", len(res.Stats))
	}
}

func TestProcessDayAllFilesFail(t *testing.T) {
	src := &fakeSource{
		samples: []*FileSample{nil, nil},
		errs:    []error{fmt.Errorf("corrupt"), fmt.Errorf("short read")},
	}
	res, err := ProcessDay(dayConfig(), 9, src)
	if !errors.Is(err, ErrNoUsableFiles) {
		t.Fatalf("got %v, want ErrNoUsableFiles", err)
	}
	if res.State != DaySkipped || res.FilesUsed != 0 {
		t.Errorf("got state %v used %d, want Skipped 0", res.State, res.FilesUsed)
	}
}

func TestProcessDayCompleted(t *testing.T) {
	cfg := dayConfig()
	src := &fakeSource{
		samples: []*FileSample{daySample(t, 1000), daySample(t, 1000)},
		errs:    []error{nil, nil},
	}
	res, err := ProcessDay(cfg, 17, src)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != DayCompleted {
		t.Fatalf("state: got %v, want Completed", res.State)
	}
	if res.FilesUsed != 2 {
		t.Errorf("files used: got %d, want 2", res.FilesUsed)
	}
	if res.SnowPixels != 2 {
		t.Errorf("snow pixels: got %d, want 2", res.SnowPixels)
	}
	if len(res.Stats) != 3 {
		t.Fatalf("got %d stats bundles, want 3", len(res.Stats))
	}

	// Deep-ocean pixel 2 never contributes anywhere.
	for class, st := range res.Stats {
		if w := st.WeightPlane(0, 0)[2]; w != 0 {
			t.Errorf("%s: deep ocean pixel carries weight %v", class, w)
		}
	}
	// The snow pixel only reaches the snow and combined classes.
	if w := res.Stats[NoSnowClass].WeightPlane(0, 0)[1]; w != 0 {
		t.Errorf("snow pixel leaked into NoSnow with weight %v", w)
	}
	if w := res.Stats[SnowClass].WeightPlane(0, 0)[1]; w != 2 {
		t.Errorf("snow class weight: got %v, want 2", w)
	}

	// Both files agree, so the mean is the data value and the std-dev sits
	// on the floor.
	if got := res.Stats[CombinedClass].MeanPlane(0, 0)[0]; got != 1.0 {
		t.Errorf("mean: got %v, want 1", got)
	}

	// Land summary: categories from the votes, zero where nothing voted.
	want := []float64{1, 1, 0, 2}
	if !floatsEqual(res.Land, want) {
		t.Errorf("land summary: got %v, want %v", res.Land, want)
	}
}

func TestProcessDayPartialFailure(t *testing.T) {
	src := &fakeSource{
		samples: []*FileSample{nil, daySample(t, 2000)},
		errs:    []error{fmt.Errorf("unreadable"), nil},
	}
	res, err := ProcessDay(dayConfig(), 25, src)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != DayCompleted || res.FilesUsed != 1 {
		t.Errorf("got state %v used %d, want Completed 1", res.State, res.FilesUsed)
	}
	// A single contributor pins the std-dev to the variance floor.
	st := res.Stats[CombinedClass]
	if got := st.MeanPlane(0, 0)[0]; got != 2.0 {
		t.Errorf("mean: got %v, want 2", got)
	}
}
