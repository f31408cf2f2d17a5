package detection

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/mmcells/internal/tunable"
)

// createChannelMatrix creates a channel image with a bright background and a
// dark cell body for each band. Band edges fall off with a cosine shoulder of
// the given width.
func createChannelMatrix(rows, cols int, bands [][2]int, shoulder int) *mat.Dense {
	const background, depth = 200.0, 150.0

	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		v := background
		for _, b := range bands {
			begin, end := b[0], b[1]
			switch {
			case r >= begin && r < end:
				v = background - depth
			case r >= begin-shoulder && r < begin:
				v = math.Min(v, background-depth*0.5*(1+math.Cos(math.Pi*float64(begin-r)/float64(shoulder))))
			case r >= end && r < end+shoulder:
				v = math.Min(v, background-depth*0.5*(1+math.Cos(math.Pi*float64(r-end+1)/float64(shoulder))))
			}
		}
		for c := 0; c < cols; c++ {
			m.Set(r, c, v)
		}
	}
	return m
}

// createUniformMatrix creates a channel image with the same value everywhere
func createUniformMatrix(rows, cols int, v float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, v)
		}
	}
	return m
}

func TestFindCells_TwoCells(t *testing.T) {
	img := createChannelMatrix(200, 8, [][2]int{{40, 90}, {110, 160}}, 6)
	det := NewDetector(nil, nil)

	got := det.FindCells(img)
	want := []Segment{{32, 99}, {101, 168}}

	if len(got) != len(want) {
		t.Fatalf("expected %d cells, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: got %v, want %v", i, got[i], want[i])
		}
	}

	// the midpoint of each detected cell should sit close to the band center
	centers := []float64{64.5, 134.5}
	for i, s := range got {
		mid := float64(s.Begin()+s.End()) / 2
		if math.Abs(mid-centers[i]) > 2 {
			t.Errorf("cell %d midpoint %v too far from band center %v", i, mid, centers[i])
		}
	}
}

func TestAnalyze_Intermediates(t *testing.T) {
	img := createChannelMatrix(200, 8, [][2]int{{40, 90}, {110, 160}}, 6)
	a := NewDetector(nil, nil).Analyze(img)

	if a.Skipped {
		t.Fatal("channel with cells should not be skipped")
	}
	for name, s := range map[string][]float64{
		"Profile":            a.Profile,
		"ThresholdedProfile": a.ThresholdedProfile,
		"BinaryProfile":      a.BinaryProfile,
		"ProcessedProfile":   a.ProcessedProfile,
	} {
		if len(s) != 200 {
			t.Errorf("%s: expected 200 samples, got %d", name, len(s))
		}
	}

	wantMaxima := []int{31, 100, 169}
	gotMaxima := a.Extrema.Maxima()
	if len(gotMaxima) != len(wantMaxima) {
		t.Fatalf("maxima: got %v, want %v", gotMaxima, wantMaxima)
	}
	for i := range wantMaxima {
		if gotMaxima[i] != wantMaxima[i] {
			t.Errorf("maxima: got %v, want %v", gotMaxima, wantMaxima)
			break
		}
	}

	if a.SplitPoints[len(a.SplitPoints)-1] != 200 {
		t.Errorf("last split point should be the profile length, got %v", a.SplitPoints)
	}

	if a.Threshold <= 50 || a.Threshold >= 200 {
		t.Errorf("threshold %v should separate cells from background", a.Threshold)
	}
	if a.BinaryProfile[0] != 1 || a.BinaryProfile[64] != 0 {
		t.Errorf("binary profile: background %v, cell %v", a.BinaryProfile[0], a.BinaryProfile[64])
	}

	for i, v := range a.ProcessedProfile {
		if v != math.RoundToEven(v*1e8)/1e8 {
			t.Errorf("processed profile sample %d not rounded: %v", i, v)
			break
		}
	}

	if len(a.Segments) != 2 {
		t.Errorf("expected 2 segments, got %v", a.Segments)
	}
}

func TestFindCells_SkipsEmptyChannel(t *testing.T) {
	cfg := tunable.New()
	cfg.Set(TunableSkipEmpty, true)
	det := NewDetector(cfg, nil)

	a := det.Analyze(createUniformMatrix(50, 8, 100))
	if !a.Skipped {
		t.Error("uniform channel should be skipped")
	}
	if len(a.Segments) != 0 {
		t.Errorf("skipped channel should have no cells, got %v", a.Segments)
	}
	if a.BinaryProfile != nil || a.ProcessedProfile != nil {
		t.Error("skipped channel should not run the later steps")
	}
}

func TestFindCells_SkippingKeepsCells(t *testing.T) {
	cfg := tunable.New()
	cfg.Set(TunableSkipEmpty, true)
	img := createChannelMatrix(200, 8, [][2]int{{40, 90}, {110, 160}}, 6)

	got := NewDetector(cfg, nil).FindCells(img)
	if len(got) != 2 {
		t.Errorf("channel with cells should not be skipped, got %v", got)
	}
}

func TestFindCells_UniformWithoutSkipping(t *testing.T) {
	got := NewDetector(nil, nil).FindCells(createUniformMatrix(50, 8, 100))
	if len(got) != 0 {
		t.Errorf("uniform channel should have no cells, got %v", got)
	}
}

func TestFindCells_ProminenceLimit(t *testing.T) {
	cfg := tunable.New()
	cfg.Set(TunableMinimumProminence, 1000.0)
	img := createChannelMatrix(200, 8, [][2]int{{40, 90}, {110, 160}}, 6)

	if got := NewDetector(cfg, nil).FindCells(img); len(got) != 0 {
		t.Errorf("no interval reaches the prominence limit, got %v", got)
	}
}

func TestFindCells_ShortChannels(t *testing.T) {
	tests := []struct {
		name string
		img  mat.Matrix
	}{
		{"one row", mat.NewDense(1, 3, []float64{1, 2, 3})},
		{"two rows", mat.NewDense(2, 2, []float64{1, 2, 3, 4})},
		{"three rows", mat.NewDense(3, 1, []float64{5, 1, 5})},
	}

	det := NewDetector(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := det.FindCells(tt.img); len(got) != 0 {
				t.Errorf("expected no cells, got %v", got)
			}
		})
	}
}

func TestParamsFromTunables(t *testing.T) {
	defaults := ParamsFromTunables(nil)
	want := Params{
		SkipEmptyChannels: false,
		OutlierTimesSigma: 2.0,
		RangeQuotient:     0.5,
		OtsuBias:          1.0,
		SmoothingLength:   10,
		ExtremaOrder:      15,
		MaximumBrightness: 0.5,
		MinimumProminence: 10.0,
	}
	if defaults != want {
		t.Errorf("defaults: got %+v, want %+v", defaults, want)
	}

	cfg := tunable.New()
	cfg.Set(TunableExtremaOrder, 7.0)
	cfg.Set(TunableOtsuBias, 1.2)
	p := ParamsFromTunables(cfg)
	if p.ExtremaOrder != 7 || p.OtsuBias != 1.2 {
		t.Errorf("overrides not applied: %+v", p)
	}

	// every threshold is recorded in the defaults map
	if got := len(cfg.Defaults()); got != 8 {
		t.Errorf("expected 8 recorded defaults, got %d", got)
	}

	cfg.SetForceDefaults(true)
	if ParamsFromTunables(cfg) != want {
		t.Error("forced defaults should ignore overrides")
	}
}

func TestSegmentAccessors(t *testing.T) {
	s := Segment{12, 40}
	if s.Begin() != 12 || s.End() != 40 || s.Length() != 28 {
		t.Errorf("unexpected accessors for %v", s)
	}
}
