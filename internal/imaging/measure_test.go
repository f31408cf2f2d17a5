package imaging

import (
	"math"
	"testing"
)

func TestMeasureRegion(t *testing.T) {
	m := countingMatrix(4, 4)

	tests := []struct {
		name     string
		r        Region
		wantMean float64
		wantStd  float64
		wantSize int
	}{
		{"single pixel", Region{1, 1, 2, 2}, 5, 0, 1},
		{"row", Region{0, 0, 4, 1}, 1.5, math.Sqrt(1.25), 4},
		{"whole matrix", Region{0, 0, 4, 4}, 7.5, math.Sqrt(21.25), 16},
		{"clipped", Region{2, 3, 10, 10}, 14.5, 0.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MeasureRegion(m, tt.r)
			if math.Abs(got.Mean-tt.wantMean) > 1e-12 {
				t.Errorf("Mean: got %v, want %v", got.Mean, tt.wantMean)
			}
			if math.Abs(got.Std-tt.wantStd) > 1e-12 {
				t.Errorf("Std: got %v, want %v", got.Std, tt.wantStd)
			}
			if got.Size != tt.wantSize {
				t.Errorf("Size: got %d, want %d", got.Size, tt.wantSize)
			}
		})
	}
}

func TestMeasureRegion_Outside(t *testing.T) {
	got := MeasureRegion(countingMatrix(4, 4), Region{5, 5, 8, 8})
	if got.Size != 0 || !math.IsNaN(got.Mean) || !math.IsNaN(got.Std) {
		t.Errorf("region outside the matrix should give NaN and size 0, got %+v", got)
	}
}

func TestWeightedMean(t *testing.T) {
	got := WeightedMean([]RegionStats{
		{Mean: 10, Size: 1},
		{Mean: 20, Size: 3},
		{Mean: math.NaN(), Size: 0},
	})
	if got != 17.5 {
		t.Errorf("WeightedMean: got %v, want 17.5", got)
	}

	if !math.IsNaN(WeightedMean(nil)) {
		t.Error("WeightedMean of nothing should be NaN")
	}
}
