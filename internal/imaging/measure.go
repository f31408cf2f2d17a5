package imaging

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RegionStats contains intensity statistics of a region.
type RegionStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Size int     `json:"size"`
}

// MeasureRegion returns the mean and population standard deviation of the
// intensities of m inside r. The region is clipped to m; a region that does
// not overlap m yields NaN statistics and size 0.
func MeasureRegion(m mat.Matrix, r Region) RegionStats {
	rows, cols := m.Dims()
	r = Region{
		X1: max(r.X1, 0),
		Y1: max(r.Y1, 0),
		X2: min(r.X2, cols),
		Y2: min(r.Y2, rows),
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return RegionStats{Mean: math.NaN(), Std: math.NaN()}
	}

	values := make([]float64, 0, r.Width()*r.Height())
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			values = append(values, m.At(y, x))
		}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return RegionStats{Mean: mean, Std: std, Size: len(values)}
}

// WeightedMean combines region statistics into the size-weighted mean of
// their means. Regions of size 0 are ignored; NaN is returned when nothing
// remains.
func WeightedMean(regions []RegionStats) float64 {
	var sum, size float64
	for _, r := range regions {
		if r.Size == 0 {
			continue
		}
		sum += r.Mean * float64(r.Size)
		size += float64(r.Size)
	}
	if size == 0 {
		return math.NaN()
	}
	return sum / size
}
