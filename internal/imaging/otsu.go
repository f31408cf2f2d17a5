package imaging

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// otsuBins is the number of histogram bins used by ThresholdOtsu.
const otsuBins = 256

// ThresholdOtsu returns the global threshold that maximizes the between-class
// variance of the intensities in m.
//
// The histogram spans the value range of m in 256 equal bins and the result
// is the center of the last bin of the lower class. Pixels strictly above the
// threshold are foreground. A constant matrix returns its value.
func ThresholdOtsu(m mat.Matrix) float64 {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return 0
	}
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			values = append(values, m.At(i, j))
		}
	}
	sort.Float64s(values)

	lo, hi := values[0], values[len(values)-1]
	if lo == hi {
		return lo
	}

	dividers := make([]float64, otsuBins+1)
	floats.Span(dividers, lo, hi)
	dividers[otsuBins] = math.Nextafter(hi, math.Inf(1))
	hist := stat.Histogram(nil, dividers, values, nil)

	width := (hi - lo) / otsuBins
	centers := make([]float64, otsuBins)
	for i := range centers {
		centers[i] = lo + width*(float64(i)+0.5)
	}

	// class weights and means accumulated from the low and the high end
	weightLow := make([]float64, otsuBins)
	meanLow := make([]float64, otsuBins)
	var w, s float64
	for i := 0; i < otsuBins; i++ {
		w += hist[i]
		s += hist[i] * centers[i]
		weightLow[i] = w
		meanLow[i] = s / w
	}
	weightHigh := make([]float64, otsuBins)
	meanHigh := make([]float64, otsuBins)
	w, s = 0, 0
	for i := otsuBins - 1; i >= 0; i-- {
		w += hist[i]
		s += hist[i] * centers[i]
		weightHigh[i] = w
		meanHigh[i] = s / w
	}

	best, idx := math.Inf(-1), 0
	for i := 0; i < otsuBins-1; i++ {
		d := meanLow[i] - meanHigh[i+1]
		v := weightLow[i] * weightHigh[i+1] * d * d
		if v > best {
			best, idx = v, i
		}
	}
	return centers[idx]
}
