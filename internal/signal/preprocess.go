package signal

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Number is the set of element types accepted by the generic helpers.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// UnsupportedKindError is returned by FitToType for target types it cannot
// rescale into.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported target kind %q", e.Kind)
}

// BaselineCorrection subtracts a heavily smoothed copy of signal from itself,
// removing slow trends. A window of zero or less, or one longer than the
// signal, smooths over the whole signal.
func BaselineCorrection(signal []float64, window int) []float64 {
	if window <= 0 || window > len(signal) {
		window = len(signal)
	}
	smoothed := HammingSmoothNoCache(signal, window)
	out := make([]float64, len(signal))
	floats.SubTo(out, signal, smoothed)
	return out
}

func medianStd[T Number](data []T) (median, std float64, err error) {
	values := make(stats.Float64Data, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	if median, err = stats.Median(values); err != nil {
		return 0, 0, err
	}
	if std, err = stats.StandardDeviationPopulation(values); err != nil {
		return 0, 0, err
	}
	return median, std, nil
}

// ThresholdOutliers clamps samples further than timesStd population standard
// deviations from the median.
//
// Samples above the band are clamped first. Samples below the median are then
// clamped to the lower bound. Clamped values are converted to T, so integer
// inputs are truncated. Empty input is returned as an empty copy.
func ThresholdOutliers[T Number](data []T, timesStd float64) []T {
	out := slices.Clone(data)
	median, std, err := medianStd(data)
	if err != nil {
		return out
	}
	limit := timesStd * std

	for i, v := range out {
		if float64(v)-median > limit {
			out[i] = T(median + limit)
		}
	}
	for i, v := range out {
		d := float64(v) - median
		if d < 0 && math.Abs(d) > limit {
			out[i] = T(median - limit)
		}
	}
	return out
}

// Outliers reports, per sample, whether it lies more than timesStd population
// standard deviations from the median. Empty input yields an empty mask.
func Outliers[T Number](data []T, timesStd float64) []bool {
	mask := make([]bool, len(data))
	median, std, err := medianStd(data)
	if err != nil {
		return mask
	}
	limit := timesStd * std
	for i, v := range data {
		mask[i] = math.Abs(float64(v)-median) > limit
	}
	return mask
}

// RemoveOutliers returns data without the samples flagged by Outliers. When
// the statistics cannot be computed the input is returned unchanged.
func RemoveOutliers[T Number](data []T, timesStd float64) []T {
	median, std, err := medianStd(data)
	if err != nil || math.IsNaN(median) || math.IsNaN(std) {
		return data
	}
	limit := timesStd * std
	out := make([]T, 0, len(data))
	for _, v := range data {
		if math.Abs(float64(v)-median) <= limit {
			out = append(out, v)
		}
	}
	return out
}

// Normalize shifts data to start at zero and divides by the resulting
// maximum. Constant input divides zero by zero and yields NaN.
func Normalize[T Number](data []T) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	for i, v := range data {
		out[i] = float64(v)
	}
	floats.AddConst(-floats.Min(out), out)
	peak := floats.Max(out)
	for i := range out {
		out[i] /= peak
	}
	return out
}

// FitToType rescales data into the value range of T.
//
// Floating point targets receive a plain conversion of the input. Integer
// targets receive the normalized data stretched over their full range, and
// bool targets are true where the normalized value exceeds one half. The
// 64-bit and platform sized integers cannot hold the stretched range exactly
// and are rejected with an *UnsupportedKindError, as is every other type.
func FitToType[T any](data []float64) ([]T, error) {
	var zero T
	var out any
	switch any(zero).(type) {
	case float64:
		out = slices.Clone(data)
	case float32:
		out = convert[float32](data)
	case uint8:
		out = stretchUnsigned[uint8](Normalize(data), 8)
	case uint16:
		out = stretchUnsigned[uint16](Normalize(data), 16)
	case uint32:
		out = stretchUnsigned[uint32](Normalize(data), 32)
	case int8:
		out = stretchSigned[int8](Normalize(data), 8)
	case int16:
		out = stretchSigned[int16](Normalize(data), 16)
	case int32:
		out = stretchSigned[int32](Normalize(data), 32)
	case bool:
		normalized := Normalize(data)
		mask := make([]bool, len(normalized))
		for i, v := range normalized {
			mask[i] = v > 0.5
		}
		out = mask
	default:
		return nil, &UnsupportedKindError{Kind: reflect.TypeOf((*T)(nil)).Elem().String()}
	}
	return out.([]T), nil
}

func convert[T Number](data []float64) []T {
	out := make([]T, len(data))
	for i, v := range data {
		out[i] = T(v)
	}
	return out
}

func stretchUnsigned[T uint8 | uint16 | uint32](normalized []float64, bits int) []T {
	full := math.Exp2(float64(bits)) - 1
	out := make([]T, len(normalized))
	for i, v := range normalized {
		out[i] = T(v * full)
	}
	return out
}

func stretchSigned[T int8 | int16 | int32](normalized []float64, bits int) []T {
	full := math.Exp2(float64(bits)) - 1
	offset := math.Exp2(float64(bits - 1))
	out := make([]T, len(normalized))
	for i, v := range normalized {
		out[i] = T(v*full - offset)
	}
	return out
}

// VerticalMean averages every row of m, giving one value per row.
func VerticalMean(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := range out {
		out[i] = stat.Mean(mat.Row(row, i, m), nil)
	}
	return out
}

// HorizontalMean averages every column of m, giving one value per column.
func HorizontalMean(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	col := make([]float64, rows)
	for j := range out {
		out[j] = stat.Mean(mat.Col(col, j, m), nil)
	}
	return out
}
