package signal

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBaselineCorrection(t *testing.T) {
	got := BaselineCorrection([]float64{10, 11, 12, 11, 10}, 0)
	assert.InDeltaSlice(t, []float64{-1, 0.375, 1, -0.375, -0.96428571}, got, 1e-8)
}

func TestBaselineCorrectionWindowClamp(t *testing.T) {
	signal := []float64{10, 11, 12, 11, 10}
	whole := BaselineCorrection(signal, len(signal))

	assert.Equal(t, whole, BaselineCorrection(signal, -3), "negative window")
	assert.Equal(t, whole, BaselineCorrection(signal, 100), "oversized window")
	assert.Empty(t, BaselineCorrection(nil, 0))
}

func TestThresholdOutliers(t *testing.T) {
	data := []int{10, 9, 11, 40, 8, 12, 14, 7}

	got := ThresholdOutliers(data, 1.0)
	assert.Equal(t, []int{10, 9, 11, 20, 8, 12, 14, 7}, got)
	assert.Equal(t, []int{10, 9, 11, 40, 8, 12, 14, 7}, data, "input must not be modified")
}

func TestThresholdOutliersFloat(t *testing.T) {
	data := []float64{10, 9, 11, 40, 8, 12, 14, 7}
	median, std := 10.5, 10.092541
	got := ThresholdOutliers(data, 1.0)

	require.Len(t, got, len(data))
	assert.InDelta(t, median+std, got[3], 1e-5)
	for i, v := range got {
		if i != 3 {
			assert.Equal(t, data[i], v)
		}
	}
}

func TestThresholdOutliersLowerClamp(t *testing.T) {
	data := []float64{100, 101, 99, 100, 0, 100, 102}
	got := ThresholdOutliers(data, 1.0)

	median, std, err := medianStd(data)
	require.NoError(t, err)
	assert.InDelta(t, median-std, got[4], 1e-9)
	assert.Equal(t, 100.0, got[0])
}

func TestThresholdOutliersEmpty(t *testing.T) {
	assert.Empty(t, ThresholdOutliers([]float64{}, 2))
}

func TestOutliers(t *testing.T) {
	got := Outliers([]int{10, 9, 11, 40, 8, 12, 14, 7}, 1.0)
	want := []bool{false, false, false, true, false, false, false, false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Outliers mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveOutliers(t *testing.T) {
	got := RemoveOutliers([]int{10, 9, 11, 40, 8, 12, 14, 7}, 1.0)
	assert.Equal(t, []int{10, 9, 11, 8, 12, 14, 7}, got)
}

func TestRemoveOutliersFailsClosed(t *testing.T) {
	empty := []float64{}
	assert.Equal(t, empty, RemoveOutliers(empty, 1.0))

	withNaN := []float64{1, math.NaN(), 3}
	got := RemoveOutliers(withNaN, 1.0)
	assert.Len(t, got, 3, "statistics over NaN must leave the input unchanged")
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{2, 4, 6, 10})
	assert.Equal(t, []float64{0, 0.25, 0.5, 1}, got)

	ints := Normalize([]int{-5, 0, 5})
	assert.Equal(t, []float64{0, 0.5, 1}, ints)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := [][]float64{
		{0.1, 0.7, 0.3, 0.9},
		{-3.3, 12.1, 7, 7, 0.0001},
		{1e-9, 2e-9, 5e-9},
		{42, -42},
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %v", in)
	}
}

func TestNormalizeConstantIsNaN(t *testing.T) {
	for _, v := range Normalize([]float64{3, 3, 3}) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestFitToType(t *testing.T) {
	data := []float64{-7, 4, 18, 432}

	u8, err := FitToType[uint8](data)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 6, 14, 255}, u8)

	i8, err := FitToType[int8](data)
	require.NoError(t, err)
	assert.Equal(t, []int8{-128, -121, -113, 127}, i8)

	b, err := FitToType[bool](data)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, true}, b)

	f32, err := FitToType[float32](data)
	require.NoError(t, err)
	assert.Equal(t, []float32{-7, 4, 18, 432}, f32)

	f64, err := FitToType[float64](data)
	require.NoError(t, err)
	assert.Equal(t, data, f64)

	u16, err := FitToType[uint16](data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), u16[0])
	assert.Equal(t, uint16(math.MaxUint16), u16[3])

	i32, err := FitToType[int32](data)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), i32[0])
	assert.Equal(t, int32(math.MaxInt32), i32[3])
}

func TestFitToTypeUnsupported(t *testing.T) {
	tests := []struct {
		name string
		fit  func() error
		kind string
	}{
		{"string", func() error { _, err := FitToType[string]([]float64{1, 2}); return err }, "string"},
		{"int64", func() error { _, err := FitToType[int64]([]float64{1, 2}); return err }, "int64"},
		{"complex", func() error { _, err := FitToType[complex128]([]float64{1, 2}); return err }, "complex128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fit()
			var kindErr *UnsupportedKindError
			require.True(t, errors.As(err, &kindErr), "expected *UnsupportedKindError, got %v", err)
			assert.Equal(t, tt.kind, kindErr.Kind)
			assert.Contains(t, err.Error(), tt.kind)
		})
	}
}

func TestVerticalAndHorizontalMean(t *testing.T) {
	m := mat.NewDense(4, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	})

	assert.Equal(t, []float64{2.5, 6.5, 10.5, 14.5}, VerticalMean(m))
	assert.Equal(t, []float64{7, 8, 9, 10}, HorizontalMean(m))
}

func TestVerticalMeanOfSlice(t *testing.T) {
	m := mat.NewDense(3, 4, []float64{
		1, 1, 9, 9,
		2, 2, 9, 9,
		3, 3, 9, 9,
	})
	left := m.Slice(0, 3, 0, 2)
	assert.Equal(t, []float64{1, 2, 3}, VerticalMean(left))
}
