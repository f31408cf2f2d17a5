package cells

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/mmcells/internal/detection"
	"github.com/ironsheep/mmcells/internal/imaging"
	"github.com/ironsheep/mmcells/internal/tunable"
)

// channelFrame returns a 250x30 frame with a bright background and a
// channel at columns 10-18, rows 30-230, holding two dark cells.
func channelFrame() *mat.Dense {
	const background, depth, shoulder = 200.0, 150.0, 6
	bands := [][2]int{{40, 90}, {110, 160}}

	frame := mat.NewDense(250, 30, nil)
	for r := 0; r < 250; r++ {
		for c := 0; c < 30; c++ {
			frame.Set(r, c, background)
		}
	}
	for r := 0; r < 200; r++ {
		v := background
		for _, b := range bands {
			switch {
			case r >= b[0] && r < b[1]:
				v = background - depth
			case r >= b[0]-shoulder && r < b[0]:
				v = math.Min(v, background-depth*0.5*(1+math.Cos(math.Pi*float64(b[0]-r)/shoulder)))
			case r >= b[1] && r < b[1]+shoulder:
				v = math.Min(v, background-depth*0.5*(1+math.Cos(math.Pi*float64(r-b[1]+1)/shoulder)))
			}
		}
		for c := 10; c < 18; c++ {
			frame.Set(30+r, c, v)
		}
	}
	return frame
}

func newTestChannel(t *testing.T, calibration float64) *StaticChannel {
	t.Helper()
	ch, err := NewStaticChannel(channelFrame(), imaging.Region{X1: 10, Y1: 30, X2: 18, Y2: 230}, calibration)
	require.NoError(t, err)
	return ch
}

// unboundedChannel knows nothing about its frame columns.
type unboundedChannel struct{ img *mat.Dense }

func (u unboundedChannel) Image() *mat.Dense            { return u.img }
func (u unboundedChannel) Top() float64                 { return 5 }
func (u unboundedChannel) Centroid() (x, y float64)     { return 3, 0 }
func (u unboundedChannel) MuToPixel(mu float64) float64 { return mu }

func TestNewStaticChannel(t *testing.T) {
	t.Parallel()

	ch := newTestChannel(t, 0.1)
	rows, cols := ch.Image().Dims()
	assert.Equal(t, 200, rows)
	assert.Equal(t, 8, cols)
	assert.Equal(t, 30.0, ch.Top())

	x, y := ch.Centroid()
	assert.Equal(t, 14.0, x)
	assert.Equal(t, 130.0, y)
	assert.InDelta(t, 10.0, ch.MuToPixel(1.0), 1e-12)

	uncalibrated := &StaticChannel{}
	assert.Equal(t, 2.5, uncalibrated.MuToPixel(2.5))

	_, err := NewStaticChannel(channelFrame(), imaging.Region{X1: 0, Y1: 0, X2: 40, Y2: 10}, 0.1)
	assert.Error(t, err)
}

func TestNew_DetectsCells(t *testing.T) {
	t.Parallel()

	ch := newTestChannel(t, 0.1)
	c := New(ch, detection.NewDetector(nil, nil), nil)

	require.Equal(t, 2, c.Len())
	if diff := cmp.Diff([][2]float64{{32, 99}, {101, 168}}, c.Bounds()); diff != "" {
		t.Errorf("Bounds() mismatch (-want +got):\n%s", diff)
	}

	first := c.At(0)
	assert.Equal(t, 62.0, first.Top())
	assert.Equal(t, 129.0, first.Bottom())
	assert.Equal(t, 67.0, first.Length())
	assert.Equal(t, 95.5, first.Centroid1D())
	assert.Same(t, ch, first.Channel())

	if diff := cmp.Diff([][2]float64{{14, 95.5}, {14, 164.5}}, c.Centroids()); diff != "" {
		t.Errorf("Centroids() mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, c.Analysis())
	assert.Len(t, c.Analysis().Segments, 2)
}

func TestNew_MinimalLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		calibration float64
		minimalMu   float64
		want        int
	}{
		{"default keeps both", 0.1, 1.0, 2},
		{"fine calibration drops both", 0.01, 1.0, 0},
		{"long minimum drops both", 0.1, 7.0, 0},
		{"limit just below length", 0.1, 6.6, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tunable.New()
			cfg.Set(TunableMinimalLength, tt.minimalMu)

			c := New(newTestChannel(t, tt.calibration), detection.NewDetector(cfg, nil), cfg)
			assert.Equal(t, tt.want, c.Len())
			assert.Contains(t, cfg.Defaults(), TunableMinimalLength)
		})
	}
}

func TestCell_Image(t *testing.T) {
	t.Parallel()

	c := New(newTestChannel(t, 0.1), detection.NewDetector(nil, nil), nil)
	img, err := c.At(0).Image()
	require.NoError(t, err)

	rows, cols := img.Dims()
	assert.Equal(t, 67, rows)
	assert.Equal(t, 8, cols)
	assert.Equal(t, 50.0, img.At(30, 0))

	_, err = NewCell(10, 10, c.Channel()).Image()
	assert.Error(t, err, "empty cell has no image")
}

func TestRestoreAndSorted(t *testing.T) {
	t.Parallel()

	ch := newTestChannel(t, 0.1)
	c := Restore(ch, [][2]float64{{101, 168}, {5, 20}, {32, 99}})

	require.Equal(t, 3, c.Len())
	assert.Nil(t, c.Analysis())
	assert.Equal(t, 101.0, c.At(0).LocalTop, "restore keeps the given order")

	sorted := c.Sorted()
	tops := []float64{sorted[0].LocalTop, sorted[1].LocalTop, sorted[2].LocalTop}
	assert.Equal(t, []float64{5, 32, 101}, tops)
	assert.True(t, sorted[0].Less(sorted[1]))
	assert.False(t, sorted[2].Less(sorted[1]))

	// All returns a copy
	all := c.All()
	all[0].LocalTop = -1
	assert.Equal(t, 101.0, c.At(0).LocalTop)
}

func TestClean(t *testing.T) {
	t.Parallel()

	c := New(newTestChannel(t, 0.1), detection.NewDetector(nil, nil), nil)
	c.Clean()
	assert.Nil(t, c.Analysis())
	assert.Equal(t, 2, c.Len())
}

func TestCell_Fluorescence(t *testing.T) {
	t.Parallel()

	ch := newTestChannel(t, 0.1)
	c := New(ch, detection.NewDetector(nil, nil), nil)

	// fluorescence frame: 2 everywhere, 10 inside the first cell
	fl := mat.NewDense(250, 30, nil)
	for r := 0; r < 250; r++ {
		for col := 0; col < 30; col++ {
			v := 2.0
			if r >= 62 && r < 129 && col >= 10 && col < 18 {
				v = 10
			}
			fl.Set(r, col, v)
		}
	}

	got := c.Fluorescence([]mat.Matrix{fl, nil})
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, 10.0, first[0].Mean)
	assert.Equal(t, 0.0, first[0].Std)
	assert.Equal(t, 67*8, first[0].Size)
	assert.True(t, math.IsNaN(first[1].Mean), "missing frame gives NaN")

	assert.Equal(t, 2.0, got[1][0].Mean)

	assert.Equal(t, []float64{8, math.Inf(1)}, SubtractBackground(
		[]imaging.RegionStats{{Mean: 10}, {Mean: math.Inf(1)}}, []float64{2}))
}

func TestCell_FluorescenceWithoutColumns(t *testing.T) {
	t.Parallel()

	ch := unboundedChannel{img: mat.NewDense(10, 2, nil)}
	cell := NewCell(1, 5, ch)

	_, ok := cell.FrameRegion()
	assert.False(t, ok)

	got := cell.Fluorescence([]mat.Matrix{mat.NewDense(20, 20, nil)})
	assert.True(t, math.IsNaN(got[0].Mean))

	assert.Equal(t, 6.0, cell.Top())
	x, y := cell.Centroid()
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 8.0, y)
}

func TestBackgroundFluorescence(t *testing.T) {
	t.Parallel()

	// every pixel holds its column index
	frame := mat.NewDense(12, 10, nil)
	for r := 0; r < 12; r++ {
		for col := 0; col < 10; col++ {
			frame.Set(r, col, float64(col))
		}
	}
	channel := func(left, right, top, rows int) Bounded {
		return &StaticChannel{
			ChannelImage: mat.NewDense(rows, right-left, nil),
			Offset:       float64(top),
			Left:         left,
			Right:        right,
		}
	}

	channels := []Bounded{
		channel(0, 2, 0, 10),
		channel(4, 6, 0, 10),
		channel(7, 9, 0, 4),
	}
	// gaps: columns 2-3 over 10 rows (mean 2.5) and column 6 over 4 rows
	assert.InDelta(t, (2.5*20+6*4)/24.0, BackgroundFluorescence(frame, channels), 1e-12)

	assert.Equal(t, 0.0, BackgroundFluorescence(frame, channels[:1]))
	assert.Equal(t, 0.0, BackgroundFluorescence(nil, channels))

	touching := []Bounded{channel(0, 2, 0, 10), channel(2, 4, 0, 10)}
	assert.True(t, math.IsNaN(BackgroundFluorescence(frame, touching)))
}
