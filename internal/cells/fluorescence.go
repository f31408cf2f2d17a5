package cells

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/mmcells/internal/imaging"
)

// FrameRegion returns the frame area covered by the cell. It reports false
// when the channel does not know its columns.
func (c Cell) FrameRegion() (imaging.Region, bool) {
	b, ok := c.channel.(Bounded)
	if !ok {
		return imaging.Region{}, false
	}
	left, right := b.Columns()
	top := b.Top()
	return imaging.Region{
		X1: left,
		Y1: int(top + c.LocalTop),
		X2: right,
		Y2: int(top + c.LocalBottom),
	}, true
}

// Fluorescence measures the cell in every fluorescence frame. Entries for
// nil frames, and all entries when the cell has no frame region, carry NaN
// statistics.
func (c Cell) Fluorescence(frames []mat.Matrix) []imaging.RegionStats {
	out := make([]imaging.RegionStats, len(frames))
	region, ok := c.FrameRegion()
	for i, f := range frames {
		if !ok || f == nil {
			out[i] = imaging.RegionStats{Mean: math.NaN(), Std: math.NaN()}
			continue
		}
		out[i] = imaging.MeasureRegion(f, region)
	}
	return out
}

// Fluorescence measures every cell in every fluorescence frame, indexed by
// cell, then frame.
func (c *Cells) Fluorescence(frames []mat.Matrix) [][]imaging.RegionStats {
	out := make([][]imaging.RegionStats, len(c.cells))
	for i, cell := range c.cells {
		out[i] = cell.Fluorescence(frames)
	}
	return out
}

// SubtractBackground returns the measured means minus the per-frame
// background.
func SubtractBackground(measured []imaging.RegionStats, background []float64) []float64 {
	out := make([]float64, len(measured))
	for i, m := range measured {
		bg := 0.0
		if i < len(background) {
			bg = background[i]
		}
		out[i] = m.Mean - bg
	}
	return out
}

// BackgroundFluorescence estimates the fluorescence background of frame
// from the gaps between neighbouring channels. Each gap spans the rows of the
// right-hand channel and the columns between the two channels; gaps are
// combined weighted by their size. Channels must be ordered left to right.
//
// Fewer than two channels give 0. NaN is returned when no gap has any pixel.
func BackgroundFluorescence(frame mat.Matrix, channels []Bounded) float64 {
	if frame == nil || len(channels) < 2 {
		return 0
	}

	gaps := make([]imaging.RegionStats, 0, len(channels)-1)
	for i := 1; i < len(channels); i++ {
		_, prevRight := channels[i-1].Columns()
		left, _ := channels[i].Columns()
		top := int(channels[i].Top())
		rows, _ := channels[i].Image().Dims()

		gaps = append(gaps, imaging.MeasureRegion(frame, imaging.Region{
			X1: prevRight,
			Y1: top,
			X2: left,
			Y2: top + rows,
		}))
	}
	return imaging.WeightedMean(gaps)
}
