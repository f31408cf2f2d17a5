// Package cells holds the cells detected in a growth channel.
//
// A Cells collection is built once per channel by running a
// detection.Detector over the channel image and dropping every segment that
// is not longer than the configured minimal length in microns. Cells refer
// back to their channel for offsets and calibration but never own it.
package cells

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/mmcells/internal/detection"
	"github.com/ironsheep/mmcells/internal/imaging"
	"github.com/ironsheep/mmcells/internal/tunable"
)

// TunableMinimalLength is the minimal cell length in microns.
const TunableMinimalLength = "cells.minimal_length.in_mu"

// Cell is one detected cell. LocalTop and LocalBottom are channel image rows.
type Cell struct {
	LocalTop    float64
	LocalBottom float64
	channel     Channel
}

// NewCell returns a cell spanning [top, bottom] of ch.
func NewCell(top, bottom float64, ch Channel) Cell {
	return Cell{LocalTop: top, LocalBottom: bottom, channel: ch}
}

// Channel returns the channel the cell was found in.
func (c Cell) Channel() Channel { return c.channel }

// Top returns the frame row of the cell top.
func (c Cell) Top() float64 { return c.channel.Top() + c.LocalTop }

// Bottom returns the frame row of the cell bottom.
func (c Cell) Bottom() float64 { return c.channel.Top() + c.LocalBottom }

// Length returns the cell length in pixels.
func (c Cell) Length() float64 { return math.Abs(c.Top() - c.Bottom()) }

// Centroid1D returns the frame row of the cell center.
func (c Cell) Centroid1D() float64 { return (c.Top() + c.Bottom()) / 2 }

// Centroid returns the frame coordinates of the cell center. The column is
// the channel's.
func (c Cell) Centroid() (x, y float64) {
	x, _ = c.channel.Centroid()
	return x, c.Centroid1D()
}

// Image crops the cell rows out of the channel image. The bottom row is not
// included.
func (c Cell) Image() (*mat.Dense, error) {
	img := c.channel.Image()
	_, cols := img.Dims()
	return imaging.CropMatrix(img, imaging.Region{
		X1: 0,
		Y1: int(c.LocalTop),
		X2: cols,
		Y2: int(c.LocalBottom),
	})
}

// Less orders cells by their top.
func (c Cell) Less(other Cell) bool { return c.LocalTop < other.LocalTop }

func compareCells(a, b Cell) int { return cmp.Compare(a.LocalTop, b.LocalTop) }

// Cells is the ordered collection of cells of one channel.
type Cells struct {
	channel  Channel
	cells    []Cell
	analysis *detection.Analysis
}

// MinimalLength returns the minimal cell length in microns configured in cfg.
func MinimalLength(cfg *tunable.Config) float64 {
	return cfg.Float(TunableMinimalLength, 1.0)
}

// New detects the cells of ch. Segments not longer than the minimal length
// read from cfg are dropped.
func New(ch Channel, det *detection.Detector, cfg *tunable.Config) *Cells {
	minimal := ch.MuToPixel(MinimalLength(cfg))
	analysis := det.Analyze(ch.Image())

	c := &Cells{channel: ch, cells: []Cell{}, analysis: analysis}
	for _, s := range analysis.Segments {
		if minimal < float64(s.End()-s.Begin()) {
			c.cells = append(c.cells, NewCell(float64(s.Begin()), float64(s.End()), ch))
		}
	}
	return c
}

// Restore reattaches previously detected cell bounds to ch without running
// detection again.
func Restore(ch Channel, bounds [][2]float64) *Cells {
	c := &Cells{channel: ch, cells: make([]Cell, 0, len(bounds))}
	for _, b := range bounds {
		c.cells = append(c.cells, NewCell(b[0], b[1], ch))
	}
	return c
}

// Channel returns the channel the cells belong to.
func (c *Cells) Channel() Channel { return c.channel }

// Len returns the number of cells.
func (c *Cells) Len() int { return len(c.cells) }

// All returns the cells in detection order.
func (c *Cells) All() []Cell { return slices.Clone(c.cells) }

// At returns the i-th cell.
func (c *Cells) At(i int) Cell { return c.cells[i] }

// Sorted returns the cells ordered by their top.
func (c *Cells) Sorted() []Cell {
	out := slices.Clone(c.cells)
	slices.SortStableFunc(out, compareCells)
	return out
}

// Bounds returns the local [top, bottom] of every cell, the inverse of
// Restore.
func (c *Cells) Bounds() [][2]float64 {
	out := make([][2]float64, len(c.cells))
	for i, cell := range c.cells {
		out[i] = [2]float64{cell.LocalTop, cell.LocalBottom}
	}
	return out
}

// Centroids returns the frame coordinates of every cell center.
func (c *Cells) Centroids() [][2]float64 {
	out := make([][2]float64, len(c.cells))
	for i, cell := range c.cells {
		x, y := cell.Centroid()
		out[i] = [2]float64{x, y}
	}
	return out
}

// Analysis returns the detector intermediates of the run that produced the
// cells, or nil after Clean or Restore.
func (c *Cells) Analysis() *detection.Analysis { return c.analysis }

// Clean drops the detector intermediates. The cells stay valid.
func (c *Cells) Clean() { c.analysis = nil }
