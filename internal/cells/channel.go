package cells

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/mmcells/internal/imaging"
)

// Channel is a single growth channel cut out of a frame.
//
// Image rows run along the channel, columns across it. Top is the frame row
// of the first image row.
type Channel interface {
	Image() *mat.Dense
	Top() float64
	Centroid() (x, y float64)
	MuToPixel(mu float64) float64
}

// Bounded is a Channel that knows which frame columns it covers. It is
// needed to measure fluorescence in frame coordinates.
type Bounded interface {
	Channel
	Columns() (left, right int)
}

// StaticChannel is a Channel with fixed geometry.
type StaticChannel struct {
	// ChannelImage is the cropped channel intensity matrix.
	ChannelImage *mat.Dense
	// Offset is the frame row of the first channel image row.
	Offset float64
	// Left and Right are the frame columns the channel covers, Right
	// exclusive.
	Left, Right int
	// Calibration is the pixel size in microns. Zero or negative values
	// leave lengths in pixels.
	Calibration float64
}

// NewStaticChannel crops region out of frame and returns it as a channel.
func NewStaticChannel(frame mat.Matrix, region imaging.Region, calibration float64) (*StaticChannel, error) {
	img, err := imaging.CropMatrix(frame, region)
	if err != nil {
		return nil, fmt.Errorf("cropping channel: %w", err)
	}
	return &StaticChannel{
		ChannelImage: img,
		Offset:       float64(region.Y1),
		Left:         region.X1,
		Right:        region.X2,
		Calibration:  calibration,
	}, nil
}

func (c *StaticChannel) Image() *mat.Dense { return c.ChannelImage }

func (c *StaticChannel) Top() float64 { return c.Offset }

// Centroid returns the frame coordinates of the channel center.
func (c *StaticChannel) Centroid() (x, y float64) {
	rows := 0
	if c.ChannelImage != nil {
		rows, _ = c.ChannelImage.Dims()
	}
	return float64(c.Left+c.Right) / 2, c.Offset + float64(rows)/2
}

// MuToPixel converts a length in microns to pixels.
func (c *StaticChannel) MuToPixel(mu float64) float64 {
	if c.Calibration <= 0 {
		return mu
	}
	return mu / c.Calibration
}

func (c *StaticChannel) Columns() (left, right int) { return c.Left, c.Right }
