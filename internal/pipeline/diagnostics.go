package pipeline

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/plotter"

	"github.com/ironsheep/mmcells/internal/cells"
	"github.com/ironsheep/mmcells/internal/imaging"
	"github.com/ironsheep/mmcells/internal/signal"
)

// writeDiagnostics writes the overlay, profile chart and packed crop of one
// channel, as far as they are enabled. It must run before c.Clean.
func (p *Pipeline) writeDiagnostics(job Job, index int, c *cells.Cells) error {
	if p.opts.OverlayDir == "" && p.opts.PlotDir == "" && p.opts.ChannelDir == "" {
		return nil
	}

	a := c.Analysis()
	img := c.Channel().Image()
	base := fmt.Sprintf("%s_ch%02d", job.name(), index)

	var errs []error
	if p.opts.OverlayDir != "" {
		segments := make([][2]int, 0, c.Len())
		for _, b := range c.Bounds() {
			segments = append(segments, [2]int{int(b[0]), int(b[1])})
		}
		threshold := mat.Max(img) + 1
		if a != nil && !a.Skipped {
			threshold = a.Threshold
		}
		overlay := imaging.Overlay(img, threshold, segments, p.opts.OverlayScale)
		errs = append(errs, writeInto(p.opts.OverlayDir, base+"_overlay.png", func(path string) error {
			return imaging.WritePNG(path, overlay)
		}))
	}

	if p.opts.PlotDir != "" && a != nil && !a.Skipped {
		errs = append(errs, writeInto(p.opts.PlotDir, base+"_profile.png", func(path string) error {
			return saveAnalysisPlot(path, fmt.Sprintf("%s channel %d", job.name(), index), a.Extrema)
		}))
	}

	if p.opts.ChannelDir != "" {
		packed, err := PackChannel(img)
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, writeInto(p.opts.ChannelDir, base+".png", func(path string) error {
				return imaging.WritePNG(path, packed)
			}))
		}
	}

	return errors.Join(errs...)
}

func writeInto(dir, name string, write func(path string) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return write(filepath.Join(dir, name))
}

// saveAnalysisPlot charts the processed profile with its envelopes and
// prominence and marks the maxima.
func saveAnalysisPlot(path, title string, e signal.ExtremaProminence) error {
	profile := e.Signal()
	maxima := e.Maxima()
	points := make([]plotter.XY, len(maxima))
	for i, m := range maxima {
		points[i] = plotter.XY{X: float64(m), Y: profile[m]}
	}
	minima := e.Minima()
	low := make([]plotter.XY, len(minima))
	for i, m := range minima {
		low[i] = plotter.XY{X: float64(m), Y: profile[m]}
	}

	return imaging.SaveProfilePlot(path, title, []imaging.Series{
		{Name: "profile", Values: profile},
		{Name: "upper envelope", Values: e.MaxEnvelope()},
		{Name: "lower envelope", Values: e.MinEnvelope()},
		{Name: "prominence", Values: e.Prominence()},
	}, []imaging.Marker{
		{Name: "maxima", Points: points},
		{Name: "minima", Points: low},
	})
}

// PackChannel stretches a channel image over the full 16-bit range.
// A constant image packs to black.
func PackChannel(m *mat.Dense) (*image.Gray16, error) {
	rows, cols := m.Dims()
	out := image.NewGray16(image.Rect(0, 0, cols, rows))
	if mat.Max(m) == mat.Min(m) {
		return out, nil
	}

	data := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		data = append(data, m.RawRowView(y)...)
	}
	packed, err := signal.FitToType[uint16](data)
	if err != nil {
		return nil, fmt.Errorf("packing channel: %w", err)
	}
	for i, v := range packed {
		y, x := i/cols, i%cols
		out.Pix[y*out.Stride+2*x] = uint8(v >> 8)
		out.Pix[y*out.Stride+2*x+1] = uint8(v)
	}
	return out, nil
}
