package imaging

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Series is one named line of a profile plot.
type Series struct {
	Name   string
	Values []float64
}

// Marker is a highlighted sample of a profile plot.
type Marker struct {
	Name   string
	Points []plotter.XY
}

// SaveProfilePlot draws every series against its sample index, adds the
// markers as scatter points and saves the chart to path. The format follows
// the file extension (png, svg, pdf). Non-finite samples are left out.
func SaveProfilePlot(path, title string, series []Series, markers []Marker) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "position (px)"
	p.Y.Label.Text = "intensity"

	colors := palette(len(series) + len(markers))

	for i, s := range series {
		pts := make(plotter.XYs, 0, len(s.Values))
		for x, y := range s.Values {
			if math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(x), Y: y})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to create line %q: %w", s.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	for i, m := range markers {
		if len(m.Points) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(plotter.XYs(m.Points))
		if err != nil {
			return fmt.Errorf("failed to create markers %q: %w", m.Name, err)
		}
		scatter.Color = colors[len(series)+i]
		scatter.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add(m.Name, scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 4*vg.Inch, filepath.Clean(path)); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// palette returns n evenly spaced, distinct colors.
func palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = colorful.Hcl(float64(i)*360/float64(max(n, 1)), 0.6, 0.55).Clamped()
	}
	return colors
}
