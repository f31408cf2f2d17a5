package imaging

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// Region represents a rectangular area within an image.
//
// Coordinates follow the standard convention where (X1, Y1) is inclusive
// (top-left corner) and (X2, Y2) is exclusive (bottom-right corner).
type Region struct {
	X1 int `json:"x1"` // Left edge X coordinate (inclusive)
	Y1 int `json:"y1"` // Top edge Y coordinate (inclusive)
	X2 int `json:"x2"` // Right edge X coordinate (exclusive)
	Y2 int `json:"y2"` // Bottom edge Y coordinate (exclusive)
}

// Width returns the number of columns covered by r.
func (r Region) Width() int { return r.X2 - r.X1 }

// Height returns the number of rows covered by r.
func (r Region) Height() int { return r.Y2 - r.Y1 }

// ParseRegion parses "x1,y1,x2,y2".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q must have the form x1,y1,x2,y2", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	return Region{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

// validate checks r against an image of the given size.
func (r Region) validate(width, height int) error {
	if r.X1 < 0 || r.Y1 < 0 || r.X2 > width || r.Y2 > height {
		return fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, width, height)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	return nil
}

// CropMatrix copies region r out of the intensity matrix m.
func CropMatrix(m mat.Matrix, r Region) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if err := r.validate(cols, rows); err != nil {
		return nil, err
	}
	out := mat.NewDense(r.Height(), r.Width(), nil)
	for y := 0; y < r.Height(); y++ {
		for x := 0; x < r.Width(); x++ {
			out.Set(y, x, m.At(r.Y1+y, r.X1+x))
		}
	}
	return out, nil
}

// CropImage extracts region r from img for rendering, optionally scaling the
// result. Scaling uses nearest neighbour so pixel boundaries stay visible.
func CropImage(img image.Image, r Region, scale float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if err := r.validate(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	rect := image.Rect(r.X1, r.Y1, r.X2, r.Y2).Add(bounds.Min)
	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.NearestNeighbor)
	}
	return cropped, nil
}
