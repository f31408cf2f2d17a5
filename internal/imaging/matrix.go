package imaging

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/mat"
)

// ToMatrix converts img to an intensity matrix with one row per pixel row.
//
// 16-bit images keep their full range (0-65535); all other images are
// reduced to 8-bit luminance (0-255).
func ToMatrix(img image.Image) *mat.Dense {
	b := img.Bounds()
	m := mat.NewDense(b.Dy(), b.Dx(), nil)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				m.Set(y, x, float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				m.Set(y, x, float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		scale := 257.0
		switch img.(type) {
		case *image.RGBA64, *image.NRGBA64:
			scale = 1
		}
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				m.Set(y, x, float64(g.Y)/scale)
			}
		}
	}
	return m
}

// ToGray renders m as an 8-bit grayscale image, stretching its value range
// over 0-255. A constant matrix renders black.
func ToGray(m mat.Matrix) *image.Gray {
	rows, cols := m.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	lo, hi := mat.Min(m), mat.Max(m)
	if hi == lo {
		return img
	}
	scale := 255 / (hi - lo)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((m.At(y, x)-lo)*scale + 0.5)})
		}
	}
	return img
}
