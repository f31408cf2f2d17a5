package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// panelGap is the width in pixels of the black strip between overlay panels.
const panelGap = 4

// goldenAngle spreads consecutive cell hues around the color wheel.
const goldenAngle = 137.50776405003785

// Overlay renders a channel diagnostics image with two panels side by side.
//
// The left panel shows the channel in grayscale with every segment tinted in
// its own hue, bounded by lines in that hue and numbered from 1. The right
// panel shows the channel binarized at threshold. Both panels are enlarged by
// scale in each direction.
func Overlay(channel mat.Matrix, threshold float64, segments [][2]int, scale int) *image.RGBA {
	scale = max(scale, 1)
	rows, cols := channel.Dims()
	w, h := cols*scale, rows*scale

	gray := ToGray(channel)
	mask := segment.Threshold(gray, thresholdLevel(threshold, mat.Min(channel), mat.Max(channel)))

	out := image.NewRGBA(image.Rect(0, 0, 2*w+panelGap, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, w, h),
		imaging.Resize(gray, w, h, imaging.NearestNeighbor), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(w+panelGap, 0, 2*w+panelGap, h),
		imaging.Resize(mask, w, h, imaging.NearestNeighbor), image.Point{}, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	for n, s := range segments {
		hue := cellColor(n)
		top, bottom := s[0]*scale, min((s[1]+1)*scale, h)

		for y := max(top, 0); y < bottom; y++ {
			for x := 0; x < w; x++ {
				px, _ := colorful.MakeColor(out.RGBAAt(x, y))
				out.Set(x, y, px.BlendRgb(hue, 0.35).Clamped())
			}
		}
		for x := 0; x < w; x++ {
			if top >= 0 && top < h {
				out.Set(x, top, hue)
			}
			if bottom-1 >= 0 {
				out.Set(x, bottom-1, hue)
			}
		}
		drawLabel(out, 1, top+2, strconv.Itoa(n+1), labelColor, bgColor)
	}
	return out
}

// cellColor returns the hue used for the n-th segment.
func cellColor(n int) colorful.Color {
	return colorful.Hsv(math.Mod(float64(n)*goldenAngle, 360), 0.75, 1)
}

// thresholdLevel maps an intensity threshold onto the 8-bit scale used by
// ToGray for a matrix with the given value range.
func thresholdLevel(threshold, lo, hi float64) uint8 {
	if hi == lo {
		return 255
	}
	level := math.Floor((threshold-lo)*255/(hi-lo)) + 1
	return uint8(max(0, min(255, level)))
}

// WritePNG encodes img as a PNG file at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close image file: %w", err)
	}
	return nil
}

// drawLabel draws a simple digit label at the given position.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	// Simple 3x5 pixel font for digits
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 6

	inside := func(px, py int) bool {
		return px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y
	}

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if px, py := x+dx, y+dy; inside(px, py) {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if px, py := cx+col, y+row; pixel == '1' && inside(px, py) {
					img.Set(px, py, fg)
				}
			}
		}
		cx += charWidth
	}
}
