package signal

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Direction selects the axis along which EachImageSlice cuts an image.
type Direction string

const (
	// Vertical cuts the image into column strips.
	Vertical Direction = "vertical"
	// Horizontal cuts the image into row strips.
	Horizontal Direction = "horizontal"
)

// ErrUnknownDirection is returned by EachImageSlice for an unrecognized
// Direction.
var ErrUnknownDirection = errors.New("unknown slicing direction")

// ImageSlice is one strip of an image produced by EachImageSlice.
type ImageSlice struct {
	Index int
	Step  int
	Image mat.Matrix
}

// FindInsides returns the [begin, end) intervals of runs of true values. A
// run still open at the end of the signal is closed at the last index.
//
// Index 0 doubles as "no open run": a run that starts at index 0 restarts at
// index 1, and a single true sample at index 0 is not reported.
func FindInsides(signal []bool) [][2]int {
	var runs [][2]int
	last := 0
	for i, v := range signal {
		switch {
		case v && last == 0:
			last = i
		case !v && last != 0:
			runs = append(runs, [2]int{last, i})
			last = 0
		}
	}
	if last != 0 {
		runs = append(runs, [2]int{last, len(signal) - 1})
	}
	return runs
}

// OneEveryN returns a signal of the given length that is 1 at every n-th
// sample starting from shift and 0 elsewhere. The shift wraps modulo n. An n
// below 1 gives an all zero signal.
func OneEveryN(length, n, shift int) []float64 {
	out := make([]float64, length)
	if n < 1 {
		return out
	}
	shift %= n
	if shift < 0 {
		shift += n
	}
	for i := shift; i < length; i += n {
		out[i] = 1
	}
	return out
}

// EachImageSlice cuts m into strips of width step along direction.
// Trailing pixels that do not fill a whole strip are left out.
func EachImageSlice(m mat.Matrix, step int, direction Direction) ([]ImageSlice, error) {
	if step < 1 {
		return nil, fmt.Errorf("slice step must be positive, got %d", step)
	}
	rows, cols := m.Dims()

	var strip func(n int) mat.Matrix
	var count int
	switch direction {
	case Vertical:
		count = cols / step
		strip = func(n int) mat.Matrix {
			return sliceOf(m, 0, rows, step*n, step*(n+1))
		}
	case Horizontal:
		count = rows / step
		strip = func(n int) mat.Matrix {
			return sliceOf(m, step*n, step*(n+1), 0, cols)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}

	slices := make([]ImageSlice, count)
	for n := range slices {
		slices[n] = ImageSlice{Index: n, Step: step, Image: strip(n)}
	}
	return slices, nil
}

type matrixSlicer interface {
	Slice(i, k, j, l int) mat.Matrix
}

func sliceOf(m mat.Matrix, i, k, j, l int) mat.Matrix {
	if s, ok := m.(matrixSlicer); ok {
		return s.Slice(i, k, j, l)
	}
	var d mat.Dense
	d.CloneFrom(m)
	return d.Slice(i, k, j, l)
}
