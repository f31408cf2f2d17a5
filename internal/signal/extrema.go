package signal

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// ErrInsufficientSeparation is returned when extrema are requested with an
// order below 1.
var ErrInsufficientSeparation = errors.New("extrema order must be at least 1")

// ExtremaProminence is the result of FindExtremaAndProminence. It is a value
// type; accessors return copies.
type ExtremaProminence struct {
	maxima      []int
	minima      []int
	order       int
	maxEnvelope []float64
	minEnvelope []float64
	prominence  []float64
	signal      []float64
}

// Maxima returns the ascending indices of the local maxima.
func (e ExtremaProminence) Maxima() []int { return slices.Clone(e.maxima) }

// Minima returns the ascending indices of the local minima.
func (e ExtremaProminence) Minima() []int { return slices.Clone(e.minima) }

// Order returns the separation the extrema were requested with.
func (e ExtremaProminence) Order() int { return e.order }

// MaxEnvelope returns the envelope through the maxima, one value per sample.
func (e ExtremaProminence) MaxEnvelope() []float64 { return slices.Clone(e.maxEnvelope) }

// MinEnvelope returns the envelope through the minima, one value per sample.
func (e ExtremaProminence) MinEnvelope() []float64 { return slices.Clone(e.minEnvelope) }

// Prominence returns MaxEnvelope minus MinEnvelope.
func (e ExtremaProminence) Prominence() []float64 { return slices.Clone(e.prominence) }

// Signal returns the analyzed signal.
func (e ExtremaProminence) Signal() []float64 { return slices.Clone(e.signal) }

// Override replaces one field of an ExtremaProminence in With.
type Override func(*ExtremaProminence)

// WithMaxEnvelope overrides the maximum envelope.
func WithMaxEnvelope(v []float64) Override {
	return func(e *ExtremaProminence) { e.maxEnvelope = slices.Clone(v) }
}

// WithMinEnvelope overrides the minimum envelope.
func WithMinEnvelope(v []float64) Override {
	return func(e *ExtremaProminence) { e.minEnvelope = slices.Clone(v) }
}

// WithProminence overrides the prominence.
func WithProminence(v []float64) Override {
	return func(e *ExtremaProminence) { e.prominence = slices.Clone(v) }
}

// WithSignal overrides the analyzed signal.
func WithSignal(v []float64) Override {
	return func(e *ExtremaProminence) { e.signal = slices.Clone(v) }
}

// With returns a copy of e with the given overrides applied. e is not
// modified.
func (e ExtremaProminence) With(overrides ...Override) ExtremaProminence {
	c := ExtremaProminence{
		maxima:      slices.Clone(e.maxima),
		minima:      slices.Clone(e.minima),
		order:       e.order,
		maxEnvelope: slices.Clone(e.maxEnvelope),
		minEnvelope: slices.Clone(e.minEnvelope),
		prominence:  slices.Clone(e.prominence),
		signal:      slices.Clone(e.signal),
	}
	for _, o := range overrides {
		o(&c)
	}
	return c
}

// RelativeMaxima returns the indices i where signal[i] is strictly greater
// than every sample within order positions. Neighbour indices are clipped to
// the signal, so the first and last samples never qualify.
func RelativeMaxima(signal []float64, order int) ([]int, error) {
	return relativeExtrema(signal, order, func(a, b float64) bool { return a > b })
}

// RelativeMinima is RelativeMaxima with the comparison reversed.
func RelativeMinima(signal []float64, order int) ([]int, error) {
	return relativeExtrema(signal, order, func(a, b float64) bool { return a < b })
}

func relativeExtrema(signal []float64, order int, beats func(a, b float64) bool) ([]int, error) {
	if order < 1 {
		return nil, ErrInsufficientSeparation
	}
	n := len(signal)
	found := []int{}
	for i, v := range signal {
		extreme := true
		for shift := 1; shift <= order && extreme; shift++ {
			next := min(i+shift, n-1)
			prev := max(i-shift, 0)
			extreme = beats(v, signal[next]) && beats(v, signal[prev])
		}
		if extreme {
			found = append(found, i)
		}
	}
	return found, nil
}

// extremaWithFallback lowers the order one step at a time until find reports
// something and falls back to the single global extremum otherwise. Signals
// shorter than three samples have no interior point and skip the search.
func extremaWithFallback(signal []float64, order int, find func([]float64, int) ([]int, error), global int) []int {
	if len(signal) >= 3 {
		for o := order; o >= 1; o-- {
			idx, err := find(signal, o)
			if err != nil {
				break
			}
			if len(idx) > 0 {
				return idx
			}
		}
	}
	return []int{global}
}

// FindExtremaAndProminence locates the maxima and minima of signal separated
// by order samples, fits an envelope through each and reports their
// difference at every sample.
//
// When no extremum exists at the requested order, smaller orders are tried
// down to 1 before the global maximum or minimum is used. Each envelope is
// anchored at index 0 with the value of the first extremum and at the last
// index with the value of the last extremum.
//
// Empty input returns an empty result.
func FindExtremaAndProminence(signal []float64, order int) ExtremaProminence {
	n := len(signal)
	if n == 0 {
		return ExtremaProminence{
			maxima:      []int{},
			minima:      []int{},
			order:       order,
			maxEnvelope: []float64{},
			minEnvelope: []float64{},
			prominence:  []float64{},
			signal:      []float64{},
		}
	}

	maxima := extremaWithFallback(signal, order, RelativeMaxima, floats.MaxIdx(signal))
	minima := extremaWithFallback(signal, order, RelativeMinima, floats.MinIdx(signal))

	maxEnvelope := envelopeThrough(signal, maxima, math.Inf(1))
	minEnvelope := envelopeThrough(signal, minima, math.Inf(-1))

	prominence := make([]float64, n)
	floats.SubTo(prominence, maxEnvelope, minEnvelope)

	return ExtremaProminence{
		maxima:      maxima,
		minima:      minima,
		order:       order,
		maxEnvelope: maxEnvelope,
		minEnvelope: minEnvelope,
		prominence:  prominence,
		signal:      slices.Clone(signal),
	}
}

// envelopeThrough builds the anchored control points for the extrema at idx
// and evaluates the envelope at every sample.
func envelopeThrough(signal []float64, idx []int, degenerate float64) []float64 {
	n := len(signal)
	xs := make([]float64, 0, len(idx)+2)
	ys := make([]float64, 0, len(idx)+2)

	xs = append(xs, 0)
	ys = append(ys, signal[idx[0]])
	for _, i := range idx {
		xs = append(xs, float64(i))
		ys = append(ys, signal[i])
	}
	xs = append(xs, float64(n-1))
	ys = append(ys, signal[idx[len(idx)-1]])

	return fitEnvelope(xs, ys, n, degenerate)
}
