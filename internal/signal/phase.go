package signal

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// ErrPhaseInput is returned by FindPhase when a signal and its transform
// are both missing or the lengths of the two sides disagree.
var ErrPhaseInput = errors.New("invalid phase correlation input")

// PhaseInput holds the two sides of a phase correlation. Each side is given
// either as a signal or as its precomputed transform; a transform takes
// precedence when both are set.
type PhaseInput struct {
	Signal1, Signal2 []float64
	FFT1, FFT2       []complex128
}

// PhaseResult is the estimated circular shift together with the transforms
// of both sides, so a reference signal can be passed back in as FFT1.
type PhaseResult struct {
	Shift int
	FFT1  []complex128
	FFT2  []complex128
}

// FindPhaseSignals estimates the shift between two signals.
func FindPhaseSignals(signal1, signal2 []float64) (PhaseResult, error) {
	return FindPhase(PhaseInput{Signal1: signal1, Signal2: signal2})
}

// FindPhase estimates the circular shift between the two sides of in from
// the peak of their FFT cross-correlation.
//
// A signal that is its counterpart circularly shifted by s samples yields
// Shift == s for |s| < N/2.
func FindPhase(in PhaseInput) (PhaseResult, error) {
	f1, err := transformOf(in.Signal1, in.FFT1)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("first side: %w", err)
	}
	f2, err := transformOf(in.Signal2, in.FFT2)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("second side: %w", err)
	}
	if len(f1) != len(f2) {
		return PhaseResult{}, fmt.Errorf("%w: lengths %d and %d differ", ErrPhaseInput, len(f1), len(f2))
	}

	n := len(f1)
	product := make([]complex128, n)
	for i := range product {
		product[i] = f1[i] * -cmplx.Conj(f2[i])
	}
	corr := fourier.NewCmplxFFT(n).Sequence(nil, product)

	magnitude := make([]float64, n)
	for i, c := range corr {
		magnitude[i] = cmplx.Abs(c)
	}
	peak := floats.MaxIdx(magnitude)

	shift := n - peak
	if float64(peak) < float64(n)/2 {
		shift = -peak
	}
	return PhaseResult{Shift: shift, FFT1: f1, FFT2: f2}, nil
}

func transformOf(signal []float64, transform []complex128) ([]complex128, error) {
	if len(transform) > 0 {
		return append([]complex128(nil), transform...), nil
	}
	if len(signal) == 0 {
		return nil, fmt.Errorf("%w: neither a signal nor a transform was given", ErrPhaseInput)
	}
	seq := make([]complex128, len(signal))
	for i, v := range signal {
		seq[i] = complex(v, 0)
	}
	return fourier.NewCmplxFFT(len(seq)).Coefficients(nil, seq), nil
}
