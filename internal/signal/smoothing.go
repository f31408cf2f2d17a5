package signal

import (
	"sync"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// kernelCache memoizes normalized Hamming kernels by width.
//
// Kernels handed out by the cache are shared and must not be modified.
type kernelCache struct {
	mu      sync.RWMutex
	kernels map[int][]float64
}

var hammingKernels = &kernelCache{kernels: make(map[int][]float64)}

func (c *kernelCache) get(width int) []float64 {
	c.mu.RLock()
	if k, ok := c.kernels[width]; ok {
		c.mu.RUnlock()
		return k
	}
	c.mu.RUnlock()

	k := hammingKernel(width)

	c.mu.Lock()
	c.kernels[width] = k
	c.mu.Unlock()

	return k
}

// hammingKernel returns a Hamming window of the given width scaled to sum 1.
func hammingKernel(width int) []float64 {
	k := make([]float64, width)
	for i := range k {
		k[i] = 1
	}
	window.Hamming(k)
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// HammingSmooth smooths signal with a normalized Hamming window of the given
// width. Kernels are memoized per width.
//
// Widths below 2 leave the signal unchanged; widths larger than the signal are
// clamped to its length. The result always has len(signal) samples.
func HammingSmooth(signal []float64, width int) []float64 {
	width = min(width, len(signal))
	if width < 2 {
		return append([]float64(nil), signal...)
	}
	return Smooth(signal, hammingKernels.get(width))
}

// HammingSmoothNoCache is HammingSmooth without the kernel memo. It is meant
// for one-off widths such as the full-length window of BaselineCorrection,
// which would otherwise fill the memo with a kernel per profile length.
func HammingSmoothNoCache(signal []float64, width int) []float64 {
	width = min(width, len(signal))
	if width < 2 {
		return append([]float64(nil), signal...)
	}
	return Smooth(signal, hammingKernel(width))
}

// Smooth convolves signal with kernel after mirroring the signal at both ends,
// so the output has the same length as the input and is not attenuated at the
// borders. The kernel is expected to be normalized.
//
// The leading pad is signal[w-1], ..., signal[1] and the trailing pad is
// signal[n-1], ..., signal[n-w+1]; the output window starts w/2-1 samples into
// the valid part of the convolution. A kernel shorter than 2 or longer than
// the signal returns a copy of the signal.
func Smooth(signal, kernel []float64) []float64 {
	n, w := len(signal), len(kernel)
	if w < 2 || w > n {
		return append([]float64(nil), signal...)
	}

	padded := make([]float64, 0, n+2*(w-1))
	for i := w - 1; i >= 1; i-- {
		padded = append(padded, signal[i])
	}
	padded = append(padded, signal...)
	for i := n - 1; i >= n-w+1; i-- {
		padded = append(padded, signal[i])
	}

	valid := convolveValid(kernel, padded)
	start := w/2 - 1
	return append([]float64(nil), valid[start:start+n]...)
}

// convolveValid returns the part of the discrete convolution of a and b that
// does not depend on zero padding. The arguments may be given in any order.
func convolveValid(a, b []float64) []float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	w := len(a)
	out := make([]float64, len(b)-w+1)
	for i := range out {
		var sum float64
		for j := 0; j < w; j++ {
			sum += b[i+w-1-j] * a[j]
		}
		out[i] = sum
	}
	return out
}
