// Package signal provides the one-dimensional signal primitives used by the
// cell detector.
//
// Everything in this package operates on intensity profiles: ordered slices of
// samples obtained by averaging a channel image across one axis. The functions
// fall into three groups.
//
// # Preprocessing
//
// HammingSmooth and BaselineCorrection remove high-frequency noise and slow
// illumination gradients. ThresholdOutliers, Outliers and RemoveOutliers deal
// with samples far from the median. Normalize and FitToType rescale data.
//
// # Extrema and prominence
//
// FindExtremaAndProminence locates local maxima and minima that are separated
// by at least a given order, fits an envelope through each set and reports the
// distance between the two envelopes at every sample. That distance is the
// "prominence" used to classify cell candidates. It is an excursion amplitude,
// not the strict topographic prominence of a peak.
//
// # Phase correlation
//
// FindPhase estimates the circular shift between two equally long signals with
// an FFT cross-correlation. The transforms are returned so a reference signal
// only needs to be transformed once.
//
// # Determinism
//
// All functions are pure and never retain their inputs. Degenerate inputs
// (flat, monotonic or very short signals) never fail; documented fallbacks
// produce a structurally valid result instead. The only shared state is the
// memo of Hamming kernels, which is safe for concurrent use.
package signal
