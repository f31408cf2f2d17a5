// Package detection finds the boundaries of cells inside a cropped growth
// channel image.
//
// A mother machine channel holds a single file of rod-shaped bacteria. In
// phase contrast the cell bodies are dark and the gaps between neighbouring
// cells are bright, so the mean intensity along the channel rises at every
// division site. The detector works on that one-dimensional profile rather
// than on the image itself.
//
// # Algorithm Overview
//
// FindCells and Analyze run the same fixed pipeline:
//
//  1. Profile: average every row of the channel image.
//  2. Empty channel test: clamp outliers of the profile and, when enabled,
//     give up if the remaining intensity range is small relative to its
//     maximum.
//  3. Binarization: threshold the image at its Otsu level times a bias and
//     record the foreground fraction of every row.
//  4. Preprocessing: subtract the smoothed baseline, smooth with a short
//     Hamming window and round to 8 decimals so results do not depend on
//     floating point noise.
//  5. Extrema and prominence: locate the profile maxima and the envelope
//     excursion at every position.
//  6. Split points: maxima with positive prominence, followed by the profile
//     length. The profile start is an implicit split point.
//  7. Classification: every interval between consecutive split points longer
//     than two rows becomes a cell when its mean foreground fraction is below
//     the brightness limit and its mean prominence exceeds the prominence
//     limit.
//
// Accepted intervals are reported as [begin, end] row pairs excluding the
// split points themselves.
//
// # Coordinate System
//
// Rows are counted from the top of the channel image (row 0). Segment bounds
// are channel-local; callers add the channel offset to obtain frame
// coordinates.
//
// # Tunables
//
// Every threshold is read from a *tunable.Config when the Detector is
// created. The names and compiled-in defaults are:
//
//	cells.empty_channel.skipping                          false
//	cells.empty_channel.skipping.outlier_times_sigma      2.0
//	cells.empty_channel.skipping.intensity_range_quotient 0.5
//	cells.otsu_bias                                       1.0
//	cells.smoothing.length                                10
//	cells.extrema.order                                   15
//	cells.filtering.maximum_brightness                    0.5
//	cells.filtering.minimum_prominence                    10.0
//
// Values are not range checked; a nonsensical configuration produces a
// nonsensical but well-formed result.
//
// # Determinism
//
// The detector holds no mutable state. The same image and parameters always
// give the same segments, and a Detector may be shared between goroutines.
package detection
