// Package imaging provides the image-side primitives of the cell detector:
// frame loading, conversion to intensity matrices, cropping, Otsu
// thresholding, region statistics and diagnostics rendering.
//
// # Coordinate System
//
// Intensity matrices are gonum *mat.Dense values with one row per pixel row.
// Row 0 is the top of the image and increases downward; column 0 is the
// leftmost pixel. In a cropped growth channel the rows therefore run along
// the channel and the columns across it.
//
// For regions, (X1, Y1) is inclusive (top-left) and (X2, Y2) is exclusive
// (bottom-right), matching image.Rectangle.
//
// # Intensity Range
//
// 16-bit frames keep their raw values (0-65535). Every other frame is reduced
// to 8-bit luminance (0-255). Thresholds and statistics are reported in the
// same units as the matrix they were computed from.
//
// # Thread Safety
//
// The FrameCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently as long as the matrices passed in
// are not modified at the same time.
//
// # Diagnostics
//
// Overlay renders a channel with its detected cells and its binarized
// version side by side. SaveProfilePlot charts intensity profiles with
// gonum/plot.
package imaging
