package detection

import (
	"io"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/mmcells/internal/imaging"
	"github.com/ironsheep/mmcells/internal/signal"
	"github.com/ironsheep/mmcells/internal/tunable"
)

// Tunable names read by NewDetector.
const (
	TunableSkipEmpty          = "cells.empty_channel.skipping"
	TunableOutlierTimesSigma  = "cells.empty_channel.skipping.outlier_times_sigma"
	TunableRangeQuotient      = "cells.empty_channel.skipping.intensity_range_quotient"
	TunableOtsuBias           = "cells.otsu_bias"
	TunableSmoothingLength    = "cells.smoothing.length"
	TunableExtremaOrder       = "cells.extrema.order"
	TunableMaximumBrightness  = "cells.filtering.maximum_brightness"
	TunableMinimumProminence  = "cells.filtering.minimum_prominence"
	minimumSegmentLengthRows  = 2
	profileRoundingMultiplier = 1e8
)

// Segment is a detected cell as an inclusive [begin, end] row range.
type Segment [2]int

// Begin returns the first row of the segment.
func (s Segment) Begin() int { return s[0] }

// End returns the last row of the segment.
func (s Segment) End() int { return s[1] }

// Length returns End - Begin.
func (s Segment) Length() int { return s[1] - s[0] }

// Params holds the detector thresholds.
type Params struct {
	SkipEmptyChannels bool    `json:"skip_empty_channels"`
	OutlierTimesSigma float64 `json:"outlier_times_sigma"`
	RangeQuotient     float64 `json:"intensity_range_quotient"`
	OtsuBias          float64 `json:"otsu_bias"`
	SmoothingLength   int     `json:"smoothing_length"`
	ExtremaOrder      int     `json:"extrema_order"`
	MaximumBrightness float64 `json:"maximum_brightness"`
	MinimumProminence float64 `json:"minimum_prominence"`
}

// ParamsFromTunables reads the detector thresholds from cfg, falling back to
// the compiled-in defaults. A nil cfg yields the defaults.
func ParamsFromTunables(cfg *tunable.Config) Params {
	return Params{
		SkipEmptyChannels: cfg.Bool(TunableSkipEmpty, false),
		OutlierTimesSigma: cfg.Float(TunableOutlierTimesSigma, 2.0),
		RangeQuotient:     cfg.Float(TunableRangeQuotient, 0.5),
		OtsuBias:          cfg.Float(TunableOtsuBias, 1.0),
		SmoothingLength:   cfg.Int(TunableSmoothingLength, 10),
		ExtremaOrder:      cfg.Int(TunableExtremaOrder, 15),
		MaximumBrightness: cfg.Float(TunableMaximumBrightness, 0.5),
		MinimumProminence: cfg.Float(TunableMinimumProminence, 10.0),
	}
}

// Detector finds cells in channel images.
type Detector struct {
	params Params
	log    logrus.FieldLogger
}

// NewDetector returns a Detector configured from cfg. A nil logger disables
// logging.
func NewDetector(cfg *tunable.Config, log logrus.FieldLogger) *Detector {
	return NewDetectorWithParams(ParamsFromTunables(cfg), log)
}

// NewDetectorWithParams returns a Detector using p as is.
func NewDetectorWithParams(p Params, log logrus.FieldLogger) *Detector {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Detector{params: p, log: log}
}

// Params returns the thresholds the detector runs with.
func (d *Detector) Params() Params { return d.params }

// Analysis holds the segments found in one channel image together with every
// intermediate signal of the pipeline.
type Analysis struct {
	// Profile is the mean intensity of every row.
	Profile []float64
	// ThresholdedProfile is Profile with outliers clamped.
	ThresholdedProfile []float64
	// Skipped reports that the channel was classified as empty. All fields
	// below are unset in that case.
	Skipped bool
	// Threshold is the biased Otsu threshold used for binarization.
	Threshold float64
	// BinaryProfile is the foreground fraction of every row.
	BinaryProfile []float64
	// ProcessedProfile is the baseline corrected, smoothed and rounded
	// profile the extrema are searched in.
	ProcessedProfile []float64
	// Extrema holds the extrema and prominence of ProcessedProfile.
	Extrema signal.ExtremaProminence
	// SplitPoints are the candidate cell boundaries, ending with the
	// profile length.
	SplitPoints []int
	// Segments are the accepted cells.
	Segments []Segment
}

// FindCells returns the cells found in the channel image.
func (d *Detector) FindCells(image mat.Matrix) []Segment {
	return d.Analyze(image).Segments
}

// Analyze runs the detection pipeline on the channel image and returns
// every intermediate result.
func (d *Detector) Analyze(image mat.Matrix) *Analysis {
	p := d.params
	a := &Analysis{Segments: []Segment{}}

	rows, cols := image.Dims()
	if rows == 0 || cols == 0 {
		a.Skipped = true
		return a
	}

	a.Profile = signal.VerticalMean(image)
	a.ThresholdedProfile = signal.ThresholdOutliers(a.Profile, p.OutlierTimesSigma)

	if p.SkipEmptyChannels {
		hi := floats.Max(a.ThresholdedProfile)
		quotient := (hi - floats.Min(a.ThresholdedProfile)) / hi
		if quotient < p.RangeQuotient {
			d.log.WithFields(logrus.Fields{
				"range_quotient": quotient,
				"limit":          p.RangeQuotient,
			}).Debug("Skipping empty channel")
			a.Skipped = true
			return a
		}
	}

	a.Threshold = imaging.ThresholdOtsu(image) * p.OtsuBias
	a.BinaryProfile = foregroundFraction(image, a.Threshold)

	profile := signal.BaselineCorrection(a.Profile, 0)
	profile = signal.HammingSmooth(profile, p.SmoothingLength)
	for i, v := range profile {
		profile[i] = math.RoundToEven(v*profileRoundingMultiplier) / profileRoundingMultiplier
	}
	a.ProcessedProfile = profile

	a.Extrema = signal.FindExtremaAndProminence(profile, p.ExtremaOrder)
	prominence := a.Extrema.Prominence()

	for _, m := range a.Extrema.Maxima() {
		if prominence[m] > 0 {
			a.SplitPoints = append(a.SplitPoints, m)
		}
	}
	a.SplitPoints = append(a.SplitPoints, len(profile))

	last := 0
	for _, pos := range a.SplitPoints {
		if pos-last > minimumSegmentLengthRows {
			brightness := stat.Mean(a.BinaryProfile[last:pos], nil)
			meanProminence := stat.Mean(prominence[last:pos], nil)
			accepted := brightness < p.MaximumBrightness && meanProminence > p.MinimumProminence

			d.log.WithFields(logrus.Fields{
				"begin":      last,
				"end":        pos,
				"brightness": brightness,
				"prominence": meanProminence,
				"accepted":   accepted,
			}).Debug("Classified channel interval")

			if accepted {
				a.Segments = append(a.Segments, Segment{last + 1, pos - 1})
			}
		}
		last = pos
	}

	d.log.WithFields(logrus.Fields{
		"rows":     rows,
		"maxima":   len(a.Extrema.Maxima()),
		"segments": len(a.Segments),
	}).Debug("Analyzed channel")

	return a
}

// foregroundFraction returns, for every row of image, the fraction of pixels
// strictly above threshold.
func foregroundFraction(image mat.Matrix, threshold float64) []float64 {
	rows, cols := image.Dims()
	out := make([]float64, rows)
	for i := range out {
		var n int
		for j := 0; j < cols; j++ {
			if image.At(i, j) > threshold {
				n++
			}
		}
		out[i] = float64(n) / float64(cols)
	}
	return out
}
