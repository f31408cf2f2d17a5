package pipeline

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/mmcells/internal/cells"
	"github.com/ironsheep/mmcells/internal/detection"
	"github.com/ironsheep/mmcells/internal/imaging"
	"github.com/ironsheep/mmcells/internal/signal"
	"github.com/ironsheep/mmcells/internal/tunable"
)

// Options controls what a Pipeline analyzes and writes.
type Options struct {
	// Channels are the channel regions in frame coordinates. When empty the
	// whole frame is treated as a single channel.
	Channels []imaging.Region
	// Calibration is the pixel size in microns.
	Calibration float64
	// Workers limits the number of frames processed at once. Values below 1
	// mean one worker per frame.
	Workers int
	// OverlayDir receives a PNG overlay per channel when set.
	OverlayDir string
	// OverlayScale enlarges overlays. Values below 1 mean 1.
	OverlayScale int
	// PlotDir receives a profile chart per channel when set.
	PlotDir string
	// ChannelDir receives the packed 16-bit channel crops when set.
	ChannelDir string
}

// Pipeline analyzes frames.
type Pipeline struct {
	opts     Options
	cfg      *tunable.Config
	cache    *imaging.FrameCache
	detector *detection.Detector
	log      logrus.FieldLogger
}

// New returns a Pipeline. The detector reads its thresholds from cfg; a nil
// logger disables logging.
func New(cfg *tunable.Config, opts Options, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	channels := slices.Clone(opts.Channels)
	slices.SortStableFunc(channels, func(a, b imaging.Region) int { return cmp.Compare(a.X1, b.X1) })
	opts.Channels = channels

	log.WithFields(logrus.Fields{
		"minimal_length_mu": cells.MinimalLength(cfg),
		"calibration":       opts.Calibration,
	}).Debug("Created pipeline")

	return &Pipeline{
		opts:     opts,
		cfg:      cfg,
		cache:    imaging.NewFrameCache(),
		detector: detection.NewDetector(cfg, log),
		log:      log,
	}
}

// FrameResult is everything measured in one frame.
type FrameResult struct {
	Job   Job                `json:"job"`
	Info  *imaging.FrameInfo `json:"info,omitempty"`
	Drift int                `json:"drift"`
	// Background is the fluorescence background per fluorescence frame.
	Background []Number        `json:"background_fluorescence,omitempty"`
	Channels   []ChannelResult `json:"channels"`
	Error      string          `json:"error,omitempty"`

	profile []float64
}

// ChannelResult holds the cells of one channel.
type ChannelResult struct {
	Index   int            `json:"index"`
	Region  imaging.Region `json:"region"`
	Skipped bool           `json:"skipped"`
	Cells   []CellResult   `json:"cells"`
}

// CellResult is one cell in frame coordinates.
type CellResult struct {
	Top          float64              `json:"top"`
	Bottom       float64              `json:"bottom"`
	Length       float64              `json:"length_px"`
	LengthMu     float64              `json:"length_mu"`
	Centroid     [2]float64           `json:"centroid"`
	Fluorescence []FluorescenceResult `json:"fluorescence,omitempty"`
}

// FluorescenceResult is the fluorescence of a cell in one fluorescence frame.
type FluorescenceResult struct {
	Mean       Number `json:"mean"`
	Std        Number `json:"std"`
	Subtracted Number `json:"subtracted"`
}

// ProcessFrame analyzes a single frame. Diagnostics are written as
// configured. The frames are evicted from the cache afterwards.
func (p *Pipeline) ProcessFrame(job Job) (*FrameResult, error) {
	log := p.log.WithField("frame", job.Path)
	defer func() {
		p.cache.Evict(job.Path)
		for _, f := range job.Fluorescence {
			p.cache.Evict(f)
		}
	}()

	info, err := imaging.LoadFrameInfo(p.cache, job.Path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", job.Path, err)
	}
	frame, err := p.cache.Load(job.Path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", job.Path, err)
	}

	fluorescence := make([]mat.Matrix, len(job.Fluorescence))
	for i, path := range job.Fluorescence {
		f, err := p.cache.Load(path)
		if err != nil {
			log.WithError(err).WithField("fluorescence", path).Warn("Skipping unreadable fluorescence frame")
			continue
		}
		if !sameDims(f.Intensity, frame.Intensity) {
			log.WithField("fluorescence", path).Warn("Skipping fluorescence frame of different size")
			continue
		}
		fluorescence[i] = f.Intensity
	}

	regions := p.opts.Channels
	if len(regions) == 0 {
		regions = []imaging.Region{{X1: 0, Y1: 0, X2: info.Width, Y2: info.Height}}
	}

	result := &FrameResult{
		Job:      job,
		Info:     info,
		Channels: make([]ChannelResult, 0, len(regions)),
		profile:  signal.HorizontalMean(frame.Intensity),
	}

	channels := make([]cells.Bounded, 0, len(regions))
	detected := make([]*cells.Cells, 0, len(regions))
	for i, r := range regions {
		ch, err := cells.NewStaticChannel(frame.Intensity, r, p.opts.Calibration)
		if err != nil {
			return nil, fmt.Errorf("channel %d of %s: %w", i, job.Path, err)
		}
		channels = append(channels, ch)
		detected = append(detected, cells.New(ch, p.detector, p.cfg))
	}

	var background []float64
	if len(job.Fluorescence) > 0 {
		background = make([]float64, len(fluorescence))
		for i, f := range fluorescence {
			background[i] = math.NaN()
			if f != nil {
				background[i] = cells.BackgroundFluorescence(f, channels)
			}
		}
		result.Background = numbers(background)
	}

	for i, c := range detected {
		cr := ChannelResult{
			Index:   i,
			Region:  regions[i],
			Skipped: c.Analysis().Skipped,
			Cells:   make([]CellResult, 0, c.Len()),
		}

		var measured [][]imaging.RegionStats
		if len(fluorescence) > 0 {
			measured = c.Fluorescence(fluorescence)
		}
		for n, cell := range c.All() {
			x, y := cell.Centroid()
			res := CellResult{
				Top:      cell.Top(),
				Bottom:   cell.Bottom(),
				Length:   cell.Length(),
				LengthMu: cell.Length() / cell.Channel().MuToPixel(1),
				Centroid: [2]float64{x, y},
			}
			if measured != nil {
				subtracted := cells.SubtractBackground(measured[n], background)
				for f, m := range measured[n] {
					res.Fluorescence = append(res.Fluorescence, FluorescenceResult{
						Mean:       Number(m.Mean),
						Std:        Number(m.Std),
						Subtracted: Number(subtracted[f]),
					})
				}
			}
			cr.Cells = append(cr.Cells, res)
		}

		if err := p.writeDiagnostics(job, i, c); err != nil {
			log.WithError(err).WithField("channel", i).Warn("Failed to write channel diagnostics")
		}
		c.Clean()

		log.WithFields(logrus.Fields{
			"channel": i,
			"cells":   len(cr.Cells),
			"skipped": cr.Skipped,
		}).Debug("Processed channel")

		result.Channels = append(result.Channels, cr)
	}

	return result, nil
}

func sameDims(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}
