package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/mmcells/internal/pipeline"
	"github.com/ironsheep/mmcells/internal/tunable"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mm-cells", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "mm-cells - detect cells in mother machine growth channels")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage: mm-cells [options] phase.tif[,fluorescence.tif...] ...")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	var (
		version       = fs.Bool("version", false, "Print version information")
		debug         = fs.Bool("debug", false, "Enable debug logging")
		readTunables  = fs.String("read-tunables", "", "Load tunable overrides from a JSON `file`")
		writeTunables = fs.String("write-tunables", "", "Write the tunable defaults used by this run to a JSON `file`")
		forceDefaults = fs.Bool("force-defaults", false, "Ignore tunable overrides")
		calibration   = fs.Float64("calibration", 0.065, "Pixel size in microns")
		channels      = fs.String("channels", "", "Channel regions as x1,y1,x2,y2 separated by ';' (default: whole frame)")
		workers       = fs.Int("cpus", 0, "Frames processed at once (0: all)")
		output        = fs.String("o", "", "Write results to `file` instead of stdout")
		overlayDir    = fs.String("overlay", "", "Write channel overlays to `dir`")
		overlayScale  = fs.Int("overlay-scale", 4, "Overlay enlargement factor")
		plotDir       = fs.String("plot", "", "Write profile charts to `dir`")
		channelDir    = fs.String("dump-channels", "", "Write packed 16-bit channel crops to `dir`")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *version {
		fmt.Fprintf(stdout, "mm-cells %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	}

	logger := initLogger(*debug, stderr)

	cfg := tunable.New()
	if *readTunables != "" {
		loaded, err := tunable.Load(*readTunables)
		if err != nil {
			logger.WithError(err).Error("Failed to read tunables")
			return 1
		}
		cfg = loaded
	}
	cfg.SetLogger(logger)
	cfg.SetForceDefaults(*forceDefaults)

	regions, err := pipeline.ParseRegions(*channels)
	if err != nil {
		logger.WithError(err).Error("Invalid channel regions")
		return 2
	}

	jobs := make([]pipeline.Job, 0, fs.NArg())
	for _, arg := range fs.Args() {
		job, err := pipeline.ParseJob(arg)
		if err != nil {
			logger.WithError(err).Error("Invalid input")
			return 2
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 && *writeTunables == "" {
		fs.Usage()
		return 2
	}

	logger.WithFields(logrus.Fields{
		"version":  Version,
		"frames":   len(jobs),
		"channels": len(regions),
	}).Info("Starting cell detection")

	p := pipeline.New(cfg, pipeline.Options{
		Channels:     regions,
		Calibration:  *calibration,
		Workers:      *workers,
		OverlayDir:   *overlayDir,
		OverlayScale: *overlayScale,
		PlotDir:      *plotDir,
		ChannelDir:   *channelDir,
	}, logger)
	results := p.Run(jobs)

	status := 0
	for _, r := range results {
		if r.Error != "" {
			status = 1
		}
	}

	if len(jobs) > 0 {
		if err := writeResults(*output, stdout, results); err != nil {
			logger.WithError(err).Error("Failed to write results")
			return 1
		}
	}

	if *writeTunables != "" {
		if err := cfg.WriteDefaults(*writeTunables); err != nil {
			logger.WithError(err).Error("Failed to write tunables")
			return 1
		}
		logger.WithField("path", *writeTunables).Info("Wrote tunable defaults")
	}

	return status
}

func writeResults(path string, stdout io.Writer, results []*pipeline.FrameResult) error {
	if path == "" {
		return pipeline.WriteJSON(stdout, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := pipeline.WriteJSON(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// initLogger logs to w, as text in debug mode and as JSON otherwise.
func initLogger(debugMode bool, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
