// Package pipeline runs cell detection over whole microscopy frames.
//
// A Pipeline owns a frame cache, a detector and the tunable configuration.
// For every frame it crops the configured growth channels, detects their
// cells, measures fluorescence when fluorescence frames are supplied and
// collects everything into a FrameResult ready to be written as JSON.
//
// # Frames and Jobs
//
// A Job names one phase contrast frame and optionally any number of
// fluorescence frames of the same field of view. On the command line a job
// is written as comma separated paths, phase contrast first:
//
//	t000_phase.tif,t000_gfp.tif,t000_rfp.tif
//
// # Concurrency
//
// Run processes frames concurrently, one goroutine per frame, limited by
// Options.Workers. Frames never share mutable state; the frame cache and
// the tunable configuration are safe for concurrent use. Results keep the
// order of the jobs.
//
// # Drift
//
// After all frames are processed, the column profile of every frame is
// phase correlated against the first frame and the circular shift is
// reported as Drift. The transform of the first frame is computed once and
// reused.
//
// # Diagnostics
//
// When Options.OverlayDir or Options.PlotDir is set, every channel also gets
// a PNG overlay of its cells and a chart of its processed profile, envelopes
// and prominence. Options.ChannelDir receives the packed 16-bit channel
// crops.
package pipeline
