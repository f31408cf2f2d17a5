package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/mmcells/internal/signal"
)

// Run processes every job and returns the results in job order. A frame that
// fails carries the error in FrameResult.Error; the other frames are not
// affected.
func (p *Pipeline) Run(jobs []Job) []*FrameResult {
	results := make([]*FrameResult, len(jobs))

	workers := p.opts.Workers
	if workers < 1 {
		workers = max(len(jobs), 1)
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := p.ProcessFrame(job)
			if err != nil {
				p.log.WithError(err).WithField("frame", job.Path).Error("Frame failed")
				res = &FrameResult{Job: job, Channels: []ChannelResult{}, Error: err.Error()}
			}
			results[i] = res
		}()
	}
	wg.Wait()

	p.computeDrift(results)

	p.log.WithFields(logrus.Fields{
		"frames":  len(jobs),
		"workers": workers,
	}).Info("Processed frames")

	return results
}

// computeDrift phase correlates the column profile of every frame with the
// first successfully processed frame.
func (p *Pipeline) computeDrift(results []*FrameResult) {
	var reference []complex128
	var refSignal []float64
	for _, r := range results {
		if r.Error != "" || len(r.profile) == 0 {
			continue
		}
		if refSignal == nil {
			refSignal = r.profile
			continue
		}

		phase, err := signal.FindPhase(signal.PhaseInput{
			Signal1: refSignal,
			FFT1:    reference,
			Signal2: r.profile,
		})
		if err != nil {
			p.log.WithError(err).WithField("frame", r.Job.Path).Warn("Cannot estimate drift")
			continue
		}
		reference = phase.FFT1
		r.Drift = phase.Shift
	}
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []*FrameResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}
