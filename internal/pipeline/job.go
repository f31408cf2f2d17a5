package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ironsheep/mmcells/internal/imaging"
)

// Job is one frame to analyze.
type Job struct {
	// Path is the phase contrast frame.
	Path string `json:"path"`
	// Fluorescence lists fluorescence frames of the same field of view.
	Fluorescence []string `json:"fluorescence,omitempty"`
}

// ParseJob parses "phase[,fluorescence...]".
func ParseJob(s string) (Job, error) {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return Job{}, fmt.Errorf("job %q: empty path", s)
		}
	}
	job := Job{Path: parts[0]}
	if len(parts) > 1 {
		job.Fluorescence = parts[1:]
	}
	return job, nil
}

// name returns the frame file name without its extension.
func (j Job) name() string {
	base := filepath.Base(j.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseRegions parses channel regions separated by semicolons, each written
// as "x1,y1,x2,y2". An empty string yields no regions.
func ParseRegions(s string) ([]imaging.Region, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var regions []imaging.Region
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := imaging.ParseRegion(part)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}
