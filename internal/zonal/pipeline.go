package zonal

import (
	"fmt"
	"runtime"

	"github.com/gammazero/workerpool"

	"github.com/javierballesterjack/crop-health-engine/internal/geo"
	"github.com/javierballesterjack/crop-health-engine/internal/sentinel"
)

// Target is one polygon to aggregate, identified by Key.
type Target struct {
	Key     string
	Polygon geo.Polygon
}

// Outcome is the result of one target. Exactly one of Result and Err is set.
type Outcome struct {
	Target Target
	Result Result
	Err    error
}

// Pipeline runs project, window, read, index and aggregate for each target.
type Pipeline struct {
	Projector geo.Projector
	Workers   int
	Options   Options
}

// Process runs the full pipeline for a single polygon.
func (p *Pipeline) Process(scene Scene, zone geo.Zone, poly geo.Polygon) (Result, error) {
	projected, err := geo.Project(p.Projector, poly, zone)
	if err != nil {
		return Result{}, err
	}

	stack, err := Sample(scene, projected.Bound())
	if err != nil {
		return Result{}, err
	}

	idx, err := sentinel.ComputeIndexes(stack.Bands)
	if err != nil {
		return Result{}, fmt.Errorf("window %s: %w", stack.Window, err)
	}

	return Aggregate(projected, stack.Transform, idx, p.Options)
}

// Run processes every target on a bounded worker pool. Outcomes keep the
// order of targets; a failing target never affects the others.
func (p *Pipeline) Run(scene Scene, zone geo.Zone, targets []Target) []Outcome {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outcomes := make([]Outcome, len(targets))
	wp := workerpool.New(workers)
	for i, target := range targets {
		wp.Submit(func() {
			res, err := p.Process(scene, zone, target.Polygon)
			if err != nil {
				err = fmt.Errorf("field %s: %w", target.Key, err)
			}
			outcomes[i] = Outcome{Target: target, Result: res, Err: err}
		})
	}
	wp.StopWait()

	return outcomes
}
