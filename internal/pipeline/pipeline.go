// Package pipeline runs the per-frame loop: acquire, detect, track, count,
// sink. Frames flow strictly one at a time and in arrival order; the
// tracker's velocity estimates and the counter's direction inference both
// depend on it.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/shoreline-data/waterway.report/internal/count"
	"github.com/shoreline-data/waterway.report/internal/monitoring"
	"github.com/shoreline-data/waterway.report/internal/sched"
	"github.com/shoreline-data/waterway.report/internal/timeutil"
	"github.com/shoreline-data/waterway.report/internal/track"
)

// Detector produces detections for one frame. It is an external
// collaborator; the pipeline only filters its output.
type Detector interface {
	Detect(ctx context.Context, frame sched.Frame) ([]track.Detection, error)
}

// retryPause is the breather between frames after a transient failure, so
// a wedged device does not spin the loop hot.
const retryPause = 100 * time.Millisecond

// Pipeline owns one camera's processing chain.
type Pipeline struct {
	sched    *sched.Scheduler
	detector Detector
	tracker  *track.Tracker
	counter  *count.Counter
	clock    timeutil.Clock

	// detector-side filtering, applied before detections reach the core
	minConfidence float64
	classFilter   map[string]bool

	frames int64
}

// Option adjusts a Pipeline.
type Option func(*Pipeline)

// WithClassFilter keeps only detections whose label is listed. An empty
// list keeps everything.
func WithClassFilter(labels []string) Option {
	return func(p *Pipeline) {
		if len(labels) == 0 {
			return
		}
		p.classFilter = make(map[string]bool, len(labels))
		for _, l := range labels {
			p.classFilter[l] = true
		}
	}
}

// WithMinConfidence drops detections under the floor before tracking.
func WithMinConfidence(conf float64) Option {
	return func(p *Pipeline) { p.minConfidence = conf }
}

// New assembles a pipeline. A nil clock means the real one.
func New(s *sched.Scheduler, d Detector, t *track.Tracker, c *count.Counter, clock timeutil.Clock, opts ...Option) *Pipeline {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	p := &Pipeline{sched: s, detector: d, tracker: t, counter: c, clock: clock}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes frames until ctx is cancelled. Transient failures (frame
// grab, capture retry exhaustion, detector hiccup) are logged and the loop
// carries on; only cancellation ends it.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.sched.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, io.EOF) {
				// Finite sources (replay logs) end cleanly.
				return nil
			}
			monitoring.Logf("pipeline: %v", err)
			p.clock.Sleep(retryPause)
		}
	}
}

// step handles exactly one frame.
func (p *Pipeline) step(ctx context.Context) error {
	frame, err := p.sched.Next(ctx)
	if err != nil {
		return err
	}
	p.frames++

	dets, err := p.detector.Detect(ctx, frame)
	if err != nil {
		// Skip the frame; the tracker only ages on its next update, so a
		// lost frame behaves exactly like a detection gap.
		return err
	}

	dets = p.filter(dets)
	obs, removed := p.tracker.Update(dets)
	p.counter.Forget(removed)

	frameRef := uuid.NewString()
	events := p.counter.Observe(ctx, obs, frameRef)
	if len(events) > 0 {
		monitoring.Debugf("pipeline: frame %d emitted %d event(s)", p.frames, len(events))
	}
	return nil
}

// filter applies the class and confidence gates the detector contract
// leaves to the caller.
func (p *Pipeline) filter(dets []track.Detection) []track.Detection {
	out := dets[:0:0]
	for _, d := range dets {
		if p.classFilter != nil && !p.classFilter[d.Label] {
			continue
		}
		if d.Confidence < p.minConfidence {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Frames returns the number of frames processed. Diagnostic only.
func (p *Pipeline) Frames() int64 { return p.frames }
