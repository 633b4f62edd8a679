// Package count turns confirmed track positions into de-duplicated
// crossing events for a fixed vertical counting line.
package count

import (
	"context"
	"time"

	"github.com/shoreline-data/waterway.report/internal/monitoring"
	"github.com/shoreline-data/waterway.report/internal/timeutil"
	"github.com/shoreline-data/waterway.report/internal/track"
)

// Direction of travel across the counting line.
type Direction string

const (
	LeftToRight Direction = "left-to-right"
	RightToLeft Direction = "right-to-left"
)

// Event is one counted crossing. Immutable once emitted.
type Event struct {
	Seq       int64     // 1-based, monotonic per counter
	TrackID   int64
	Timestamp time.Time
	Direction Direction
	FrameRef  string // reference to the frame or snapshot the crossing was seen on
}

// Sink receives each emitted event. Sinks fail independently: an error is
// logged and never rolls an event back or blocks the next frame.
type Sink interface {
	HandleEvent(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event) error

// HandleEvent calls f.
func (f SinkFunc) HandleEvent(ctx context.Context, e Event) error { return f(ctx, e) }

// Config holds counter tuning parameters.
type Config struct {
	LineX       float64       // counting line position, pixels
	MinDistance float64       // minimum net displacement across the window
	Cooldown    time.Duration // per-identifier re-count suppression
	HistorySize int           // center points kept per identifier
}

// DefaultConfig returns the counter defaults for a 640-wide frame: line at
// half width, 15 px jitter floor, 5 s cooldown, 15-point history.
func DefaultConfig() Config {
	return Config{
		LineX:       320,
		MinDistance: 15,
		Cooldown:    5 * time.Second,
		HistorySize: 15,
	}
}

type point struct {
	x, y float64
}

// Counter owns per-identifier position history and the cooldown ledger.
// Like the tracker it is single-owner state: one frame at a time.
type Counter struct {
	cfg   Config
	clock timeutil.Clock
	sinks []Sink

	history     map[int64][]point
	lastCounted map[int64]time.Time // cooldown ledger, keyed by track ID
	seq         int64
}

// NewCounter creates a counter. Zero-valued config fields fall back to
// DefaultConfig values; a nil clock means the real one.
func NewCounter(cfg Config, clock timeutil.Clock, sinks ...Sink) *Counter {
	def := DefaultConfig()
	if cfg.LineX <= 0 {
		cfg.LineX = def.LineX
	}
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = def.MinDistance
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.HistorySize < 2 {
		cfg.HistorySize = def.HistorySize
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Counter{
		cfg:         cfg,
		clock:       clock,
		sinks:       sinks,
		history:     make(map[int64][]point),
		lastCounted: make(map[int64]time.Time),
	}
}

// Observe ingests one frame of confirmed track positions and returns the
// crossing events emitted for it. frameRef is attached to every event from
// this frame.
//
// A crossing qualifies when any consecutive pair of points in the
// identifier's history straddles the line (so a single dropped frame
// cannot hide it), the net displacement across the window beats the jitter
// floor, and the identifier's cooldown ledger entry is absent or expired.
// At most once per cooldown interval per identifier; a later re-crossing
// after cooldown counts again, which is re-entry, not a bug.
func (c *Counter) Observe(ctx context.Context, obs []track.Observation, frameRef string) []Event {
	now := c.clock.Now()
	var events []Event

	for _, o := range obs {
		hist := append(c.history[o.TrackID], point{o.CenterX, o.CenterY})
		if len(hist) > c.cfg.HistorySize {
			hist = hist[len(hist)-c.cfg.HistorySize:]
		}
		c.history[o.TrackID] = hist

		// Fewer than two points: direction undefined, never qualifies.
		if len(hist) < 2 {
			continue
		}

		crossed := false
		for i := 0; i+1 < len(hist); i++ {
			if (hist[i].x < c.cfg.LineX) != (hist[i+1].x < c.cfg.LineX) {
				crossed = true
				break
			}
		}
		if !crossed {
			continue
		}

		net := hist[len(hist)-1].x - hist[0].x
		if abs(net) < c.cfg.MinDistance {
			monitoring.Debugf("count: track %d straddling line but stationary (net %.1f px)", o.TrackID, net)
			continue
		}

		if last, ok := c.lastCounted[o.TrackID]; ok && now.Sub(last) < c.cfg.Cooldown {
			continue
		}

		dir := LeftToRight
		if net < 0 {
			dir = RightToLeft
		}

		c.seq++
		c.lastCounted[o.TrackID] = now
		// Restart the window at the current point: a second event must
		// come from a fresh crossing, not from this one lingering in
		// history past the cooldown.
		c.history[o.TrackID] = []point{hist[len(hist)-1]}
		e := Event{
			Seq:       c.seq,
			TrackID:   o.TrackID,
			Timestamp: now,
			Direction: dir,
			FrameRef:  frameRef,
		}
		events = append(events, e)
		monitoring.Logf("count: #%d track %d %s", e.Seq, e.TrackID, e.Direction)
		c.emit(ctx, e)
	}
	return events
}

// Forget drops history and is called with the tracker's deleted IDs each
// frame. History for an identifier is contiguous in time: it never spans a
// track's deletion. Ledger entries go with it; the tracker never reuses an
// ID, so a stale entry could only leak memory, not miscount.
func (c *Counter) Forget(ids []int64) {
	for _, id := range ids {
		delete(c.history, id)
		delete(c.lastCounted, id)
	}
}

// Total returns the number of events emitted so far.
func (c *Counter) Total() int64 { return c.seq }

func (c *Counter) emit(ctx context.Context, e Event) {
	for _, s := range c.sinks {
		if err := s.HandleEvent(ctx, e); err != nil {
			// Sink failures never un-count an event.
			monitoring.Logf("count: sink failed for event #%d (track %d): %v", e.Seq, e.TrackID, err)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
