package track

import (
	"math"
	"sort"

	"github.com/shoreline-data/waterway.report/internal/monitoring"
)

// State is the lifecycle state of a track.
type State string

const (
	StateTentative State = "tentative" // new track, not yet confirmed
	StateConfirmed State = "confirmed" // enough hits to be surfaced downstream
	StateLost      State = "lost"      // confirmed but unmatched this frame
)

// Config holds tracker tuning parameters.
type Config struct {
	MinHits          int     // matches before a tentative track is confirmed
	MaxAge           int     // frames without a match before deletion
	IOUThreshold     float64 // minimum IOU for a valid association
	ProcessNoisePos  float64 // Kalman process noise, position (σ²)
	ProcessNoiseVel  float64 // Kalman process noise, velocity (σ²)
	MeasurementNoise float64 // Kalman measurement noise (σ²)
}

// DefaultConfig returns the tracker defaults: the SORT parameter triplet
// tuned for the waterway channel (max_age=15, min_hits=3, iou=0.1) plus
// moderate noise terms for the constant-velocity model.
func DefaultConfig() Config {
	return Config{
		MinHits:          3,
		MaxAge:           15,
		IOUThreshold:     0.1,
		ProcessNoisePos:  1.0,
		ProcessNoiseVel:  0.5,
		MeasurementNoise: 1.0,
	}
}

// Track is one persistent identity hypothesis. Owned exclusively by the
// Tracker; callers only see Observations.
type Track struct {
	ID    int64
	State State

	Hits            int // successful matches, total
	Age             int // frames since creation
	TimeSinceUpdate int // frames since the last successful match

	kf *kalmanState
}

// Box returns the track's current estimated bounding box.
func (t *Track) Box() Box { return t.kf.box() }

// Velocity returns the estimated per-frame velocity of the track center.
func (t *Track) Velocity() (vx, vy float64) { return t.kf.vx, t.kf.vy }

// Observation is the per-frame output for one confirmed track: identity
// plus the current box and center. This is the entire downstream contract;
// tentative and lost tracks never leave the tracker, which is what keeps
// single-frame detector noise from ever reaching the counter.
type Observation struct {
	TrackID  int64
	Box      Box
	CenterX  float64
	CenterY  float64
	Velocity float64
}

// Tracker owns the set of active tracks. Not safe for concurrent use; the
// pipeline processes frames strictly one at a time.
type Tracker struct {
	cfg    Config
	tracks []*Track
	nextID int64
}

// NewTracker creates a tracker. Zero-valued config fields fall back to
// DefaultConfig values.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.MinHits <= 0 {
		cfg.MinHits = def.MinHits
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.IOUThreshold <= 0 {
		cfg.IOUThreshold = def.IOUThreshold
	}
	if cfg.ProcessNoisePos <= 0 {
		cfg.ProcessNoisePos = def.ProcessNoisePos
	}
	if cfg.ProcessNoiseVel <= 0 {
		cfg.ProcessNoiseVel = def.ProcessNoiseVel
	}
	if cfg.MeasurementNoise <= 0 {
		cfg.MeasurementNoise = def.MeasurementNoise
	}
	return &Tracker{cfg: cfg, nextID: 1}
}

// Update runs one frame of tracking: predict every track forward, match
// predictions to detections, correct matched tracks, spawn tentative
// tracks for unmatched detections and expire stale tracks.
//
// It returns the confirmed observations for this frame plus the IDs of
// tracks deleted this frame, so downstream position history can be pruned.
// An empty detection slice is valid input: every track just ages.
func (t *Tracker) Update(dets []Detection) (obs []Observation, removed []int64) {
	valid := dets[:0:0]
	for _, d := range dets {
		if err := d.Validate(); err != nil {
			monitoring.Logf("tracker: dropping detection: %v", err)
			continue
		}
		valid = append(valid, d)
	}

	// Predict all tracks one frame step.
	for _, tr := range t.tracks {
		tr.kf.predict(t.cfg.ProcessNoisePos, t.cfg.ProcessNoiseVel)
		tr.Age++
		tr.TimeSinceUpdate++
	}

	matches := t.associate(valid)

	matchedDet := make(map[int]bool, len(valid))
	for ti, di := range matches {
		if di < 0 {
			continue
		}
		tr := t.tracks[ti]
		tr.kf.update(valid[di].Box, t.cfg.MeasurementNoise)
		tr.Hits++
		tr.TimeSinceUpdate = 0
		matchedDet[di] = true

		switch {
		case tr.State == StateTentative && tr.Hits >= t.cfg.MinHits:
			tr.State = StateConfirmed
		case tr.State == StateLost:
			tr.State = StateConfirmed
		}
	}

	// Unmatched tracks: confirmed ones go lost until they reappear or age
	// out; tentative ones lose their hit streak, so confirmation takes
	// MinHits consecutive matches.
	for ti, di := range matches {
		if di >= 0 {
			continue
		}
		tr := t.tracks[ti]
		switch tr.State {
		case StateConfirmed:
			tr.State = StateLost
		case StateTentative:
			tr.Hits = 0
		}
	}

	// Spawn tentative tracks for unmatched detections.
	for di, d := range valid {
		if matchedDet[di] {
			continue
		}
		fresh := &Track{
			ID:    t.nextID,
			State: StateTentative,
			Hits:  1,
			kf:    newKalmanState(d.Box),
		}
		// MinHits <= 1 means first sight confirms.
		if fresh.Hits >= t.cfg.MinHits {
			fresh.State = StateConfirmed
		}
		t.tracks = append(t.tracks, fresh)
		t.nextID++
	}

	// Expire tracks past max age. IDs are never reused, so an expired
	// identity can never resurface.
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.TimeSinceUpdate > t.cfg.MaxAge {
			removed = append(removed, tr.ID)
			continue
		}
		kept = append(kept, tr)
	}
	t.tracks = kept

	for _, tr := range t.tracks {
		if tr.State != StateConfirmed || tr.TimeSinceUpdate != 0 {
			continue
		}
		cx, cy := tr.Box().Center()
		vx, vy := tr.Velocity()
		obs = append(obs, Observation{
			TrackID:  tr.ID,
			Box:      tr.Box(),
			CenterX:  cx,
			CenterY:  cy,
			Velocity: speed(vx, vy),
		})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].TrackID < obs[j].TrackID })
	return obs, removed
}

// associate builds the 1-IOU cost matrix between current tracks and
// detections and solves it. Pairs under the IOU threshold are forbidden up
// front and, belt and braces, rejected again after the solve: the global
// optimum can still route a row through a poor pairing when everything
// else is worse.
func (t *Tracker) associate(dets []Detection) []int {
	if len(t.tracks) == 0 {
		return nil
	}
	cost := make([][]float64, len(t.tracks))
	for ti, tr := range t.tracks {
		row := make([]float64, len(dets))
		pred := tr.Box()
		for di, d := range dets {
			iou := IOU(pred, d.Box)
			if iou < t.cfg.IOUThreshold {
				row[di] = forbiddenCost
			} else {
				row[di] = 1 - iou
			}
		}
		cost[ti] = row
	}

	matches := hungarianAssign(cost)
	for ti, di := range matches {
		if di >= 0 && IOU(t.tracks[ti].Box(), dets[di].Box) < t.cfg.IOUThreshold {
			matches[ti] = -1
		}
	}
	return matches
}

// ActiveTracks returns the number of live (non-expired) tracks. Diagnostic
// only.
func (t *Tracker) ActiveTracks() int { return len(t.tracks) }

func speed(vx, vy float64) float64 {
	return math.Hypot(vx, vy)
}
