package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// movingDet returns a detection of a 40x20 box centered at (cx, cy).
func movingDet(cx, cy float64) Detection {
	return Detection{
		Box:        Box{X1: cx - 20, Y1: cy - 10, X2: cx + 20, Y2: cy + 10},
		Confidence: 0.9,
	}
}

func TestTrackerContinuity(t *testing.T) {
	t.Parallel()
	tr := NewTracker(Config{MinHits: 3, MaxAge: 15, IOUThreshold: 0.1})

	// One object moving smoothly left to right, 22 px per frame.
	var ids []int64
	for frame := 0; frame < 10; frame++ {
		cx := 40.0 + 22.0*float64(frame)
		obs, _ := tr.Update([]Detection{movingDet(cx, 100)})
		for _, o := range obs {
			ids = append(ids, o.TrackID)
		}
	}

	// Confirmed from the third hit onward, and always the same identity.
	require.NotEmpty(t, ids)
	assert.Len(t, ids, 8, "confirmed on frame 3 of 10")
	for _, id := range ids {
		assert.Equal(t, ids[0], id, "identity must persist across traversal")
	}
}

func TestTrackerConfirmationSuppressesNoise(t *testing.T) {
	t.Parallel()
	tr := NewTracker(Config{MinHits: 3, MaxAge: 15, IOUThreshold: 0.1})

	// A single-frame blip never reaches confirmation.
	obs, _ := tr.Update([]Detection{movingDet(300, 50)})
	assert.Empty(t, obs)

	// Nothing on following frames either.
	for i := 0; i < 5; i++ {
		obs, _ = tr.Update(nil)
		assert.Empty(t, obs)
	}
}

func TestTrackerOcclusionTolerance(t *testing.T) {
	t.Parallel()
	maxAge := 5
	tr := NewTracker(Config{MinHits: 2, MaxAge: maxAge, IOUThreshold: 0.05})

	var id int64
	for frame := 0; frame < 4; frame++ {
		cx := 100.0 + 10.0*float64(frame)
		obs, _ := tr.Update([]Detection{movingDet(cx, 100)})
		if len(obs) > 0 {
			id = obs[0].TrackID
		}
	}
	require.NotZero(t, id)

	// Object occluded for maxAge frames.
	for i := 0; i < maxAge; i++ {
		obs, removed := tr.Update(nil)
		assert.Empty(t, obs, "nothing surfaced during occlusion")
		assert.Empty(t, removed, "track must survive the gap")
	}

	// Reappears where the constant-velocity prediction expects it.
	cx := 100.0 + 10.0*float64(4+maxAge)
	obs, _ := tr.Update([]Detection{movingDet(cx, 100)})
	require.Len(t, obs, 1)
	assert.Equal(t, id, obs[0].TrackID, "same identity after occlusion")
}

func TestTrackerExpiry(t *testing.T) {
	t.Parallel()
	maxAge := 3
	tr := NewTracker(Config{MinHits: 2, MaxAge: maxAge, IOUThreshold: 0.05})

	var id int64
	for frame := 0; frame < 3; frame++ {
		obs, _ := tr.Update([]Detection{movingDet(100, 100)})
		if len(obs) > 0 {
			id = obs[0].TrackID
		}
	}
	require.NotZero(t, id)

	// Unmatched past maxAge: the track must be reported removed.
	var removedIDs []int64
	for i := 0; i <= maxAge+1; i++ {
		_, removed := tr.Update(nil)
		removedIDs = append(removedIDs, removed...)
	}
	require.Contains(t, removedIDs, id)
	assert.Zero(t, tr.ActiveTracks())

	// A new object at the same spot gets a fresh identifier.
	var newID int64
	for frame := 0; frame < 3; frame++ {
		obs, _ := tr.Update([]Detection{movingDet(100, 100)})
		if len(obs) > 0 {
			newID = obs[0].TrackID
		}
	}
	require.NotZero(t, newID)
	assert.NotEqual(t, id, newID, "expired identifiers are never reused")
}

func TestTrackerEmptyDetectionsIsValid(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	obs, removed := tr.Update(nil)
	assert.Empty(t, obs)
	assert.Empty(t, removed)
	obs, removed = tr.Update([]Detection{})
	assert.Empty(t, obs)
	assert.Empty(t, removed)
}

func TestTrackerMalformedDetectionSkipped(t *testing.T) {
	t.Parallel()
	tr := NewTracker(Config{MinHits: 1, MaxAge: 15, IOUThreshold: 0.1})

	bad := Detection{Box: Box{50, 50, 10, 60}, Confidence: 0.8} // x1 >= x2
	good := movingDet(200, 100)

	obs, _ := tr.Update([]Detection{bad, good})
	require.Len(t, obs, 1, "valid detection still processed")
	cx, _ := good.Box.Center()
	assert.InDelta(t, cx, obs[0].CenterX, 1e-6)
}

func TestTrackerTwoObjectsKeepIdentities(t *testing.T) {
	t.Parallel()
	tr := NewTracker(Config{MinHits: 2, MaxAge: 15, IOUThreshold: 0.05})

	// Two objects approaching each other; the assignment must not swap
	// them while they remain spatially separable.
	idsAt := func(obs []Observation) map[int64]float64 {
		m := make(map[int64]float64, len(obs))
		for _, o := range obs {
			m[o.TrackID] = o.CenterX
		}
		return m
	}

	var firstFrame map[int64]float64
	var lastFrame map[int64]float64
	for frame := 0; frame < 6; frame++ {
		left := movingDet(100+10*float64(frame), 100)
		right := movingDet(400-10*float64(frame), 100)
		obs, _ := tr.Update([]Detection{left, right})
		if len(obs) == 2 {
			if firstFrame == nil {
				firstFrame = idsAt(obs)
			}
			lastFrame = idsAt(obs)
		}
	}
	require.Len(t, firstFrame, 2)
	require.Len(t, lastFrame, 2)

	for id, x0 := range firstFrame {
		x1, ok := lastFrame[id]
		require.True(t, ok, "identity %d vanished", id)
		if x0 < 250 {
			assert.Greater(t, x1, x0, "left object keeps moving right under id %d", id)
		} else {
			assert.Less(t, x1, x0, "right object keeps moving left under id %d", id)
		}
	}
}

func TestTrackerLowIOURejected(t *testing.T) {
	t.Parallel()
	tr := NewTracker(Config{MinHits: 1, MaxAge: 2, IOUThreshold: 0.3})

	obs, _ := tr.Update([]Detection{movingDet(100, 100)})
	require.Len(t, obs, 1)
	id := obs[0].TrackID

	// A detection far enough to fall under the IOU threshold must spawn a
	// new track instead of stretching the old one.
	obs, _ = tr.Update([]Detection{movingDet(160, 100)})
	require.Len(t, obs, 1)
	assert.NotEqual(t, id, obs[0].TrackID)
}

func TestTrackerVelocityEstimate(t *testing.T) {
	t.Parallel()
	tr := NewTracker(Config{MinHits: 2, MaxAge: 15, IOUThreshold: 0.05})

	var got Observation
	for frame := 0; frame < 8; frame++ {
		obs, _ := tr.Update([]Detection{movingDet(100+15*float64(frame), 100)})
		if len(obs) > 0 {
			got = obs[0]
		}
	}
	// Constant-velocity filter should have converged near 15 px/frame.
	assert.InDelta(t, 15.0, got.Velocity, 3.0)
}
