// Package track implements SORT-style multi-object tracking: Kalman
// constant-velocity motion models per track, IOU-based Hungarian
// association between predicted tracks and new detections, and a
// tentative/confirmed/lost track lifecycle.
package track

import "fmt"

// Box is an axis-aligned bounding box in pixel coordinates. Coordinates
// are real-valued; rounding to integer pixels happens only at presentation
// boundaries, never inside the tracker.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Width returns the box width.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area. Degenerate boxes have area 0.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Center returns the box center point.
func (b Box) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// IOU returns the intersection-over-union of two boxes. Disjoint boxes and
// boxes with zero area score 0; IOU never errors.
func IOU(a, b Box) float64 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Detection is a single observation from the external detector: a bounding
// box plus a confidence score, optionally carrying the detector's class
// label for filtering upstream of the tracker.
type Detection struct {
	Box        Box
	Confidence float64
	Label      string
}

// Validate rejects malformed detections at ingestion. A bad detection is a
// local error; the rest of the frame is still processed.
func (d Detection) Validate() error {
	if d.Box.X1 >= d.Box.X2 || d.Box.Y1 >= d.Box.Y2 {
		return fmt.Errorf("degenerate box [%.1f %.1f %.1f %.1f]",
			d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0, 1]", d.Confidence)
	}
	return nil
}
