package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shoreline-data/waterway.report/internal/sched"
	"github.com/shoreline-data/waterway.report/internal/track"
)

// replayLog feeds recorded detections through the pipeline. Each line of
// the log is one frame:
//
//	{"detections":[{"box":[x1,y1,x2,y2],"confidence":0.9,"label":"boat"}]}
//
// The log acts as both the capture source (frames) and the detector
// (their detections); the strictly sequential pipeline keeps the two
// cursors in lockstep.
type replayLog struct {
	frames  [][]track.Detection
	readIdx int
	detIdx  int
}

type replayFrame struct {
	Detections []replayDetection `json:"detections"`
}

type replayDetection struct {
	Box        [4]float64 `json:"box"`
	Confidence float64    `json:"confidence"`
	Label      string     `json:"label,omitempty"`
}

func loadReplay(path string) (*replayLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseReplay(f)
}

func parseReplay(r io.Reader) (*replayLog, error) {
	rl := &replayLog{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rf replayFrame
		if err := json.Unmarshal(sc.Bytes(), &rf); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		dets := make([]track.Detection, 0, len(rf.Detections))
		for _, d := range rf.Detections {
			dets = append(dets, track.Detection{
				Box:        track.Box{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
				Confidence: d.Confidence,
				Label:      d.Label,
			})
		}
		rl.frames = append(rl.frames, dets)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return rl, nil
}

// Len returns the number of recorded frames.
func (r *replayLog) Len() int { return len(r.frames) }

// Open implements sched.Source.
func (r *replayLog) Open(ctx context.Context) (sched.Capture, error) {
	return r, nil
}

// Read implements sched.Capture. The log is finite; io.EOF ends the
// pipeline cleanly.
func (r *replayLog) Read() (sched.Frame, error) {
	if r.readIdx >= len(r.frames) {
		return sched.Frame{}, io.EOF
	}
	r.readIdx++
	return sched.Frame{Timestamp: time.Now()}, nil
}

// Release implements sched.Capture.
func (r *replayLog) Release() error {
	return nil
}

// Detect implements pipeline.Detector.
func (r *replayLog) Detect(ctx context.Context, _ sched.Frame) ([]track.Detection, error) {
	if r.detIdx >= len(r.frames) {
		return nil, nil
	}
	dets := r.frames[r.detIdx]
	r.detIdx++
	return dets, nil
}
