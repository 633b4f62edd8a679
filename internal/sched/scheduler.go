// Package sched gates frame acquisition on daylight and owns the capture
// resource, including open-retry backoff.
package sched

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shoreline-data/waterway.report/internal/monitoring"
	"github.com/shoreline-data/waterway.report/internal/timeutil"
)

// State of the scheduler.
type State string

const (
	Active   State = "active"   // daytime, frames flowing
	Sleeping State = "sleeping" // nighttime, capture released
)

// ErrCaptureUnavailable is returned when opening the capture resource
// fails for a whole retry cycle. It is recoverable: the scheduler stays
// eligible to retry on the next tick.
var ErrCaptureUnavailable = errors.New("capture unavailable after retries")

// Frame is one acquired frame handed to the detector. Data is opaque to
// the scheduler.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Capture is an open acquisition handle.
type Capture interface {
	Read() (Frame, error)
	Release() error
}

// Source opens capture handles. Implementations wrap a camera, a video
// file, or a replay log.
type Source interface {
	Open(ctx context.Context) (Capture, error)
}

// Config holds scheduler tuning parameters.
type Config struct {
	SuspendFor      time.Duration // how long to sleep before re-checking daylight
	MaxOpenAttempts int           // capture open attempts per cycle
	BackoffBaseSec  float64       // attempt n waits base^n seconds
}

// DefaultConfig returns the scheduler defaults: 5 minute night suspends
// and up to 5 open attempts at 2^n second backoff.
func DefaultConfig() Config {
	return Config{
		SuspendFor:      300 * time.Second,
		MaxOpenAttempts: 5,
		BackoffBaseSec:  2,
	}
}

// Scheduler is a two-state machine (Active/Sleeping) driven by a daylight
// predicate. It owns the capture handle: Next blocks through night sleeps
// and open retries, returning the next frame while daytime lasts.
type Scheduler struct {
	cfg       Config
	src       Source
	clock     timeutil.Clock
	isDaytime func(time.Time) bool

	state State
	cap   Capture
}

// New creates a scheduler. The initial state comes from evaluating the
// daylight predicate at startup. Zero-valued config fields fall back to
// DefaultConfig values.
func New(cfg Config, src Source, isDaytime func(time.Time) bool, clock timeutil.Clock) *Scheduler {
	def := DefaultConfig()
	if cfg.SuspendFor <= 0 {
		cfg.SuspendFor = def.SuspendFor
	}
	if cfg.MaxOpenAttempts <= 0 {
		cfg.MaxOpenAttempts = def.MaxOpenAttempts
	}
	if cfg.BackoffBaseSec <= 0 {
		cfg.BackoffBaseSec = def.BackoffBaseSec
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s := &Scheduler{cfg: cfg, src: src, clock: clock, isDaytime: isDaytime}
	if isDaytime(clock.Now()) {
		s.state = Active
	} else {
		s.state = Sleeping
	}
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() State { return s.state }

// Next returns the next frame. It re-evaluates the daylight predicate
// first: nighttime releases the capture and sleeps in SuspendFor chunks
// until dawn. A capture that cannot be opened within the retry budget
// yields ErrCaptureUnavailable; the caller may simply call Next again on
// its own schedule. Cancellation is honoured at the top of each tick and
// during every wait.
func (s *Scheduler) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			s.release()
			return Frame{}, err
		}

		if !s.isDaytime(s.clock.Now()) {
			if s.state == Active {
				monitoring.Logf("sched: nighttime at %s, suspending acquisition",
					s.clock.Now().Format("15:04"))
				s.release()
				s.state = Sleeping
			}
			if err := s.wait(ctx, s.cfg.SuspendFor); err != nil {
				s.release()
				return Frame{}, err
			}
			continue
		}

		if s.state == Sleeping {
			monitoring.Logf("sched: daylight at %s, resuming acquisition",
				s.clock.Now().Format("15:04"))
			s.state = Active
		}

		if s.cap == nil {
			if err := s.open(ctx); err != nil {
				return Frame{}, err
			}
		}

		frame, err := s.cap.Read()
		if err != nil {
			// Reads fail when the device wedges; drop the handle so the
			// next tick reopens it under the retry budget.
			monitoring.Logf("sched: frame read failed: %v", err)
			s.release()
			return Frame{}, fmt.Errorf("read frame: %w", err)
		}
		return frame, nil
	}
}

// open acquires the capture handle, retrying with exponential backoff:
// attempt n sleeps base^n seconds before the next try. Exhausting the
// budget reports ErrCaptureUnavailable without killing the scheduler.
func (s *Scheduler) open(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxOpenAttempts; attempt++ {
		handle, err := s.src.Open(ctx)
		if err == nil {
			s.cap = handle
			return nil
		}
		lastErr = err
		monitoring.Logf("sched: capture open failed [%d/%d]: %v",
			attempt, s.cfg.MaxOpenAttempts, err)

		delay := time.Duration(math.Pow(s.cfg.BackoffBaseSec, float64(attempt)) * float64(time.Second))
		if err := s.wait(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrCaptureUnavailable, lastErr)
}

// Close releases the capture resource.
func (s *Scheduler) Close() {
	s.release()
}

func (s *Scheduler) release() {
	if s.cap == nil {
		return
	}
	if err := s.cap.Release(); err != nil {
		monitoring.Logf("sched: capture release failed: %v", err)
	}
	s.cap = nil
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
