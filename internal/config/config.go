// Package config loads counter tuning from a JSON file. Fields are
// pointers so a partial file overlays the defaults: omitted values keep
// their built-in settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"encoding/json"

	"github.com/shoreline-data/waterway.report/internal/count"
	"github.com/shoreline-data/waterway.report/internal/sched"
	"github.com/shoreline-data/waterway.report/internal/track"
)

// Site defaults: the Colorado Springs channel installation.
const (
	DefaultFrameWidth    = 640
	DefaultFrameHeight   = 360
	DefaultLineRatio     = 0.5
	DefaultConfThreshold = 0.35
	DefaultLatitude      = 38.833
	DefaultLongitude     = -104.821
)

// Config is the root tuning document. The JSON schema is flat so the same
// file drives startup configuration and field-tech edits.
type Config struct {
	// Detector-side filtering (applied before detections reach the core)
	ClassFilter   []string `json:"class_filter,omitempty"`
	ConfThreshold *float64 `json:"conf_threshold,omitempty"`

	// Frame geometry
	FrameWidth  *int     `json:"frame_width,omitempty"`
	FrameHeight *int     `json:"frame_height,omitempty"`
	LineRatio   *float64 `json:"line_ratio,omitempty"` // counting line as a fraction of width
	LineX       *float64 `json:"line_x,omitempty"`     // absolute pixels; wins over line_ratio

	// Tracker
	MinHits      *int     `json:"min_hits,omitempty"`
	MaxAge       *int     `json:"max_age,omitempty"`
	IOUThreshold *float64 `json:"iou_threshold,omitempty"`

	// Counter
	MinCrossDistance *float64 `json:"min_cross_distance,omitempty"`
	CooldownSec      *float64 `json:"cooldown_sec,omitempty"`
	HistorySize      *int     `json:"history_size,omitempty"`

	// Scheduler
	SuspendSec      *float64 `json:"suspend_sec,omitempty"`
	MaxOpenAttempts *int     `json:"max_open_attempts,omitempty"`
	BackoffBaseSec  *float64 `json:"backoff_base_sec,omitempty"`
	TwilightMin     *float64 `json:"twilight_min,omitempty"`

	// Site
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Load reads a Config from a JSON file. The file must have a .json
// extension; omitted fields stay nil so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", cleanPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cleanPath, err)
	}
	return &cfg, nil
}

// Validate rejects values outside their legal ranges.
func (c *Config) Validate() error {
	if c.ConfThreshold != nil && (*c.ConfThreshold < 0 || *c.ConfThreshold > 1) {
		return fmt.Errorf("conf_threshold %v outside [0, 1]", *c.ConfThreshold)
	}
	if c.LineRatio != nil && (*c.LineRatio <= 0 || *c.LineRatio >= 1) {
		return fmt.Errorf("line_ratio %v outside (0, 1)", *c.LineRatio)
	}
	if c.IOUThreshold != nil && (*c.IOUThreshold < 0 || *c.IOUThreshold > 1) {
		return fmt.Errorf("iou_threshold %v outside [0, 1]", *c.IOUThreshold)
	}
	if c.MinHits != nil && *c.MinHits < 1 {
		return fmt.Errorf("min_hits must be at least 1")
	}
	if c.MaxAge != nil && *c.MaxAge < 1 {
		return fmt.Errorf("max_age must be at least 1")
	}
	if c.CooldownSec != nil && *c.CooldownSec < 0 {
		return fmt.Errorf("cooldown_sec cannot be negative")
	}
	if c.Latitude != nil && (*c.Latitude < -90 || *c.Latitude > 90) {
		return fmt.Errorf("latitude %v outside [-90, 90]", *c.Latitude)
	}
	if c.Longitude != nil && (*c.Longitude < -180 || *c.Longitude > 180) {
		return fmt.Errorf("longitude %v outside [-180, 180]", *c.Longitude)
	}
	return nil
}

// FrameSize returns the configured frame dimensions.
func (c *Config) FrameSize() (w, h int) {
	w, h = DefaultFrameWidth, DefaultFrameHeight
	if c.FrameWidth != nil {
		w = *c.FrameWidth
	}
	if c.FrameHeight != nil {
		h = *c.FrameHeight
	}
	return w, h
}

// Confidence returns the detector confidence floor.
func (c *Config) Confidence() float64 {
	if c.ConfThreshold != nil {
		return *c.ConfThreshold
	}
	return DefaultConfThreshold
}

// Tracker materialises the tracker configuration.
func (c *Config) Tracker() track.Config {
	out := track.DefaultConfig()
	if c.MinHits != nil {
		out.MinHits = *c.MinHits
	}
	if c.MaxAge != nil {
		out.MaxAge = *c.MaxAge
	}
	if c.IOUThreshold != nil {
		out.IOUThreshold = *c.IOUThreshold
	}
	return out
}

// Counter materialises the counter configuration. The line position is
// absolute line_x when set, otherwise line_ratio of the frame width.
func (c *Config) Counter() count.Config {
	out := count.DefaultConfig()
	w, _ := c.FrameSize()
	ratio := DefaultLineRatio
	if c.LineRatio != nil {
		ratio = *c.LineRatio
	}
	out.LineX = float64(w) * ratio
	if c.LineX != nil {
		out.LineX = *c.LineX
	}
	if c.MinCrossDistance != nil {
		out.MinDistance = *c.MinCrossDistance
	}
	if c.CooldownSec != nil {
		out.Cooldown = time.Duration(*c.CooldownSec * float64(time.Second))
	}
	if c.HistorySize != nil {
		out.HistorySize = *c.HistorySize
	}
	return out
}

// Scheduler materialises the scheduler configuration.
func (c *Config) Scheduler() sched.Config {
	out := sched.DefaultConfig()
	if c.SuspendSec != nil {
		out.SuspendFor = time.Duration(*c.SuspendSec * float64(time.Second))
	}
	if c.MaxOpenAttempts != nil {
		out.MaxOpenAttempts = *c.MaxOpenAttempts
	}
	if c.BackoffBaseSec != nil {
		out.BackoffBaseSec = *c.BackoffBaseSec
	}
	return out
}

// Site returns the geographic coordinates for the daylight predicate.
func (c *Config) Site() (lat, lon float64) {
	lat, lon = DefaultLatitude, DefaultLongitude
	if c.Latitude != nil {
		lat = *c.Latitude
	}
	if c.Longitude != nil {
		lon = *c.Longitude
	}
	return lat, lon
}

// Twilight returns the dawn/dusk margin applied around sunrise/sunset.
func (c *Config) Twilight() time.Duration {
	if c.TwilightMin != nil {
		return time.Duration(*c.TwilightMin * float64(time.Minute))
	}
	return 30 * time.Minute
}
