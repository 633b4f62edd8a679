package sched

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Daytime returns a daylight predicate for a fixed location. The predicate
// is true between sunrise and sunset widened by the twilight margin on
// both ends, so acquisition covers dawn and dusk when traffic is still
// visible.
func Daytime(lat, lon float64, twilight time.Duration) func(time.Time) bool {
	return func(ts time.Time) bool {
		rise, set := sunrise.SunriseSunset(lat, lon, ts.Year(), ts.Month(), ts.Day())
		if rise.IsZero() || set.IsZero() {
			// Polar day or night: fall back to always-on so a
			// misconfigured latitude degrades to counting, not darkness.
			return true
		}
		return ts.After(rise.Add(-twilight)) && ts.Before(set.Add(twilight))
	}
}
