// Package report renders traffic summaries from the crossing-event store.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/shoreline-data/waterway.report/internal/eventdb"
)

// Store is the slice of the event store the report needs.
type Store interface {
	DailyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]eventdb.DayCount, error)
}

// Render writes an HTML bar chart of daily crossing counts, split by
// direction, for [start, end) in the given location.
func Render(ctx context.Context, store Store, start, end time.Time, loc *time.Location, w io.Writer) error {
	days, err := store.DailyCounts(ctx, start, end, loc)
	if err != nil {
		return fmt.Errorf("load daily counts: %w", err)
	}

	labels := make([]string, 0, len(days))
	ltr := make([]opts.BarData, 0, len(days))
	rtl := make([]opts.BarData, 0, len(days))
	total := 0
	for _, d := range days {
		labels = append(labels, d.Day)
		ltr = append(ltr, opts.BarData{Value: d.LeftToRight})
		rtl = append(rtl, opts.BarData{Value: d.RightToLeft})
		total += d.Total()
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Waterway traffic",
			Subtitle: fmt.Sprintf("%s to %s, %d crossings",
				start.In(loc).Format("2006-01-02"),
				end.In(loc).Add(-time.Nanosecond).Format("2006-01-02"),
				total),
		}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "waterway.report"}),
	)
	bar.SetXAxis(labels).
		AddSeries("left-to-right", ltr).
		AddSeries("right-to-left", rtl)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
