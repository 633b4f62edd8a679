// Package eventdb persists crossing events to sqlite and serves the range
// and rollup queries the report tooling needs.
package eventdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shoreline-data/waterway.report/internal/count"
)

// DB wraps the sqlite handle for the crossing-event store.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the event store at path. ":memory:"
// works for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS crossing_events (
			seq            BIGINT PRIMARY KEY,
			track_id       BIGINT NOT NULL,
			ts_unix_nanos  BIGINT NOT NULL,
			direction      TEXT NOT NULL,
			frame_ref      TEXT,
			timestamp      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_crossing_events_ts
			ON crossing_events (ts_unix_nanos);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create event schema: %w", err)
	}
	return &DB{db}, nil
}

// InsertEvent appends one crossing event.
func (d *DB) InsertEvent(ctx context.Context, e count.Event) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO crossing_events (seq, track_id, ts_unix_nanos, direction, frame_ref)
		VALUES (?, ?, ?, ?, ?)
	`, e.Seq, e.TrackID, e.Timestamp.UnixNano(), string(e.Direction), e.FrameRef)
	if err != nil {
		return fmt.Errorf("insert event #%d: %w", e.Seq, err)
	}
	return nil
}

// HandleEvent makes the store usable directly as a counter sink.
func (d *DB) HandleEvent(ctx context.Context, e count.Event) error {
	return d.InsertEvent(ctx, e)
}

// EventsBetween returns events with start <= timestamp < end, in sequence
// order, up to limit rows (limit <= 0 means no cap).
func (d *DB) EventsBetween(ctx context.Context, start, end time.Time, limit int) ([]count.Event, error) {
	query := `
		SELECT seq, track_id, ts_unix_nanos, direction, frame_ref
		FROM crossing_events
		WHERE ts_unix_nanos >= ? AND ts_unix_nanos < ?
		ORDER BY seq
	`
	args := []interface{}{start.UnixNano(), end.UnixNano()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []count.Event
	for rows.Next() {
		var e count.Event
		var nanos int64
		var dir string
		if err := rows.Scan(&e.Seq, &e.TrackID, &nanos, &dir, &e.FrameRef); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = time.Unix(0, nanos).UTC()
		e.Direction = count.Direction(dir)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DayCount is one day's traffic split by direction.
type DayCount struct {
	Day         string // YYYY-MM-DD in loc
	LeftToRight int
	RightToLeft int
}

// Total returns both directions combined.
func (d DayCount) Total() int { return d.LeftToRight + d.RightToLeft }

// DailyCounts rolls events up per calendar day in the given location over
// [start, end). Days with no traffic are simply absent.
func (d *DB) DailyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]DayCount, error) {
	events, err := d.EventsBetween(ctx, start, end, 0)
	if err != nil {
		return nil, err
	}

	// Rollup in Go rather than SQL: the day boundary depends on the site
	// timezone and the store keeps raw UTC nanos.
	byDay := make(map[string]*DayCount)
	var order []string
	for _, e := range events {
		day := e.Timestamp.In(loc).Format("2006-01-02")
		dc, ok := byDay[day]
		if !ok {
			dc = &DayCount{Day: day}
			byDay[day] = dc
			order = append(order, day)
		}
		if e.Direction == count.RightToLeft {
			dc.RightToLeft++
		} else {
			dc.LeftToRight++
		}
	}

	out := make([]DayCount, 0, len(order))
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out, nil
}
