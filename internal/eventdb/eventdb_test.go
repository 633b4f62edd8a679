package eventdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoreline-data/waterway.report/internal/count"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func event(seq, trackID int64, ts time.Time, dir count.Direction) count.Event {
	return count.Event{
		Seq:       seq,
		TrackID:   trackID,
		Timestamp: ts,
		Direction: dir,
		FrameRef:  "frame-ref",
	}
}

func TestInsertAndQueryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ts := time.Date(2025, 7, 15, 14, 30, 0, 0, time.UTC)
	require.NoError(t, db.InsertEvent(ctx, event(1, 42, ts, count.LeftToRight)))

	got, err := db.EventsBetween(ctx, ts.Add(-time.Hour), ts.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(42), got[0].TrackID)
	assert.True(t, got[0].Timestamp.Equal(ts))
	assert.Equal(t, count.LeftToRight, got[0].Direction)
	assert.Equal(t, "frame-ref", got[0].FrameRef)
}

func TestEventsBetweenBoundsAndLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 7, 15, 8, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.InsertEvent(ctx, event(i, i, ts, count.LeftToRight)))
	}

	// Half-open interval: the event exactly at end is excluded.
	got, err := db.EventsBetween(ctx, base.Add(time.Hour), base.Add(3*time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = db.EventsBetween(ctx, base, base.Add(24*time.Hour), 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].Seq, "sequence order")
}

func TestDuplicateSeqRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ts := time.Now()
	require.NoError(t, db.InsertEvent(ctx, event(1, 10, ts, count.LeftToRight)))
	err := db.InsertEvent(ctx, event(1, 11, ts, count.RightToLeft))
	assert.Error(t, err, "seq is the primary key; events are immutable")
}

func TestDailyCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	// Two boats on the 15th (one each direction), one on the 16th. The
	// third event is late evening Denver time but already the next day in
	// UTC, which is exactly what the loc-aware rollup has to get right.
	mk := func(seq int64, ts time.Time, dir count.Direction) {
		require.NoError(t, db.InsertEvent(ctx, event(seq, seq, ts, dir)))
	}
	mk(1, time.Date(2025, 7, 15, 9, 0, 0, 0, denver), count.LeftToRight)
	mk(2, time.Date(2025, 7, 15, 22, 30, 0, 0, denver), count.RightToLeft)
	mk(3, time.Date(2025, 7, 16, 10, 0, 0, 0, denver), count.LeftToRight)

	start := time.Date(2025, 7, 15, 0, 0, 0, 0, denver)
	end := time.Date(2025, 7, 17, 0, 0, 0, 0, denver)
	days, err := db.DailyCounts(ctx, start, end, denver)
	require.NoError(t, err)

	require.Len(t, days, 2)
	assert.Equal(t, "2025-07-15", days[0].Day)
	assert.Equal(t, 1, days[0].LeftToRight)
	assert.Equal(t, 1, days[0].RightToLeft)
	assert.Equal(t, 2, days[0].Total())
	assert.Equal(t, "2025-07-16", days[1].Day)
	assert.Equal(t, 1, days[1].Total())
}

func TestSinkInterface(t *testing.T) {
	db := openTestDB(t)
	var _ count.Sink = db

	ctx := context.Background()
	ts := time.Now().UTC()
	require.NoError(t, db.HandleEvent(ctx, event(1, 5, ts, count.RightToLeft)))

	got, err := db.EventsBetween(ctx, ts.Add(-time.Minute), ts.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
