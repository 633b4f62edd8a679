// Command waterway counts objects crossing a virtual line in a video
// feed. Detections come from an external detector; this binary wires the
// daylight-aware scheduler, the tracker and the crossing counter together
// and persists counted events to sqlite.
//
// Frame acquisition and inference are external collaborators. The binary
// ships with a replay source that feeds recorded per-frame detections
// (JSON lines) through the full pipeline, which is how the engine is
// exercised end to end without camera hardware; a deployment links its
// own sched.Source and pipeline.Detector the same way.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shoreline-data/waterway.report/internal/config"
	"github.com/shoreline-data/waterway.report/internal/count"
	"github.com/shoreline-data/waterway.report/internal/eventdb"
	"github.com/shoreline-data/waterway.report/internal/monitoring"
	"github.com/shoreline-data/waterway.report/internal/pipeline"
	"github.com/shoreline-data/waterway.report/internal/sched"
	"github.com/shoreline-data/waterway.report/internal/track"
	"github.com/shoreline-data/waterway.report/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to JSON tuning config (optional)")
	dbFile     = flag.String("db", "waterway.db", "Path to the crossing-event store")
	replayPath = flag.String("replay", "", "Replay a JSONL detection log through the pipeline")
	alwaysOn   = flag.Bool("always-on", false, "Skip the daylight gate (useful for replays)")
	verbose    = flag.Bool("verbose", false, "Log per-frame detail")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	monitoring.Verbose = *verbose

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	if *replayPath == "" {
		log.Fatal("no frame source: pass -replay (camera sources are wired per deployment)")
	}
	replay, err := loadReplay(*replayPath)
	if err != nil {
		log.Fatalf("load replay: %v", err)
	}

	db, err := eventdb.Open(*dbFile)
	if err != nil {
		log.Fatalf("open event store: %v", err)
	}
	defer db.Close()

	isDaytime := func(time.Time) bool { return true }
	if !*alwaysOn {
		lat, lon := cfg.Site()
		isDaytime = sched.Daytime(lat, lon, cfg.Twilight())
	}

	scheduler := sched.New(cfg.Scheduler(), replay, isDaytime, nil)
	tracker := track.NewTracker(cfg.Tracker())

	logSink := count.SinkFunc(func(_ context.Context, e count.Event) error {
		monitoring.Logf("boat #%d (track %d) %s at %s",
			e.Seq, e.TrackID, e.Direction, e.Timestamp.Format("15:04:05"))
		return nil
	})
	counter := count.NewCounter(cfg.Counter(), nil, db, logSink)

	p := pipeline.New(scheduler, replay, tracker, counter, nil,
		pipeline.WithMinConfidence(cfg.Confidence()),
		pipeline.WithClassFilter(cfg.ClassFilter),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitoring.Logf("waterway: counting started (line config loaded, %d replay frames)", replay.Len())
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("pipeline: %v", err)
	}
	monitoring.Logf("waterway: shutdown complete, %d frames, %d crossings", p.Frames(), counter.Total())
}
