// Command report renders an HTML chart of daily crossing counts from
// the event store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shoreline-data/waterway.report/internal/eventdb"
	"github.com/shoreline-data/waterway.report/internal/report"
	"github.com/shoreline-data/waterway.report/internal/version"
)

func main() {
	var dbPath string
	var outPath string
	var days int
	var tzName string
	var showVer bool

	flag.StringVar(&dbPath, "db", "waterway.db", "path to the crossing-event store")
	flag.StringVar(&outPath, "out", "report.html", "output HTML file")
	flag.IntVar(&days, "days", 30, "number of days to include, ending today")
	flag.StringVar(&tzName, "tz", "Local", "IANA timezone for day boundaries")
	flag.BoolVar(&showVer, "version", false, "print version and exit")
	flag.Parse()

	if showVer {
		fmt.Println(version.String())
		return
	}
	if days < 1 {
		log.Fatalf("days must be at least 1")
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", tzName, err)
	}

	db, err := eventdb.Open(dbPath)
	if err != nil {
		log.Fatalf("open event store: %v", err)
	}
	defer db.Close()

	// Day boundaries at local midnight; the range ends tomorrow so
	// today's partial count is included.
	now := time.Now().In(loc)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)

	out, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("create %s: %v", outPath, err)
	}
	defer out.Close()

	if err := report.Render(context.Background(), db, start, end, loc, out); err != nil {
		log.Fatalf("render report: %v", err)
	}
	fmt.Printf("wrote %s (%s to %s)\n", outPath,
		start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02"))
}
