// Command f15review provides offline, read-only access to a local SQLite
// snapshot of parsed Field 15 route descriptions for reviewers without
// cluster access to ClickHouse.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"field15parser/internal/storage"
)

func main() {
	dbPath := flag.String("db", "", "Path to the SQLite review cache")
	rules := flag.String("rules", "", "Filter by rules regime (IFR, VFR, OAT, GAT, IFPS)")
	adep := flag.String("adep", "", "Filter by ADEP (substring match)")
	ades := flag.String("ades", "", "Filter by ADES (substring match)")
	hasErrors := flag.Bool("errors-only", false, "Only show parse events with diagnostics")
	fullText := flag.String("search", "", "Full-text search on the raw Field 15 string")
	limit := flag.Int("limit", 20, "Maximum results to print")
	id := flag.Int64("id", 0, "Show a single parse event by ID")
	stats := flag.Bool("stats", false, "Print aggregate statistics instead of listing events")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -db is required")
		os.Exit(1)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening review cache: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if *stats {
		printStats(db)
		return
	}

	if *id != 0 {
		event, err := db.GetByID(*id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if event == nil {
			fmt.Fprintf(os.Stderr, "No parse event with id %d\n", *id)
			os.Exit(1)
		}
		printEvent(*event)
		return
	}

	events, err := db.Query(storage.QueryParams{
		Rules: *rules, ADEP: *adep, ADES: *ades,
		HasErrors: *hasErrors, FullText: *fullText, Limit: *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying review cache: %v\n", err)
		os.Exit(1)
	}

	for _, e := range events {
		printEvent(e)
		fmt.Println(strings.Repeat("-", 60))
	}
	fmt.Printf("%s result(s)\n", humanize.Comma(int64(len(events))))
}

func printEvent(e storage.ParseEvent) {
	fmt.Printf("id=%d rules=%s adep=%s ades=%s errors=%d elements=%d\n",
		e.ID, e.Rules, e.ADEP, e.ADES, e.ErrorCount, e.ElementCount)
	fmt.Printf("field15: %s\n", e.RawField15)
	if e.IsGolden {
		fmt.Println("golden: true")
	}
	if e.Annotation != "" {
		fmt.Printf("annotation: %s\n", e.Annotation)
	}
}

func printStats(db *storage.SQLiteDB) {
	s, err := db.GetStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Total parse events: %s\n", humanize.Comma(int64(s.TotalEvents)))
	fmt.Printf("With diagnostics:   %s\n", humanize.Comma(int64(s.WithErrors)))
	fmt.Println("\nBy rules regime:")
	for rules, count := range s.ByRules {
		fmt.Printf("  %-6s %s\n", rules, humanize.Comma(int64(count)))
	}
}
