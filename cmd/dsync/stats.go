package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mutagen-io/dsync/internal/syncer"
)

// printStats renders a per-destination byte-accounting table, grounded on the
// teacher's sync list/monitor commands' use of go-humanize for byte counts.
func printStats(ledger *syncer.SyncStatsLedger) {
	snapshot := ledger.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	paths := make([]string, 0, len(snapshot))
	for path := range snapshot {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var totalTransferred, totalReused uint64
	for _, path := range paths {
		stats := snapshot[path]
		totalTransferred += stats.BytesTransferred
		totalReused += stats.BytesReused

		fmt.Printf("%s\n", path)
		fmt.Printf(
			"\t%s transferred, %s reused (%s total)\n",
			color.YellowString(humanize.Bytes(stats.BytesTransferred)),
			color.GreenString(humanize.Bytes(stats.BytesReused)),
			humanize.Bytes(stats.TotalBytes),
		)
	}

	fmt.Println("Total:", humanize.Bytes(totalTransferred), "transferred,", humanize.Bytes(totalReused), "reused")
}
