package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var nearCacheStatsCmd = &cobra.Command{
	Use:   "nearcache-stats",
	Short: "Show the queried node's near-cache occupancy",
	RunE:  runNearCacheStats,
}

type nearCacheResponse struct {
	Entries    int `json:"entries"`
	TTLSeconds int `json:"ttl_seconds"`
}

func runNearCacheStats(cmd *cobra.Command, args []string) error {
	var resp nearCacheResponse
	if err := getJSON("/internal/v1/diag/nearcache", &resp); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRIES\tTTL_SECONDS")
	fmt.Fprintf(tw, "%d\t%d\n", resp.Entries, resp.TTLSeconds)
	return tw.Flush()
}
