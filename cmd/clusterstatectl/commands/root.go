// Package commands implements clusterstatectl's subcommands against a
// running clusterstated node: read-only diagnostics plus a manual reap
// trigger.
package commands

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"

	serverAddr string
	httpClient = &http.Client{Timeout: 5 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:   "clusterstatectl",
	Short: "clusterstatectl - inspect a running clusterstate node",
	Long: `clusterstatectl queries a running clusterstated node's diagnostic
endpoints: partition ownership (ring) and near-cache occupancy
(nearcache-stats), both read-only, and can trigger an immediate expiry
sweep on that node (reap), the one subcommand that changes state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:7420", "base URL of the node to query")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ringCmd)
	rootCmd.AddCommand(nearCacheStatsCmd)
	rootCmd.AddCommand(reapCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clusterstatectl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("clusterstatectl %s\n", Version)
		return nil
	},
}
