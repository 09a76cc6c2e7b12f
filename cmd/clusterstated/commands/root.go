package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "clusterstated",
	Short: "clusterstated - clustered file-state cache node",
	Long: `clusterstated runs one node of a clustered, partitioned file-state
cache backing a multi-node SMB/NFS file server: it owns a shard of the
partition map, answers remote task dispatches from sibling nodes, and
publishes/consumes cluster-topic invalidation and oplock-break traffic.

Use "clusterstated [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/clusterstate/config.yaml)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error to stderr and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clusterstated version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("clusterstated %s (%s)\n", Version, Commit)
		return nil
	},
}
