// Command clusterstatectl is a diagnostic CLI for a running clusterstated
// node; apart from its reap subcommand, which triggers an expiry sweep, it
// only reads.
package main

import (
	"fmt"
	"os"

	"github.com/dittofs/clusterstate/cmd/clusterstatectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
