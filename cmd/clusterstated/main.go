// Command clusterstated runs one node of the clustered file-state cache.
package main

import (
	"fmt"
	"os"

	"github.com/dittofs/clusterstate/cmd/clusterstated/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
