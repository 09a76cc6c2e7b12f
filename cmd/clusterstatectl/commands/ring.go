package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "List the partition ring's current node membership",
	RunE:  runRing,
}

type ringResponse struct {
	SelfNode string   `json:"self_node"`
	Nodes    []string `json:"nodes"`
}

func runRing(cmd *cobra.Command, args []string) error {
	var resp ringResponse
	if err := getJSON("/internal/v1/diag/ring", &resp); err != nil {
		return err
	}

	nodes := append([]string(nil), resp.Nodes...)
	sort.Strings(nodes)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tSELF")
	for _, n := range nodes {
		self := ""
		if n == resp.SelfNode {
			self = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\n", n, self)
	}
	return tw.Flush()
}
