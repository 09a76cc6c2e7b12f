package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Trigger an immediate expiry sweep on the queried node",
	RunE:  runReap,
}

func runReap(cmd *cobra.Command, args []string) error {
	resp, err := httpClient.Post(serverAddr+"/internal/v1/diag/reap", "application/json", nil)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", serverAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("reap request returned status %d", resp.StatusCode)
	}
	cmd.Println("reap triggered")
	return nil
}
