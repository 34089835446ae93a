package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fundedsim/engine/src/engine"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Trigger one resting-order monitor sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(serverURL+"/monitor/sweep", "application/json", nil)
		if err != nil {
			return fmt.Errorf("sweep request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("sweep request failed: %s", resp.Status)
		}

		var result engine.SweepResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode sweep result: %w", err)
		}

		fmt.Printf("checked: %d\ntriggered: %d\nfilled: %d\n", result.Checked, result.Triggered, result.Filled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
