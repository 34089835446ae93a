package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account <id>",
	Short: "Show an account with its open positions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(serverURL + "/accounts/" + args[0])
		if err != nil {
			return fmt.Errorf("account request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("account request failed: %s: %s", resp.Status, body)
		}

		fmt.Println(string(body))
		return nil
	},
}

var rollDayCmd = &cobra.Command{
	Use:   "roll-day <account-id>",
	Short: "Run end-of-day processing for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(serverURL+"/accounts/"+args[0]+"/roll-day", "application/json", nil)
		if err != nil {
			return fmt.Errorf("roll-day request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("roll-day request failed: %s: %s", resp.Status, body)
		}

		fmt.Println(string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(rollDayCmd)
}
