package cmd

import (
	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "evalctl",
	Short: "Admin client for the evaluation engine",
	Long:  "evalctl talks to a running evaluation engine over HTTP: trigger monitor sweeps, roll trading days and inspect accounts.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "base URL of the running engine")
}
