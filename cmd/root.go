package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "globaltrotters",
	Short: "GlobalTrotters trip planning backend",
	Long: `GlobalTrotters trip planning backend.

	globaltrotters server          serve the HTTP API
	globaltrotters worker          send notification emails for domain events
	globaltrotters migrate up|down apply or roll back database migrations
`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
