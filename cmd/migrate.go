package cmd

import (
	"fmt"

	"github.com/globaltrotters/apiserver/config"
	"github.com/globaltrotters/apiserver/internal/db"
	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations (all of them unless --steps is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.Migrate(config.LoadConfig().Database, migrateSteps)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig().Database
		if migrateSteps > 0 {
			return db.Migrate(cfg, -migrateSteps)
		}
		return db.Reset(cfg)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := db.Version(config.LoadConfig().Database)
		if err != nil {
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	migrateCmd.PersistentFlags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply or roll back")
}
