package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "field-crm",
	Short: "Field service CRM: job dispatch and lifecycle API",
	Long: `field-crm runs the dispatch and job lifecycle API for field technicians.
Configuration comes from the environment (.env is loaded when present) and,
optionally, the YAML file named by CONFIG_FILE.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
