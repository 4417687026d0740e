// Package cmd defines and implements the CLI commands for the ekw-sourcer
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ekw-sourcer",
		Short: "Sources land-and-mortgage-register metadata from the EKW portal.",
		Long: `ekw-sourcer walks the electronic land-and-mortgage-register portal
department by department, derives control digits for candidate book numbers,
fetches each book's metadata through a headless browser and persists the
results to Postgres.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus SOURCER_* env)")

	cmd.AddCommand(newSourceCmd())
	cmd.AddCommand(newDepartmentsCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// Execute is the main entry point. Per-record failures are recorded, not
// raised: the process exits non-zero only on unrecoverable startup errors.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
