package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jswiatek/ekw-sourcer/internal/register"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <department> <sequence>",
		Short: "Computes the control digit for a department code and book number",
		Args:  cobra.ExactArgs(2),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	sequence, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse sequence number: %w", err)
	}
	id, err := register.NewBookID(args[0], sequence)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id.String())
	return nil
}
