package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/rules"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and built-in rule catalog versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), BuildVersion)
			for _, p := range listing.Platforms {
				c, err := rules.Builtin(p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s rules %s (%d)\n", p, c.Version(), c.Len())
			}
			return nil
		},
	}
}
