package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/history"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
)

func newReportCommand(g *GlobalOptions) *cobra.Command {
	var (
		policyPath string
		platform   string
		reportsDir string
		format     string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "report [scan.json]",
		Short: "Render a saved scan report",
		Long:  "Report renders a saved scan export. Without an argument it loads the newest report in the reports directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, policyPath)
			if err != nil {
				return err
			}
			if err := checkFormat(format); err != nil {
				return err
			}

			var exp output.Export
			if len(args) == 1 {
				exp, err = history.Read(args[0])
			} else {
				dir := stringOr(reportsDir, policy.Output.ReportsDir)
				exp, err = history.Latest(dir, platform)
				if errors.Is(err, history.ErrNoHistory) {
					return usageError("no scan reports found in %s; run sellerguard scan first", dir)
				}
			}
			if err != nil {
				return usageError("load report: %v", err)
			}
			g.Logger().Debug("report loaded", "scan_id", exp.ScanID, "platform", exp.Platform)

			if err := withOutput(cmd, outputPath, func(w io.Writer) error {
				return output.Write(exp, format, w)
			}); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			if strings.EqualFold(format, "human") && outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "\nTip: Use --format=markdown or --format=json for detailed output")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&platform, "platform", "", "Only consider reports of this platform")
	cmd.Flags().StringVar(&reportsDir, "reports-dir", "", "Directory with saved scan reports")
	cmd.Flags().StringVar(&format, "format", "human", "Output format: human|json|csv|markdown")
	cmd.Flags().StringVar(&outputPath, "output", "", "Output file path")
	return cmd
}
