package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/history"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
)

type scanOptions struct {
	scanRequest
	PolicyPath string
	Format     string
	OutputPath string
	FailOn     string
	ReportsDir string
	NoSave     bool
}

func newScanCommand(g *GlobalOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <listings...>",
		Short: "Scan listing exports for policy violations",
		Long: "Scan reads marketplace listing exports (JSON files, directories or globs such as exports/**/*.json)\n" +
			"and checks every listing against the platform rule catalog.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, opts.PolicyPath)
			if err != nil {
				return err
			}
			format := stringOr(opts.Format, policy.Output.Format)
			if err := checkFormat(format); err != nil {
				return err
			}
			failOn := stringOr(opts.FailOn, policy.Severity.FailOn)
			if _, err := thresholdHits(model.ScanResult{}, failOn); err != nil {
				return err
			}

			opts.Inputs = args
			res, err := executeScan(cmd.Context(), g, policy, opts.scanRequest)
			if err != nil {
				return err
			}
			exp := res.Export

			if err := withOutput(cmd, opts.OutputPath, func(w io.Writer) error {
				return output.Write(exp, format, w)
			}); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			if res.Suppressed > 0 {
				g.Logger().Info("baseline suppressed violations", "count", res.Suppressed)
			}

			if policy.Output.SaveReport && !opts.NoSave {
				dir := stringOr(opts.ReportsDir, policy.Output.ReportsDir)
				path, err := history.Save(dir, exp)
				if err != nil {
					return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("save report: %v", err)}
				}
				g.Logger().Info("report saved", "path", path)
			}

			hits, _ := thresholdHits(exp.ScanResult, failOn)
			if hits > 0 {
				return &ExitError{
					Code:    ExitThreshold,
					Message: fmt.Sprintf("%d violation(s) at or above %s (score %d)", hits, failOn, exp.Summary.Score),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Platform, "platform", "", "Marketplace: etsy|amazon (default from policy)")
	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "Custom rules file or directory layered on the built-in catalog")
	cmd.Flags().StringVar(&opts.PolicyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&opts.BaselinePath, "baseline", "", "Baseline file path (default from policy)")
	cmd.Flags().BoolVar(&opts.NoBaseline, "no-baseline", false, "Report violations accepted in the baseline")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Output format: human|json|csv|markdown")
	cmd.Flags().StringVar(&opts.OutputPath, "output", "", "Output file path")
	cmd.Flags().StringVar(&opts.Severities, "severity", "", "Comma separated severities to report, e.g. critical,warning")
	cmd.Flags().StringSliceVar(&opts.Categories, "category", nil, "Only run rules of these categories")
	cmd.Flags().StringSliceVar(&opts.Disabled, "disable", nil, "Skip rules matching these ID patterns, e.g. ETSY-SS-*")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "", "Exit 1 when violations >= severity (none disables)")
	cmd.Flags().IntVar(&opts.MaxListings, "max-listings", 0, "Scan at most this many listings (0=all)")
	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "Parallel scanning workers (0=auto)")
	cmd.Flags().StringVar(&opts.ReportsDir, "reports-dir", "", "Directory for saved scan reports")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "Do not save the report to the reports directory")

	return cmd
}
