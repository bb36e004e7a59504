package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/analysis"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/history"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
)

func newCompareCommand(g *GlobalOptions) *cobra.Command {
	var (
		policyPath string
		platform   string
		reportsDir string
		latest     bool
		across     bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "compare [previous.json current.json]",
		Short: "Compare two scans of the same platform, or an Etsy scan with an Amazon scan",
		Long: "Compare reports the score and violation deltas between two saved scans.\n" +
			"With --latest the two newest reports of --platform are used. With --across the\n" +
			"arguments are an Etsy report and an Amazon report and a combined view is printed.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, policyPath)
			if err != nil {
				return err
			}
			if format != "human" && format != "json" {
				return usageError("unsupported compare format %q (want human or json)", format)
			}

			var first, second output.Export
			switch {
			case len(args) == 2:
				if first, err = history.Read(args[0]); err != nil {
					return usageError("%v", err)
				}
				if second, err = history.Read(args[1]); err != nil {
					return usageError("%v", err)
				}
			case latest && !across:
				p, err := resolvePlatform(platform, policy)
				if err != nil {
					return err
				}
				dir := stringOr(reportsDir, policy.Output.ReportsDir)
				if second, err = history.Latest(dir, string(p)); err != nil {
					return usageError("%v", err)
				}
				if first, err = history.Previous(dir, string(p)); err != nil {
					return usageError("%v", err)
				}
			case latest && across:
				dir := stringOr(reportsDir, policy.Output.ReportsDir)
				if first, err = history.Latest(dir, string(listing.Etsy)); err != nil {
					return usageError("%v", err)
				}
				if second, err = history.Latest(dir, string(listing.Amazon)); err != nil {
					return usageError("%v", err)
				}
			default:
				return usageError("compare needs two report files or --latest")
			}

			if across {
				view, err := analysis.CompareAcross(first.ScanResult, second.ScanResult)
				if err != nil {
					return usageError("%v", err)
				}
				return writeComparison(cmd.OutOrStdout(), format, view, func(w io.Writer) {
					pc := view.PlatformComparison
					fmt.Fprintf(w, "Listings:   %d\n", view.TotalListings)
					fmt.Fprintf(w, "Violations: %d\n", view.TotalViolations)
					fmt.Fprintf(w, "Average score: %d\n", view.AvgComplianceScore)
					fmt.Fprintf(w, "Etsy score: %d  Amazon score: %d\n", pc.EtsyScore, pc.AmazonScore)
					fmt.Fprintf(w, "Better platform: %s\n", pc.BetterPlatform)
				})
			}

			cmp, err := analysis.Compare(first.ScanResult, second.ScanResult)
			if err != nil {
				return usageError("%v", err)
			}
			return writeComparison(cmd.OutOrStdout(), format, cmp, func(w io.Writer) {
				fmt.Fprintf(w, "Score: %d -> %d (%+d)\n", cmp.PreviousScore, cmp.CurrentScore, cmp.ScoreChange)
				fmt.Fprintf(w, "Violations: %+d  Critical: %+d  Warnings: %+d\n", cmp.ViolationChange, cmp.CriticalChange, cmp.WarningChange)
				verdict := "no improvement"
				if cmp.Improved {
					verdict = "improved"
				}
				fmt.Fprintf(w, "Result: %s\n", verdict)
			})
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform for --latest (default from policy)")
	cmd.Flags().StringVar(&reportsDir, "reports-dir", "", "Directory with saved scan reports")
	cmd.Flags().BoolVar(&latest, "latest", false, "Use the newest saved reports")
	cmd.Flags().BoolVar(&across, "across", false, "Combine an Etsy and an Amazon report")
	cmd.Flags().StringVar(&format, "format", "human", "Output format: human|json")
	return cmd
}

func writeComparison(w io.Writer, format string, v any, human func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}
