package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/baseline"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/history"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
)

type baselineOptions struct {
	PolicyPath string
	Path       string
	Input      string
	Platform   string
	ReportsDir string
	Status     string
	Reason     string
	AddedBy    string
	Force      bool
}

func newBaselineCommand(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage accepted violations",
		Long: "Baseline records (listing, rule) pairs that were reviewed and accepted. Scans drop them\n" +
			"from the report and recompute the counts.",
	}

	cmd.AddCommand(
		newBaselineWriteCommand(g, "create", "Create baseline file from a scan report", false),
		newBaselineWriteCommand(g, "update", "Add a scan report's violations to the baseline", true),
	)

	return cmd
}

func newBaselineWriteCommand(g *GlobalOptions, name, short string, merge bool) *cobra.Command {
	opts := &baselineOptions{}

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, opts.PolicyPath)
			if err != nil {
				return err
			}
			if !baseline.ValidStatus(opts.Status) {
				return usageError("invalid --status %q (want %s or %s)", opts.Status, baseline.StatusAccepted, baseline.StatusFalsePositive)
			}
			path := stringOr(opts.Path, policy.Baseline.Path)

			var exp output.Export
			if opts.Input != "" {
				exp, err = history.Read(opts.Input)
			} else {
				exp, err = history.Latest(stringOr(opts.ReportsDir, policy.Output.ReportsDir), opts.Platform)
			}
			if err != nil {
				return usageError("load scan report: %v", err)
			}

			current := baseline.Empty()
			if merge {
				if current, err = baseline.Load(path); err != nil {
					return usageError("%v", err)
				}
			} else if _, err := os.Stat(path); err == nil && !opts.Force {
				return usageError("baseline already exists: %s (use baseline update or --force)", path)
			}

			updated := baseline.UpsertEntries(current, exp.ScanResult, opts.Status, opts.Reason, addedBy(opts.AddedBy), clock())
			if err := baseline.Save(path, updated); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			added := len(updated.Entries) - len(current.Entries)
			g.Logger().Debug("baseline written", "path", path, "scan_id", exp.ScanID)
			fmt.Fprintf(cmd.OutOrStdout(), "baseline %s: %s (%d entries, %d new)\n", name, path, len(updated.Entries), added)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.PolicyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Baseline file path (default from policy)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "Scan report JSON (default: newest saved report)")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "Platform of the newest saved report to use")
	cmd.Flags().StringVar(&opts.ReportsDir, "reports-dir", "", "Directory with saved scan reports")
	cmd.Flags().StringVar(&opts.Status, "status", baseline.StatusAccepted, "Entry status: accepted|false_positive")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "Why these violations are accepted")
	cmd.Flags().StringVar(&opts.AddedBy, "by", "", "Reviewer name (default $USER)")
	if !merge {
		cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing baseline")
	}
	return cmd
}

func addedBy(flag string) string {
	if flag != "" {
		return flag
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "sellerguard"
}
