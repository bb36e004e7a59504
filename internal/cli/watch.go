package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/history"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/watch"
)

func newWatchCommand(g *GlobalOptions) *cobra.Command {
	opts := &scanOptions{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <listings...>",
		Short: "Rescan listing exports whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, opts.PolicyPath)
			if err != nil {
				return err
			}
			opts.Inputs = args
			dir := stringOr(opts.ReportsDir, policy.Output.ReportsDir)
			logger := g.Logger()

			rescan := func(ctx context.Context) {
				res, err := executeScan(ctx, g, policy, opts.scanRequest)
				if err != nil {
					logger.Error("rescan failed", "err", err)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeScan(res.Export))
				if policy.Output.SaveReport && !opts.NoSave {
					if path, err := history.Save(dir, res.Export); err != nil {
						logger.Error("save report failed", "err", err)
					} else {
						logger.Debug("report saved", "path", path)
					}
				}
			}

			rescan(cmd.Context())
			logger.Info("watching listing files", "paths", args, "debounce", debounce)
			return watch.Run(cmd.Context(), args, watch.Options{
				Debounce: debounce,
				Logger:   logger,
				Ignore:   []string{dir},
			}, rescan)
		},
	}

	addScanFlags(cmd, opts)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a rescan")
	return cmd
}

// addScanFlags registers the scan selection flags shared by watch and
// schedule.
func addScanFlags(cmd *cobra.Command, opts *scanOptions) {
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "Marketplace: etsy|amazon (default from policy)")
	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "Custom rules file or directory")
	cmd.Flags().StringVar(&opts.PolicyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&opts.BaselinePath, "baseline", "", "Baseline file path (default from policy)")
	cmd.Flags().StringVar(&opts.Severities, "severity", "", "Comma separated severities to report")
	cmd.Flags().StringSliceVar(&opts.Disabled, "disable", nil, "Skip rules matching these ID patterns")
	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "Parallel scanning workers (0=auto)")
	cmd.Flags().StringVar(&opts.ReportsDir, "reports-dir", "", "Directory for saved scan reports")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "Do not save reports")
}
