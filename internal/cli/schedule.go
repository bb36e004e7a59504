package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/analysis"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/history"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/schedule"
)

func newScheduleCommand(g *GlobalOptions) *cobra.Command {
	opts := &scanOptions{}
	var (
		spec   string
		noWait bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <listings...>",
		Short: "Rescan listing exports on a cron schedule",
		Long: "Schedule runs a scan immediately and then on every tick of a cron spec (five fields or\n" +
			"descriptors such as @daily or \"@every 6h\"). Each run is saved and compared with the previous one.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, opts.PolicyPath)
			if err != nil {
				return err
			}
			opts.Inputs = args
			dir := stringOr(opts.ReportsDir, policy.Output.ReportsDir)
			logger := g.Logger()

			job := func(ctx context.Context) error {
				res, err := executeScan(ctx, g, policy, opts.scanRequest)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeScan(res.Export))
				if opts.NoSave || !policy.Output.SaveReport {
					return nil
				}
				prev, prevErr := history.Latest(dir, res.Export.Platform)
				if _, err := history.Save(dir, res.Export); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
				if prevErr != nil {
					return nil
				}
				cmp, err := analysis.Compare(prev.ScanResult, res.Export.ScanResult)
				if err != nil {
					return err
				}
				logger.Info("score change since last run", "previous", cmp.PreviousScore, "current", cmp.CurrentScore,
					"change", cmp.ScoreChange, "critical_change", cmp.CriticalChange)
				return nil
			}

			s, err := schedule.New(stringOr(spec, policy.Schedule.Cron), job, logger)
			if err != nil {
				return usageError("%v", err)
			}
			if noWait {
				return job(cmd.Context())
			}
			if err := s.Start(cmd.Context(), true); err != nil {
				return usageError("%v", err)
			}
			<-cmd.Context().Done()
			s.Stop()
			return nil
		},
	}

	addScanFlags(cmd, opts)
	cmd.Flags().StringVar(&spec, "cron", "", "Cron spec (default from policy schedule.cron)")
	cmd.Flags().BoolVar(&noWait, "once", false, "Run a single scan and exit")
	return cmd
}
