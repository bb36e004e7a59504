package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// BuildVersion is overridden by release tooling (e.g. goreleaser).
var BuildVersion = "0.1.0-dev"

// clock is replaced in tests so seasonal rules see a fixed month.
var clock = time.Now

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	Verbose bool
	EnvFile string

	log *slog.Logger
}

// Logger returns the command logger, configured once flags are parsed.
func (g *GlobalOptions) Logger() *slog.Logger {
	if g.log == nil {
		return slog.Default()
	}
	return g.log
}

func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:           "sellerguard",
		Short:         "Marketplace listing compliance scanner",
		Long:          "SellerGuard checks Etsy and Amazon listings against marketplace policy rules, scores shop health and tracks it over time.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "Dotenv file with SELLERGUARD_* overrides")

	cmd.AddCommand(
		newScanCommand(opts),
		newReportCommand(opts),
		newCompareCommand(opts),
		newRulesCommand(opts),
		newPolicyCommand(opts),
		newBaselineCommand(opts),
		newWatchCommand(opts),
		newScheduleCommand(opts),
		newVersionCommand(),
	)

	return cmd
}
