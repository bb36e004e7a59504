package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
)

const defaultPolicyTemplate = `version: "1"
platform: etsy
scan:
  threads: 0
  max_listings: 0
  categories: []
  disabled_rules: []
  severities: []
rules:
  custom_path: ""
output:
  format: human
  reports_dir: reports
  save_report: true
severity:
  fail_on: critical
baseline:
  path: .sellerguard/baseline.json
schedule:
  cron: "0 6 * * *"
`

func newPolicyCommand(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage scan policies",
	}

	cmd.AddCommand(
		newPolicyInitCommand(),
		newPolicyCheckCommand(g),
	)

	return cmd
}

func newPolicyInitCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize policy file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.DefaultPolicyPath
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}

			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "policy already exists: %s\n", path)
				return nil
			}

			if err := os.WriteFile(path, []byte(defaultPolicyTemplate), 0o644); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "policy created: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.DefaultPolicyPath, "Policy output path")
	return cmd
}

func newPolicyCheckCommand(g *GlobalOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate policy syntax and semantics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidatePolicy(path); err != nil {
				return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("policy check failed: %v", err)}
			}
			if _, err := os.Stat(path); err != nil {
				g.Logger().Warn("policy file not found, defaults apply", "path", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "policy valid: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.DefaultPolicyPath, "Policy path")
	return cmd
}
