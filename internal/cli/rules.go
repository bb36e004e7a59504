package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/rules"
)

func newRulesCommand(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and test the rule catalogs",
	}
	cmd.AddCommand(
		newRulesListCommand(g),
		newRulesTestCommand(g),
	)
	return cmd
}

type ruleSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

func newRulesListCommand(g *GlobalOptions) *cobra.Command {
	var (
		policyPath string
		platform   string
		rulesPath  string
		category   string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules of a platform catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, policyPath)
			if err != nil {
				return err
			}
			p, err := resolvePlatform(platform, policy)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(p, rulesPath, policy)
			if err != nil {
				return err
			}

			list := catalog.Rules()
			if category != "" {
				list = catalog.ByCategory(strings.ToUpper(category))
				if len(list) == 0 {
					return usageError("unknown category %q (have %s)", category, strings.Join(catalog.Categories(), ", "))
				}
			}

			if asJSON {
				out := make([]ruleSummary, 0, len(list))
				for _, r := range list {
					out = append(out, ruleSummary{ID: r.ID, Name: r.Name, Category: r.Category, Severity: string(r.Severity), Description: r.Description})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSEVERITY\tCATEGORY\tNAME")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Severity, r.Category, r.Name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rules, catalog %s %s\n", len(list), p, catalog.Version())
			return nil
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&platform, "platform", "", "Marketplace: etsy|amazon (default from policy)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Custom rules file or directory")
	cmd.Flags().StringVar(&category, "category", "", "Only list rules of this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rules as JSON")
	return cmd
}

func newRulesTestCommand(g *GlobalOptions) *cobra.Command {
	var (
		policyPath string
		platform   string
		rulesPath  string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the test fixtures embedded in the rule catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadSettings(cmd, g, policyPath)
			if err != nil {
				return err
			}
			platforms := listing.Platforms
			if platform != "" {
				p, err := resolvePlatform(platform, policy)
				if err != nil {
					return err
				}
				platforms = []listing.Platform{p}
			}

			pass, fail := 0, 0
			for _, p := range platforms {
				catalog, err := loadCatalog(p, rulesPath, policy)
				if err != nil {
					return err
				}
				sum := rules.RunTests(catalog)
				pass += sum.Pass
				fail += sum.Fail
				for _, f := range sum.Failures {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s %s: %s\n", f.RuleID, f.Case, f.Reason)
				}
				if len(sum.Untested) > 0 {
					g.Logger().Warn("rules without tests", "platform", p, "rules", strings.Join(sum.Untested, ","))
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rule tests: pass=%d fail=%d\n", pass, fail)
			if fail > 0 {
				return &ExitError{Code: ExitUsage, Message: "rule tests failed"}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", config.DefaultPolicyPath, "Policy file path")
	cmd.Flags().StringVar(&platform, "platform", "", "Only test this platform (default: all)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Custom rules file or directory")
	return cmd
}
