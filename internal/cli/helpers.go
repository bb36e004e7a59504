package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/baseline"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/rules"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/scan"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

// loadSettings resolves the policy file (flag, then SELLERGUARD_POLICY),
// loads it and applies environment overrides.
func loadSettings(cmd *cobra.Command, g *GlobalOptions, policyPath string) (config.Policy, error) {
	env, err := config.LoadEnv(g.EnvFile)
	if err != nil {
		return config.Policy{}, usageError("%v", err)
	}
	if f := cmd.Flags().Lookup("policy"); f == nil || !f.Changed {
		policyPath = env.PolicyPathOr(policyPath)
	}
	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		return config.Policy{}, usageError("load policy %s: %v", policyPath, err)
	}
	env.Apply(&policy)
	if err := policy.Validate(); err != nil {
		return config.Policy{}, usageError("policy %s: %v", policyPath, err)
	}
	g.Logger().Debug("policy loaded", "path", policyPath, "platform", policy.Platform)
	return policy, nil
}

func resolvePlatform(flag string, policy config.Policy) (listing.Platform, error) {
	name := flag
	if name == "" {
		name = policy.Platform
	}
	p, err := listing.ParsePlatform(name)
	if err != nil {
		return "", usageError("%v", err)
	}
	return p, nil
}

func loadCatalog(platform listing.Platform, flagPath string, policy config.Policy) (*rules.Catalog, error) {
	path := flagPath
	if path == "" {
		path = policy.Rules.CustomPath
	}
	c, err := rules.Load(platform, path)
	if err != nil {
		return nil, usageError("load rules: %v", err)
	}
	return c, nil
}

// scanRequest holds the scan flags; zero values fall back to the policy.
type scanRequest struct {
	Inputs       []string
	Platform     string
	RulesPath    string
	BaselinePath string
	NoBaseline   bool
	Categories   []string
	Disabled     []string
	Severities   string
	MaxListings  int
	Threads      int
}

type scanOutcome struct {
	Export     output.Export
	Catalog    *rules.Catalog
	Suppressed int
}

func executeScan(ctx context.Context, g *GlobalOptions, policy config.Policy, req scanRequest) (scanOutcome, error) {
	logger := g.Logger()
	platform, err := resolvePlatform(req.Platform, policy)
	if err != nil {
		return scanOutcome{}, err
	}
	files, err := scan.ResolveInputs(req.Inputs)
	if err != nil {
		return scanOutcome{}, usageError("%v", err)
	}
	listings, err := scan.LoadListings(platform, files)
	if err != nil {
		return scanOutcome{}, usageError("load listings: %v", err)
	}
	catalog, err := loadCatalog(platform, req.RulesPath, policy)
	if err != nil {
		return scanOutcome{}, err
	}

	levels, err := policy.SeverityLevels()
	if err != nil {
		return scanOutcome{}, usageError("%v", err)
	}
	if req.Severities != "" {
		if levels, err = severity.ParseList(req.Severities); err != nil {
			return scanOutcome{}, usageError("%v", err)
		}
	}
	opts := scan.Options{
		MaxListings:   firstPositive(req.MaxListings, policy.Scan.MaxListings),
		Categories:    policy.Scan.Categories,
		DisabledRules: append(append([]string(nil), policy.Scan.DisabledRules...), req.Disabled...),
		Severities:    levels,
		Threads:       firstPositive(req.Threads, policy.Scan.Threads),
		Now:           clock(),
	}
	if len(req.Categories) > 0 {
		opts.Categories = req.Categories
	}

	logger.Debug("scan starting", "platform", platform, "files", len(files), "listings", len(listings), "rules", catalog.Len())
	s := scan.New(catalog, rules.EnvAt(opts.Now))
	result, err := s.Run(ctx, listings, opts)
	if err != nil {
		if ctx.Err() != nil {
			return scanOutcome{}, err
		}
		return scanOutcome{}, usageError("scan: %v", err)
	}

	suppressed := 0
	if !req.NoBaseline {
		path := req.BaselinePath
		if path == "" {
			path = policy.Baseline.Path
		}
		b, err := baseline.Load(path)
		if err != nil {
			return scanOutcome{}, usageError("load baseline: %v", err)
		}
		before := result.ViolationCount
		result = baseline.Apply(result, b)
		suppressed = before - result.ViolationCount
	}

	exp := output.NewExport(result, catalog, opts.Now)
	logger.Debug("scan complete", "scan_id", result.ScanID, "violations", result.ViolationCount,
		"suppressed", suppressed, "score", exp.Summary.Score)
	return scanOutcome{Export: exp, Catalog: catalog, Suppressed: suppressed}, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// thresholdHits counts violations at or above threshold. "none" disables
// the check.
func thresholdHits(r model.ScanResult, threshold string) (int, error) {
	if threshold == "" || strings.EqualFold(threshold, "none") {
		return 0, nil
	}
	level, err := severity.Normalize(threshold)
	if err != nil {
		return 0, usageError("--fail-on: %v", err)
	}
	hits := 0
	for _, l := range severity.All {
		if !severity.MeetsOrAbove(l, level) {
			continue
		}
		switch l {
		case severity.Critical:
			hits += r.CriticalCount
		case severity.Warning:
			hits += r.WarningCount
		case severity.Info:
			hits += r.InfoCount
		}
	}
	return hits, nil
}

// withOutput runs write against path, or stdout when path is empty.
func withOutput(cmd *cobra.Command, path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func checkFormat(format string) error {
	for _, f := range output.Formats {
		if strings.EqualFold(format, f) {
			return nil
		}
	}
	return usageError("unsupported output format %q (want one of %s)", format, strings.Join(output.Formats, ", "))
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func describeScan(exp output.Export) string {
	return fmt.Sprintf("%s scan %s: %d listings, %d violations, score %d (%s)",
		exp.Platform, exp.ScanID, exp.TotalListings, exp.ViolationCount, exp.Summary.Score, exp.Summary.Grade)
}
