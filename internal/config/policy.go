package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

// DefaultPolicyPath is where policy init writes and the CLI reads.
const DefaultPolicyPath = ".sellerguard/policy.yaml"

type Policy struct {
	Version  string         `yaml:"version"`
	Platform string         `yaml:"platform"`
	Scan     ScanPolicy     `yaml:"scan"`
	Rules    RulesPolicy    `yaml:"rules"`
	Output   OutputPolicy   `yaml:"output"`
	Severity SeverityPolicy `yaml:"severity"`
	Baseline BaselinePolicy `yaml:"baseline"`
	Schedule SchedulePolicy `yaml:"schedule"`
}

type ScanPolicy struct {
	Threads       int      `yaml:"threads"`
	MaxListings   int      `yaml:"max_listings"`
	Categories    []string `yaml:"categories"`
	DisabledRules []string `yaml:"disabled_rules"`
	Severities    []string `yaml:"severities"`
}

type RulesPolicy struct {
	CustomPath string `yaml:"custom_path"`
}

type OutputPolicy struct {
	Format     string `yaml:"format"`
	ReportsDir string `yaml:"reports_dir"`
	SaveReport bool   `yaml:"save_report"`
}

type SeverityPolicy struct {
	FailOn string `yaml:"fail_on"`
}

type BaselinePolicy struct {
	Path string `yaml:"path"`
}

type SchedulePolicy struct {
	Cron string `yaml:"cron"`
}

func DefaultPolicy() Policy {
	return Policy{
		Version:  "1",
		Platform: string(listing.Etsy),
		Output: OutputPolicy{
			Format:     "human",
			ReportsDir: "reports",
			SaveReport: true,
		},
		Severity: SeverityPolicy{FailOn: string(severity.Critical)},
		Baseline: BaselinePolicy{Path: ".sellerguard/baseline.json"},
		Schedule: SchedulePolicy{Cron: "0 6 * * *"},
	}
}

func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return Policy{}, err
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	defaults := DefaultPolicy()
	if policy.Version == "" {
		policy.Version = defaults.Version
	}
	if policy.Platform == "" {
		policy.Platform = defaults.Platform
	}
	if policy.Output.Format == "" {
		policy.Output.Format = defaults.Output.Format
	}
	if policy.Output.ReportsDir == "" {
		policy.Output.ReportsDir = defaults.Output.ReportsDir
	}
	if policy.Severity.FailOn == "" {
		policy.Severity.FailOn = defaults.Severity.FailOn
	}
	if policy.Baseline.Path == "" {
		policy.Baseline.Path = defaults.Baseline.Path
	}
	if policy.Schedule.Cron == "" {
		policy.Schedule.Cron = defaults.Schedule.Cron
	}

	return policy, nil
}

func ValidatePolicy(path string) error {
	policy, err := LoadPolicy(path)
	if err != nil {
		return err
	}
	return policy.Validate()
}

// Validate checks the semantic constraints YAML decoding cannot express.
func (p Policy) Validate() error {
	if p.Version != "1" {
		return fmt.Errorf("unsupported policy version: %s", p.Version)
	}
	if _, err := listing.ParsePlatform(p.Platform); err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	if p.Severity.FailOn != "none" {
		if _, err := severity.Normalize(p.Severity.FailOn); err != nil {
			return fmt.Errorf("severity.fail_on: %w", err)
		}
	}
	for _, s := range p.Scan.Severities {
		if _, err := severity.Normalize(s); err != nil {
			return fmt.Errorf("scan.severities: %w", err)
		}
	}
	for _, pattern := range p.Scan.DisabledRules {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("scan.disabled_rules: invalid pattern %q", pattern)
		}
	}
	if p.Scan.Threads < 0 || p.Scan.MaxListings < 0 {
		return fmt.Errorf("scan.threads and scan.max_listings must not be negative")
	}
	switch p.Output.Format {
	case "human", "json", "csv", "markdown":
	default:
		return fmt.Errorf("output.format: unsupported format %q", p.Output.Format)
	}
	if _, err := cron.ParseStandard(p.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}
	return nil
}

// SeverityLevels parses scan.severities.
func (p Policy) SeverityLevels() ([]severity.Level, error) {
	var out []severity.Level
	for _, s := range p.Scan.Severities {
		l, err := severity.Normalize(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
