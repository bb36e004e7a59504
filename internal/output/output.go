package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/analysis"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

// Formats lists the values accepted by Write.
var Formats = []string{"human", "json", "csv", "markdown"}

const humanPreview = 5

func Write(exp Export, format string, w io.Writer) error {
	switch strings.ToLower(format) {
	case "human", "console":
		writeHuman(exp, w)
		return nil
	case "json":
		out, err := encodeExport(exp)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	case "csv":
		_, err := fmt.Fprintln(w, ToCSV(exp.ScanResult))
		return err
	case "markdown", "md":
		writeMarkdown(exp, w)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

type flatViolation struct {
	ListingTitle string
	model.Violation
}

func bySeverity(r model.ScanResult, level severity.Level) []flatViolation {
	var out []flatViolation
	for _, set := range r.Violations {
		for _, v := range set.Violations {
			if v.Severity == level {
				out = append(out, flatViolation{ListingTitle: set.ListingTitle, Violation: v})
			}
		}
	}
	return out
}

func writeHuman(exp Export, w io.Writer) {
	r := exp.ScanResult
	fmt.Fprintln(w, "SellerGuard scan result")
	fmt.Fprintln(w, "-----------------------")
	fmt.Fprintf(w, "Platform: %s  Listings: %d  Rules: %s\n", r.Platform, r.TotalListings, defaultString(r.RulesVersion, "unknown"))
	fmt.Fprintf(w, "Score:    %d (%s)\n", exp.Summary.Score, exp.Summary.Grade)
	fmt.Fprintln(w)

	for _, level := range severity.All {
		items := bySeverity(r, level)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", severityBadge(level), len(items))
		for i, item := range items {
			if i == humanPreview {
				fmt.Fprintf(w, "  ... and %d more\n", len(items)-humanPreview)
				break
			}
			fmt.Fprintf(w, "  - %s: %s [%s]\n", item.ListingTitle, item.Message, item.RuleID)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d violations in %d of %d listings\n", r.ViolationCount, exp.Summary.ListingsWithIssues, r.TotalListings)
	fmt.Fprintf(w, "  Severity: critical=%d warning=%d info=%d\n", r.CriticalCount, r.WarningCount, r.InfoCount)
	if exp.Summary.MostCommonIssue != "" {
		fmt.Fprintf(w, "  Most common: %s\n", exp.Summary.MostCommonIssue)
	}
	fmt.Fprintf(w, "  %s\n", exp.Summary.Recommendation)
}

func writeMarkdown(exp Export, w io.Writer) {
	r := exp.ScanResult
	fmt.Fprintf(w, "# %s Compliance Report\n\n", titleCase(r.Platform))
	fmt.Fprintf(w, "- Scan: `%s`\n", defaultString(r.ScanID, "n/a"))
	fmt.Fprintf(w, "- Scanned at: %s\n", r.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(w, "- Rules version: %s\n\n", defaultString(r.RulesVersion, "unknown"))

	fmt.Fprintln(w, "## Summary")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Metric | Value |")
	fmt.Fprintln(w, "|---|---|")
	fmt.Fprintf(w, "| Compliance score | %d (%s) |\n", exp.Summary.Score, exp.Summary.Grade)
	fmt.Fprintf(w, "| Listings scanned | %d |\n", r.TotalListings)
	fmt.Fprintf(w, "| Healthy listings | %d |\n", exp.Summary.HealthyListings)
	fmt.Fprintf(w, "| Listings with issues | %d |\n", exp.Summary.ListingsWithIssues)
	fmt.Fprintf(w, "| Critical | %d |\n", r.CriticalCount)
	fmt.Fprintf(w, "| Warnings | %d |\n", r.WarningCount)
	fmt.Fprintf(w, "| Info | %d |\n\n", r.InfoCount)
	fmt.Fprintf(w, "> %s\n\n", exp.Summary.Recommendation)

	if len(exp.Breakdown.ByCategory) > 0 {
		fmt.Fprintln(w, "## By category")
		fmt.Fprintln(w)
		cats := make([]string, 0, len(exp.Breakdown.ByCategory))
		for c := range exp.Breakdown.ByCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Fprintf(w, "- %s: %d\n", c, exp.Breakdown.ByCategory[c])
		}
		fmt.Fprintln(w)
	}

	if len(exp.Breakdown.TopViolations) > 0 {
		fmt.Fprintln(w, "## Top violations")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Rule | Severity | Count |")
		fmt.Fprintln(w, "|---|---|---|")
		for _, rc := range exp.Breakdown.TopViolations {
			fmt.Fprintf(w, "| %s | %s | %d |\n", rc.RuleID, rc.Severity, rc.Count)
		}
		fmt.Fprintln(w)
	}

	if len(r.Violations) == 0 {
		fmt.Fprintln(w, "No violations found.")
		return
	}
	fmt.Fprintln(w, "## Listings")
	for _, set := range r.Violations {
		fmt.Fprintf(w, "\n### %s (%s)\n\n", escapeMarkdown(set.ListingTitle), set.ListingID)
		if set.ListingURL != "" {
			fmt.Fprintf(w, "%s\n\n", set.ListingURL)
		}
		levels := make([]severity.Level, 0, len(set.Violations))
		for _, v := range set.Violations {
			levels = append(levels, v.Severity)
		}
		fmt.Fprintf(w, "Highest severity: %s\n\n", severity.Max(levels...))
		for _, v := range set.Violations {
			fmt.Fprintf(w, "- **%s** `%s` %s\n", strings.ToUpper(string(v.Severity)), v.RuleID, escapeMarkdown(v.Message))
			for _, s := range analysis.FixSuggestions(v) {
				fmt.Fprintf(w, "  - %s\n", s)
			}
			if v.Recommendation != "" {
				fmt.Fprintf(w, "  - %s\n", v.Recommendation)
			}
		}
	}
}

func severityBadge(level severity.Level) string {
	switch level {
	case severity.Critical:
		return "[CRITICAL]"
	case severity.Warning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`").Replace(s)
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
