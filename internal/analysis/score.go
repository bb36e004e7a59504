// Package analysis derives scores, breakdowns and comparisons from scan
// results. Every function is pure and safe for concurrent use.
package analysis

import (
	"fmt"
	"math"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
)

// RuleOrder reports the declaration position of a rule. *rules.Catalog
// satisfies it.
type RuleOrder interface {
	Index(ruleID string) int
}

// ComplianceScoreBreakdown summarizes the health of one scan.
type ComplianceScoreBreakdown struct {
	Score              int    `json:"score"`
	Grade              string `json:"grade"`
	HealthyListings    int    `json:"healthyListings"`
	ListingsWithIssues int    `json:"listingsWithIssues"`
	MostCommonIssue    string `json:"mostCommonIssue,omitempty"`
	Recommendation     string `json:"recommendation"`
}

// Score is the 0-100 compliance score: the healthy listing percentage minus
// 10 points per average critical and 5 per average warning violation.
func Score(r model.ScanResult) int {
	if r.TotalListings <= 0 {
		return 100
	}
	total := float64(r.TotalListings)
	healthy := total - float64(len(r.Violations))
	score := healthy / total * 100
	score -= float64(r.CriticalCount) / total * 10
	score -= float64(r.WarningCount) / total * 5
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Recommendation picks the next action by the most severe outstanding level.
func Recommendation(r model.ScanResult) string {
	switch {
	case r.CriticalCount > 0:
		return fmt.Sprintf("Address %d critical violation(s) immediately to avoid account suspension.", r.CriticalCount)
	case r.WarningCount > 0:
		return fmt.Sprintf("Fix %d warning(s) to improve listing quality and visibility.", r.WarningCount)
	case r.InfoCount > 0:
		return fmt.Sprintf("Review %d optimization suggestion(s) to maximize performance.", r.InfoCount)
	default:
		return "Fully compliant! Continue monitoring for any new violations."
	}
}

// Summarize computes the score breakdown. Ties for the most common rule go
// to the rule declared first in order; a nil order falls back to the first
// rule encountered in the result.
func Summarize(r model.ScanResult, order RuleOrder) ComplianceScoreBreakdown {
	score := Score(r)
	healthy := r.TotalListings - len(r.Violations)
	if healthy < 0 {
		healthy = 0
	}
	return ComplianceScoreBreakdown{
		Score:              score,
		Grade:              Grade(score),
		HealthyListings:    healthy,
		ListingsWithIssues: len(r.Violations),
		MostCommonIssue:    mostCommonRule(r, order),
		Recommendation:     Recommendation(r),
	}
}

func mostCommonRule(r model.ScanResult, order RuleOrder) string {
	counts := ruleCounts(r)
	if len(counts) == 0 {
		return ""
	}
	best := counts[0]
	for _, rc := range counts[1:] {
		if rc.Count > best.Count || (rc.Count == best.Count && order != nil && declaredBefore(order, rc.RuleID, best.RuleID)) {
			best = rc
		}
	}
	return best.RuleID
}

func declaredBefore(order RuleOrder, a, b string) bool {
	ia, ib := order.Index(a), order.Index(b)
	if ia < 0 {
		return false
	}
	return ib < 0 || ia < ib
}
