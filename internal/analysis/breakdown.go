package analysis

import (
	"sort"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/rules"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

const topViolationLimit = 10

type RuleCount struct {
	RuleID   string         `json:"ruleId"`
	Count    int            `json:"count"`
	Severity severity.Level `json:"severity"`
}

type ViolationBreakdown struct {
	ByCategory    map[string]int         `json:"byCategory"`
	BySeverity    map[severity.Level]int `json:"bySeverity"`
	TopViolations []RuleCount            `json:"topViolations"`
}

// Breakdown groups violations by the category segment of their rule ID and
// by severity, and lists the ten most frequent rules. Equal counts keep the
// order in which rules were first seen.
func Breakdown(r model.ScanResult) ViolationBreakdown {
	b := ViolationBreakdown{
		ByCategory: map[string]int{},
		BySeverity: map[severity.Level]int{
			severity.Critical: r.CriticalCount,
			severity.Warning:  r.WarningCount,
			severity.Info:     r.InfoCount,
		},
	}
	for _, set := range r.Violations {
		for _, v := range set.Violations {
			b.ByCategory[rules.CategoryOf(v.RuleID)]++
		}
	}

	top := ruleCounts(r)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > topViolationLimit {
		top = top[:topViolationLimit]
	}
	b.TopViolations = top
	return b
}

// ruleCounts tallies violations per rule in first-encountered order.
func ruleCounts(r model.ScanResult) []RuleCount {
	pos := map[string]int{}
	out := []RuleCount{}
	for _, set := range r.Violations {
		for _, v := range set.Violations {
			i, ok := pos[v.RuleID]
			if !ok {
				i = len(out)
				pos[v.RuleID] = i
				out = append(out, RuleCount{RuleID: v.RuleID, Severity: v.Severity})
			}
			out[i].Count++
		}
	}
	return out
}
