package analysis

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

func v(ruleID string, level severity.Level) model.Violation {
	return model.Violation{RuleID: ruleID, Severity: level, Message: ruleID + " fired"}
}

func set(id string, vs ...model.Violation) model.ListingViolationSet {
	return model.NewListingSet(id, "Listing "+id, "", vs)
}

func result(platform string, total int, sets ...model.ListingViolationSet) model.ScanResult {
	r := model.ScanResult{Platform: platform, TotalListings: total, Violations: sets}
	r.Recount()
	return r
}

// flagged builds a result with n listings of which the first k carry one
// info violation each.
func flagged(platform string, n, k int) model.ScanResult {
	var sets []model.ListingViolationSet
	for i := 0; i < k; i++ {
		sets = append(sets, set(fmt.Sprint(i), v("ETSY-SS-001", severity.Info)))
	}
	return result(platform, n, sets...)
}

type fixedOrder map[string]int

func (o fixedOrder) Index(id string) int {
	if i, ok := o[id]; ok {
		return i
	}
	return -1
}

func TestScore(t *testing.T) {
	cases := []struct {
		name string
		r    model.ScanResult
		want int
	}{
		{"empty scan", result("etsy", 0), 100},
		{"all healthy", result("etsy", 5), 100},
		{"info only", flagged("etsy", 10, 3), 70},
		{
			"mixed",
			result("etsy", 4,
				set("a", v("ETSY-PF-001", severity.Warning), v("ETSY-PF-002", severity.Info)),
				set("b", v("ETSY-TD-006", severity.Critical), v("ETSY-TD-001", severity.Warning), v("ETSY-TD-003", severity.Warning),
					v("ETSY-TD-005", severity.Warning), v("ETSY-TD-007", severity.Warning))),
			41,
		},
		{
			"clamped at zero",
			result("etsy", 1, set("a", v("ETSY-PI-001", severity.Critical), v("ETSY-PI-002", severity.Critical))),
			0,
		},
	}
	for _, tc := range cases {
		got := Score(tc.r)
		if got != tc.want {
			t.Fatalf("%s: score %d, want %d", tc.name, got, tc.want)
		}
		if got < 0 || got > 100 {
			t.Fatalf("%s: score %d out of bounds", tc.name, got)
		}
	}
}

func TestGrade(t *testing.T) {
	cases := map[int]string{100: "A", 90: "A", 89: "B", 80: "B", 79: "C", 70: "C", 69: "D", 60: "D", 59: "F", 0: "F"}
	for score, want := range cases {
		if got := Grade(score); got != want {
			t.Fatalf("Grade(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestRecommendationPriority(t *testing.T) {
	cases := []struct {
		r    model.ScanResult
		want string
	}{
		{
			result("etsy", 2, set("a", v("ETSY-PI-001", severity.Critical), v("ETSY-TD-001", severity.Warning))),
			"Address 1 critical violation(s) immediately to avoid account suspension.",
		},
		{
			result("etsy", 2, set("a", v("ETSY-TD-001", severity.Warning), v("ETSY-SS-001", severity.Info))),
			"Fix 1 warning(s) to improve listing quality and visibility.",
		},
		{flagged("etsy", 10, 2), "Review 2 optimization suggestion(s) to maximize performance."},
		{result("etsy", 3), "Fully compliant! Continue monitoring for any new violations."},
	}
	for _, tc := range cases {
		if got := Recommendation(tc.r); got != tc.want {
			t.Fatalf("got %q, want %q", got, tc.want)
		}
	}
}

func TestSummarizeBreaksTiesByDeclarationOrder(t *testing.T) {
	r := result("etsy", 3,
		set("a", v("ETSY-TD-001", severity.Warning), v("ETSY-PI-001", severity.Critical)),
		set("b", v("ETSY-TD-001", severity.Warning), v("ETSY-PI-001", severity.Critical)),
	)
	order := fixedOrder{"ETSY-PI-001": 0, "ETSY-TD-001": 15}

	s := Summarize(r, order)
	if s.MostCommonIssue != "ETSY-PI-001" {
		t.Fatalf("expected declaration order tie-break, got %s", s.MostCommonIssue)
	}
	if s.HealthyListings != 1 || s.ListingsWithIssues != 2 {
		t.Fatalf("unexpected listing split %d/%d", s.HealthyListings, s.ListingsWithIssues)
	}
	if s.Grade != Grade(s.Score) {
		t.Fatalf("grade %s does not match score %d", s.Grade, s.Score)
	}

	if got := Summarize(r, nil).MostCommonIssue; got != "ETSY-TD-001" {
		t.Fatalf("without order expected first encountered rule, got %s", got)
	}
	if got := Summarize(result("etsy", 2), order).MostCommonIssue; got != "" {
		t.Fatalf("clean scan should have no most common issue, got %q", got)
	}
}

func TestBreakdown(t *testing.T) {
	var vs []model.Violation
	for i := 1; i <= 12; i++ {
		vs = append(vs, v(fmt.Sprintf("AMZN-CP-%03d", i), severity.Warning))
	}
	r := result("amazon", 2,
		set("a", append(vs, v("AMZN-PDP-001", severity.Critical))...),
		set("b", v("AMZN-PDP-001", severity.Critical), v("AMZN-CP-012", severity.Warning)),
	)

	b := Breakdown(r)
	if !reflect.DeepEqual(b.ByCategory, map[string]int{"CP": 13, "PDP": 2}) {
		t.Fatalf("unexpected categories %v", b.ByCategory)
	}
	if b.BySeverity[severity.Critical] != 2 || b.BySeverity[severity.Warning] != 13 || b.BySeverity[severity.Info] != 0 {
		t.Fatalf("unexpected severities %v", b.BySeverity)
	}
	if len(b.TopViolations) != 10 {
		t.Fatalf("expected 10 top violations, got %d", len(b.TopViolations))
	}
	var ids []string
	for _, rc := range b.TopViolations[:4] {
		ids = append(ids, fmt.Sprintf("%s=%d", rc.RuleID, rc.Count))
	}
	want := []string{"AMZN-CP-012=2", "AMZN-PDP-001=2", "AMZN-CP-001=1", "AMZN-CP-002=1"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected ranking %v", ids)
	}
	if b.TopViolations[1].Severity != severity.Critical {
		t.Fatalf("top violation lost its severity: %+v", b.TopViolations[1])
	}
}

func TestCompareReportsImprovement(t *testing.T) {
	prev := flagged("etsy", 10, 3)
	curr := flagged("etsy", 20, 3)
	if Score(prev) != 70 || Score(curr) != 85 {
		t.Fatalf("fixture scores %d/%d", Score(prev), Score(curr))
	}

	cmp, err := Compare(prev, curr)
	if err != nil {
		t.Fatal(err)
	}
	if cmp.ScoreChange != 15 || !cmp.Improved {
		t.Fatalf("unexpected comparison %+v", cmp)
	}
	if cmp.ViolationChange != 0 || cmp.CriticalChange != 0 || cmp.WarningChange != 0 {
		t.Fatalf("unexpected deltas %+v", cmp)
	}

	back, err := Compare(curr, prev)
	if err != nil {
		t.Fatal(err)
	}
	if back.ScoreChange != -15 || back.Improved {
		t.Fatalf("regression reported as %+v", back)
	}
}

func TestCompareRejectsMixedPlatforms(t *testing.T) {
	_, err := Compare(result("etsy", 1), result("amazon", 1))
	var ce *ComparisonError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ComparisonError, got %v", err)
	}
	if ce.Previous != "etsy" || ce.Current != "amazon" {
		t.Fatalf("unexpected error fields %+v", ce)
	}
}

func TestCompareAcross(t *testing.T) {
	etsy := flagged("etsy", 10, 3)
	amazon := flagged("amazon", 20, 3)

	view, err := CompareAcross(etsy, amazon)
	if err != nil {
		t.Fatal(err)
	}
	if view.TotalListings != 30 || view.TotalViolations != 6 {
		t.Fatalf("unexpected totals %+v", view)
	}
	if view.AvgComplianceScore != 78 {
		t.Fatalf("expected rounded average 78, got %d", view.AvgComplianceScore)
	}
	if view.PlatformComparison.BetterPlatform != "amazon" {
		t.Fatalf("expected amazon to win, got %s", view.PlatformComparison.BetterPlatform)
	}

	tie, err := CompareAcross(result("etsy", 1), result("amazon", 1))
	if err != nil {
		t.Fatal(err)
	}
	if tie.PlatformComparison.BetterPlatform != "etsy" {
		t.Fatalf("etsy should win ties, got %s", tie.PlatformComparison.BetterPlatform)
	}

	if _, err := CompareAcross(amazon, etsy); err == nil {
		t.Fatal("expected error for swapped platforms")
	}
}

func TestFilterRecomputesCounts(t *testing.T) {
	r := result("etsy", 3,
		set("a", v("ETSY-PI-001", severity.Critical), v("ETSY-TD-001", severity.Warning)),
		set("b", v("ETSY-SS-001", severity.Info)),
	)

	crit := Filter(r, severity.Critical)
	if crit.ViolationCount != r.CriticalCount {
		t.Fatalf("filtered count %d, want %d", crit.ViolationCount, r.CriticalCount)
	}
	if len(crit.Violations) != 1 || crit.Violations[0].ListingID != "a" {
		t.Fatalf("listing b should be dropped: %+v", crit.Violations)
	}
	if crit.TotalListings != 3 {
		t.Fatalf("total listings changed to %d", crit.TotalListings)
	}
	if err := CheckCounts(crit); err != nil {
		t.Fatal(err)
	}

	if r.ViolationCount != 3 || len(r.Violations[0].Violations) != 2 {
		t.Fatal("filter modified its input")
	}

	both := Filter(r, severity.Warning, severity.Info)
	if both.ViolationCount != 2 || both.CriticalCount != 0 {
		t.Fatalf("unexpected warning+info filter %+v", both)
	}
	if none := Filter(r); none.ViolationCount != 0 || len(none.Violations) != 0 {
		t.Fatalf("empty level set should drop everything, got %+v", none)
	}
}

func TestCheckCountsDetectsDrift(t *testing.T) {
	r := result("etsy", 1, set("a", v("ETSY-PI-001", severity.Critical)))
	r.CriticalCount = 0
	if err := CheckCounts(r); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestFixSuggestions(t *testing.T) {
	got := FixSuggestions(model.Violation{
		RuleID:       "ETSY-PI-001",
		Severity:     severity.Critical,
		Field:        "title",
		MatchedValue: "taser",
	})
	want := []string{
		`Remove the keyword "taser" from your listing`,
		"Edit your listing title to fix this issue",
		"This is a critical issue - fix immediately to avoid shop suspension",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}

	if got := FixSuggestions(model.Violation{Severity: severity.Info, Field: "tags"}); !reflect.DeepEqual(got, []string{"Add more tags to improve discoverability"}) {
		t.Fatalf("unexpected tag suggestions %q", got)
	}
	if got := FixSuggestions(model.Violation{Severity: severity.Warning, Field: "price"}); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %q", got)
	}
}
