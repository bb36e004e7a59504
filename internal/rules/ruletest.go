package rules

import (
	"fmt"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
)

// TestFailure describes one embedded rule test that did not behave as declared.
type TestFailure struct {
	RuleID string
	Case   string
	Reason string
}

type TestSummary struct {
	Pass     int
	Fail     int
	Untested []string
	Failures []TestFailure
}

// RunTests evaluates every rule against its embedded positive and negative
// fixtures. Fixtures are merged over the rules file fixture_base.
func RunTests(c *Catalog) TestSummary {
	var sum TestSummary
	for i := range c.rules {
		r := &c.rules[i]
		if len(r.Tests.Positive) == 0 && len(r.Tests.Negative) == 0 {
			sum.Untested = append(sum.Untested, r.ID)
			continue
		}
		for n, tc := range r.Tests.Positive {
			sum.record(r, fmt.Sprintf("positive[%d]", n), tc, true)
		}
		for n, tc := range r.Tests.Negative {
			sum.record(r, fmt.Sprintf("negative[%d]", n), tc, false)
		}
	}
	return sum
}

func (s *TestSummary) record(r *Rule, name string, tc RuleTestCase, wantViolation bool) {
	l, err := listing.FromMap(r.Platform, mergeFixture(r.fixtureBase, tc.Listing))
	if err != nil {
		s.Fail++
		s.Failures = append(s.Failures, TestFailure{RuleID: r.ID, Case: name, Reason: err.Error()})
		return
	}
	env := Env{}
	if tc.Month != 0 {
		env.Month = time.Month(tc.Month)
	}
	v, err := Evaluate(r, l, env)
	switch {
	case err != nil:
		s.Fail++
		s.Failures = append(s.Failures, TestFailure{RuleID: r.ID, Case: name, Reason: err.Error()})
	case wantViolation && v == nil:
		s.Fail++
		s.Failures = append(s.Failures, TestFailure{RuleID: r.ID, Case: name, Reason: "expected a violation"})
	case !wantViolation && v != nil:
		s.Fail++
		s.Failures = append(s.Failures, TestFailure{RuleID: r.ID, Case: name, Reason: "unexpected violation: " + v.Message})
	default:
		s.Pass++
	}
}

func mergeFixture(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
