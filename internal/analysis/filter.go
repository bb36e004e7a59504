package analysis

import (
	"fmt"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

// Filter returns a copy of r restricted to violations of the given levels.
// Counts are recomputed from what remains; the input is not modified.
func Filter(r model.ScanResult, levels ...severity.Level) model.ScanResult {
	keep := map[severity.Level]bool{}
	for _, l := range levels {
		keep[l] = true
	}
	return Without(r, func(_ string, v model.Violation) bool {
		return !keep[v.Severity]
	})
}

// Without returns a copy of r minus the violations drop reports true for.
func Without(r model.ScanResult, drop func(listingID string, v model.Violation) bool) model.ScanResult {
	out := r.Clone()
	for i := range out.Violations {
		set := &out.Violations[i]
		kept := set.Violations[:0]
		for _, v := range set.Violations {
			if !drop(set.ListingID, v) {
				kept = append(kept, v)
			}
		}
		set.Violations = kept
	}
	out.Recount()
	return out
}

// CheckCounts verifies that the aggregate counts of r agree with its detail
// list.
func CheckCounts(r model.ScanResult) error {
	var c model.Counts
	for _, set := range r.Violations {
		for _, v := range set.Violations {
			c.Add(v.Severity)
		}
	}
	if c.Critical != r.CriticalCount || c.Warning != r.WarningCount || c.Info != r.InfoCount {
		return fmt.Errorf("severity counts %d/%d/%d do not match violations %d/%d/%d",
			r.CriticalCount, r.WarningCount, r.InfoCount, c.Critical, c.Warning, c.Info)
	}
	if c.Total() != r.ViolationCount {
		return fmt.Errorf("violation count %d does not match %d violations", r.ViolationCount, c.Total())
	}
	return nil
}
