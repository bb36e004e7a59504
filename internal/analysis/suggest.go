package analysis

import (
	"fmt"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

var fieldHints = map[string]string{
	"title":       "Edit your listing title to fix this issue",
	"description": "Update your listing description",
	"materials":   "Add materials information to your listing",
	"tags":        "Add more tags to improve discoverability",
}

// FixSuggestions lists concrete next steps for a single violation.
func FixSuggestions(v model.Violation) []string {
	var out []string
	if v.MatchedValue != "" {
		out = append(out, fmt.Sprintf("Remove the keyword %q from your listing", v.MatchedValue))
	}
	if hint, ok := fieldHints[v.Field]; ok {
		out = append(out, hint)
	}
	if v.Severity == severity.Critical {
		out = append(out, "This is a critical issue - fix immediately to avoid shop suspension")
	}
	return out
}
