package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/analysis"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
)

const csvHeader = "Listing ID,Listing Title,Severity,Rule ID,Message,Field,Recommendation"

// Export is the canonical JSON document of a scan: the result fields at the
// top level plus the derived summary and breakdown.
type Export struct {
	model.ScanResult
	Summary    analysis.ComplianceScoreBreakdown `json:"summary"`
	Breakdown  analysis.ViolationBreakdown       `json:"breakdown"`
	ExportedAt time.Time                         `json:"exportedAt"`
}

// ExportError reports a result that could not be serialized. No partial
// output accompanies it.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func NewExport(r model.ScanResult, order analysis.RuleOrder, exportedAt time.Time) Export {
	return Export{
		ScanResult: r,
		Summary:    analysis.Summarize(r, order),
		Breakdown:  analysis.Breakdown(r),
		ExportedAt: exportedAt.UTC(),
	}
}

// ToJSON renders the export document with two-space indentation.
func ToJSON(r model.ScanResult, order analysis.RuleOrder, exportedAt time.Time) (string, error) {
	return encodeExport(NewExport(r, order, exportedAt))
}

func encodeExport(exp Export) (string, error) {
	if exp.Violations == nil {
		exp.Violations = []model.ListingViolationSet{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return "", &ExportError{Format: "json", Err: err}
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ParseJSON reads an export document back, e.g. from the history store.
// Summary and breakdown are taken as written; callers that need them fresh
// recompute from the embedded result.
func ParseJSON(data []byte) (Export, error) {
	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return Export{}, fmt.Errorf("parse scan export: %w", err)
	}
	if exp.Platform == "" {
		return Export{}, fmt.Errorf("parse scan export: missing platform")
	}
	return exp, nil
}

// ToCSV renders one row per violation. Title, message and recommendation
// are always quoted with embedded quotes doubled.
func ToCSV(r model.ScanResult) string {
	rows := []string{csvHeader}
	for _, set := range r.Violations {
		for _, v := range set.Violations {
			rows = append(rows, strings.Join([]string{
				set.ListingID,
				quote(set.ListingTitle),
				string(v.Severity),
				v.RuleID,
				quote(v.Message),
				v.Field,
				quote(v.Recommendation),
			}, ","))
		}
	}
	return strings.Join(rows, "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
