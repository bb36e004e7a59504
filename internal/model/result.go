package model

import (
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

// Violation is one rule firing against one listing.
type Violation struct {
	RuleID         string         `json:"ruleId"`
	Severity       severity.Level `json:"severity"`
	Message        string         `json:"message"`
	Field          string         `json:"field,omitempty"`
	MatchedValue   string         `json:"matchedValue,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
}

// ListingViolationSet holds the violations of a single listing in catalog
// declaration order.
type ListingViolationSet struct {
	ListingID     string      `json:"listingId"`
	ListingTitle  string      `json:"listingTitle"`
	ListingURL    string      `json:"listingUrl,omitempty"`
	Violations    []Violation `json:"violations"`
	CriticalCount int         `json:"criticalCount"`
	WarningCount  int         `json:"warningCount"`
	InfoCount     int         `json:"infoCount"`
}

// ScanResult is the output of one batch scan. Violations only lists
// listings with at least one violation.
type ScanResult struct {
	ScanID         string                `json:"scanId,omitempty"`
	Platform       string                `json:"platform"`
	Timestamp      time.Time             `json:"timestamp"`
	RulesVersion   string                `json:"rulesVersion,omitempty"`
	TotalListings  int                   `json:"totalListings"`
	ViolationCount int                   `json:"violationCount"`
	CriticalCount  int                   `json:"criticalCount"`
	WarningCount   int                   `json:"warningCount"`
	InfoCount      int                   `json:"infoCount"`
	Violations     []ListingViolationSet `json:"violations"`
}

// Counts tallies violations per severity.
type Counts struct {
	Critical int
	Warning  int
	Info     int
}

func (c Counts) Total() int {
	return c.Critical + c.Warning + c.Info
}

func (c *Counts) Add(level severity.Level) {
	switch level {
	case severity.Critical:
		c.Critical++
	case severity.Warning:
		c.Warning++
	case severity.Info:
		c.Info++
	}
}

func CountBySeverity(violations []Violation) Counts {
	var c Counts
	for _, v := range violations {
		c.Add(v.Severity)
	}
	return c
}

// NewListingSet builds a per-listing aggregate with derived counts.
func NewListingSet(id, title, url string, violations []Violation) ListingViolationSet {
	c := CountBySeverity(violations)
	return ListingViolationSet{
		ListingID:     id,
		ListingTitle:  title,
		ListingURL:    url,
		Violations:    violations,
		CriticalCount: c.Critical,
		WarningCount:  c.Warning,
		InfoCount:     c.Info,
	}
}

// Recount rebuilds every derived count from the detail list and drops
// listings left without violations. TotalListings is kept.
func (r *ScanResult) Recount() {
	kept := make([]ListingViolationSet, 0, len(r.Violations))
	var total Counts
	for _, set := range r.Violations {
		if len(set.Violations) == 0 {
			continue
		}
		set = NewListingSet(set.ListingID, set.ListingTitle, set.ListingURL, set.Violations)
		total.Critical += set.CriticalCount
		total.Warning += set.WarningCount
		total.Info += set.InfoCount
		kept = append(kept, set)
	}
	r.Violations = kept
	r.CriticalCount = total.Critical
	r.WarningCount = total.Warning
	r.InfoCount = total.Info
	r.ViolationCount = total.Total()
}

// Clone returns a deep copy of the result.
func (r ScanResult) Clone() ScanResult {
	out := r
	out.Violations = make([]ListingViolationSet, len(r.Violations))
	for i, set := range r.Violations {
		set.Violations = append([]Violation(nil), set.Violations...)
		out.Violations[i] = set
	}
	return out
}
