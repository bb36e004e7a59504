package analysis

import (
	"fmt"
	"math"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
)

// ComparisonError rejects a comparison of scans from different platforms.
type ComparisonError struct {
	Previous string
	Current  string
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("cannot compare %s scan with %s scan", e.Previous, e.Current)
}

type ScanComparison struct {
	PreviousScore   int  `json:"previousScore"`
	CurrentScore    int  `json:"currentScore"`
	ScoreChange     int  `json:"scoreChange"`
	ViolationChange int  `json:"violationChange"`
	CriticalChange  int  `json:"criticalChange"`
	WarningChange   int  `json:"warningChange"`
	Improved        bool `json:"improved"`
}

// Compare reports the trend between two scans of the same platform.
func Compare(previous, current model.ScanResult) (ScanComparison, error) {
	if previous.Platform != current.Platform {
		return ScanComparison{}, &ComparisonError{Previous: previous.Platform, Current: current.Platform}
	}
	prev, curr := Score(previous), Score(current)
	return ScanComparison{
		PreviousScore:   prev,
		CurrentScore:    curr,
		ScoreChange:     curr - prev,
		ViolationChange: current.ViolationCount - previous.ViolationCount,
		CriticalChange:  current.CriticalCount - previous.CriticalCount,
		WarningChange:   current.WarningCount - previous.WarningCount,
		Improved:        curr > prev,
	}, nil
}

type PlatformComparison struct {
	EtsyScore      int              `json:"etsyScore"`
	AmazonScore    int              `json:"amazonScore"`
	BetterPlatform listing.Platform `json:"betterPlatform"`
}

// CombinedView summarizes an Etsy scan and an Amazon scan side by side.
type CombinedView struct {
	TotalListings      int                `json:"totalListings"`
	TotalViolations    int                `json:"totalViolations"`
	AvgComplianceScore int                `json:"avgComplianceScore"`
	PlatformComparison PlatformComparison `json:"platformComparison"`
}

// CompareAcross combines one scan per platform. Etsy wins score ties.
func CompareAcross(etsy, amazon model.ScanResult) (CombinedView, error) {
	if etsy.Platform != string(listing.Etsy) {
		return CombinedView{}, &ComparisonError{Previous: etsy.Platform, Current: string(listing.Etsy)}
	}
	if amazon.Platform != string(listing.Amazon) {
		return CombinedView{}, &ComparisonError{Previous: amazon.Platform, Current: string(listing.Amazon)}
	}
	es, as := Score(etsy), Score(amazon)
	better := listing.Etsy
	if as > es {
		better = listing.Amazon
	}
	return CombinedView{
		TotalListings:      etsy.TotalListings + amazon.TotalListings,
		TotalViolations:    etsy.ViolationCount + amazon.ViolationCount,
		AvgComplianceScore: int(math.Round(float64(es+as) / 2)),
		PlatformComparison: PlatformComparison{
			EtsyScore:      es,
			AmazonScore:    as,
			BetterPlatform: better,
		},
	}, nil
}
