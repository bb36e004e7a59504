package scan

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/analysis"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/rules"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

type Options struct {
	// MaxListings caps how many listings are scanned; 0 scans all.
	MaxListings int
	// Categories restricts the scan to rule categories, given either as the
	// rule ID segment ("PI") or the category name ("prohibited_items").
	Categories []string
	// DisabledRules are glob patterns on rule IDs, e.g. "ETSY-SS-*".
	DisabledRules []string
	// Severities keeps only violations of these levels; empty keeps all.
	Severities []severity.Level
	Threads    int
	Now        time.Time
	ScanID     string
}

// Scanner evaluates listings against one shared, read-only catalog.
type Scanner struct {
	catalog *rules.Catalog
	env     rules.Env
}

func New(catalog *rules.Catalog, env rules.Env) *Scanner {
	return &Scanner{catalog: catalog, env: env}
}

func (s *Scanner) Catalog() *rules.Catalog { return s.catalog }

// ScanListing runs every catalog rule against l and returns its violations
// in declaration order.
func (s *Scanner) ScanListing(l listing.Listing) (model.ListingViolationSet, error) {
	active := s.catalog.Rules()
	ptrs := make([]*rules.Rule, len(active))
	for i := range active {
		ptrs[i] = &active[i]
	}
	return s.scanWith(ptrs, l)
}

func (s *Scanner) scanWith(active []*rules.Rule, l listing.Listing) (model.ListingViolationSet, error) {
	found := []model.Violation{}
	for _, r := range active {
		v, err := rules.Evaluate(r, l, s.env)
		if err != nil {
			return model.ListingViolationSet{}, fmt.Errorf("listing %s: %w", l.ID(), err)
		}
		if v != nil {
			found = append(found, *v)
		}
	}
	return model.NewListingSet(l.ID(), listing.TitleOf(l), l.URL(), found), nil
}

// Run scans listings in parallel and reduces the results in input order.
// Listings without violations count toward TotalListings only.
func (s *Scanner) Run(ctx context.Context, listings []listing.Listing, opts Options) (model.ScanResult, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if opts.ScanID == "" {
		opts.ScanID = uuid.NewString()
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
		if opts.Threads < 1 {
			opts.Threads = 1
		}
	}
	if opts.MaxListings > 0 && len(listings) > opts.MaxListings {
		listings = listings[:opts.MaxListings]
	}

	platform := s.catalog.Platform()
	for _, l := range listings {
		if l.Platform() != platform {
			return model.ScanResult{}, fmt.Errorf("listing %s belongs to %s, catalog is %s", l.ID(), l.Platform(), platform)
		}
	}

	active, err := s.selectRules(opts)
	if err != nil {
		return model.ScanResult{}, err
	}

	sets := make([]model.ListingViolationSet, len(listings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Threads)
	for i, l := range listings {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := s.scanWith(active, l)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.ScanResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.ScanResult{}, err
	}

	res := model.ScanResult{
		ScanID:        opts.ScanID,
		Platform:      string(platform),
		Timestamp:     opts.Now.UTC(),
		RulesVersion:  s.catalog.Version(),
		TotalListings: len(listings),
		Violations:    make([]model.ListingViolationSet, 0),
	}
	for _, set := range sets {
		if len(set.Violations) == 0 {
			continue
		}
		res.CriticalCount += set.CriticalCount
		res.WarningCount += set.WarningCount
		res.InfoCount += set.InfoCount
		res.Violations = append(res.Violations, set)
	}
	res.ViolationCount = res.CriticalCount + res.WarningCount + res.InfoCount

	if len(opts.Severities) > 0 {
		res = analysis.Filter(res, opts.Severities...)
	}
	return res, nil
}

func (s *Scanner) selectRules(opts Options) ([]*rules.Rule, error) {
	for _, pattern := range opts.DisabledRules {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid disabled rule pattern: %s", pattern)
		}
	}

	wanted := map[string]bool{}
	for _, c := range opts.Categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !s.knownCategory(c) {
			return nil, fmt.Errorf("unknown %s rule category: %s", s.catalog.Platform(), c)
		}
		wanted[strings.ToLower(c)] = true
	}

	all := s.catalog.Rules()
	active := make([]*rules.Rule, 0, len(all))
	for i := range all {
		r := &all[i]
		if len(wanted) > 0 && !wanted[strings.ToLower(rules.CategoryOf(r.ID))] && !wanted[strings.ToLower(r.Category)] {
			continue
		}
		if isDisabled(r.ID, opts.DisabledRules) {
			continue
		}
		active = append(active, r)
	}
	return active, nil
}

func (s *Scanner) knownCategory(c string) bool {
	for _, r := range s.catalog.Rules() {
		if strings.EqualFold(rules.CategoryOf(r.ID), c) || strings.EqualFold(r.Category, c) {
			return true
		}
	}
	return false
}

func isDisabled(ruleID string, patterns []string) bool {
	for _, pattern := range patterns {
		m, err := doublestar.Match(pattern, ruleID)
		if err == nil && m {
			return true
		}
	}
	return false
}
